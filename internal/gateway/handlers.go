package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"papersim/internal/replay"
	"papersim/internal/simulation"
	sqlitestore "papersim/internal/store/sqlite"
)

// Controller is the driver surface the gateway needs.
type Controller interface {
	State() simulation.State
	Snapshot() simulation.Snapshot
	Do(ctx context.Context, cmd replay.Command) (replay.Result, error)
}

// TradeLister reads the trade journal.
type TradeLister interface {
	GetTrades(ctx context.Context, runID string, limit int) ([]sqlitestore.TradeRecord, error)
}

// SymbolLister lists the symbols with stored bars.
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// LatestReader returns the last snapshot published for a symbol, possibly
// by an earlier run or another process.
type LatestReader interface {
	Latest(ctx context.Context, symbol string) (simulation.Snapshot, bool, error)
}

// Sources are the optional read backends of the REST routes. A nil field
// leaves its route unregistered.
type Sources struct {
	Trades  TradeLister  // /api/trades
	Symbols SymbolLister // /api/symbols
	Latest  LatestReader // /api/latest
}

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// RegisterRoutes registers the WebSocket and REST routes on mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, ctrl Controller, src Sources, processStart time.Time) {
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		var since int64
		if s := r.URL.Query().Get("since"); s != "" {
			since, _ = strconv.ParseInt(s, 10, 64)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("[gateway] ws upgrade error", "err", err)
			return
		}
		conn.EnableWriteCompression(true)
		hub.Register(conn, since)
	})

	// Full state, or the compact snapshot with ?compact=1.
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if r.URL.Query().Get("compact") == "1" {
			writeJSON(w, http.StatusOK, ctrl.Snapshot())
			return
		}
		writeJSON(w, http.StatusOK, ctrl.State())
	})

	mux.HandleFunc("/api/performance", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, ctrl.State().Performance())
	})

	mux.HandleFunc("/api/control", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
			return
		case http.MethodPost:
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var cmd replay.Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if cmd.Type == "" {
			writeError(w, http.StatusBadRequest, "type is required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		res, err := ctrl.Do(ctx, cmd)
		if err != nil {
			code := http.StatusGatewayTimeout
			if errors.Is(err, replay.ErrStopped) {
				code = http.StatusServiceUnavailable
			}
			writeError(w, code, err.Error())
			return
		}
		slog.Info("[gateway] control", "type", string(cmd.Type), "accepted", res.Accepted)
		writeJSON(w, http.StatusOK, res)
	})

	if trades := src.Trades; trades != nil {
		mux.HandleFunc("/api/trades", func(w http.ResponseWriter, r *http.Request) {
			SetCORS(w)
			runID := r.URL.Query().Get("run")
			if runID == "" {
				runID = ctrl.Snapshot().RunID
			}
			limit := 100
			if s := r.URL.Query().Get("limit"); s != "" {
				if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= 1000 {
					limit = l
				}
			}
			recs, err := trades.GetTrades(r.Context(), runID, limit)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if recs == nil {
				recs = []sqlitestore.TradeRecord{}
			}
			writeJSON(w, http.StatusOK, recs)
		})
	}

	if symbols := src.Symbols; symbols != nil {
		mux.HandleFunc("/api/symbols", func(w http.ResponseWriter, r *http.Request) {
			SetCORS(w)
			syms, err := symbols.Symbols(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if syms == nil {
				syms = []string{}
			}
			writeJSON(w, http.StatusOK, syms)
		})
	}

	// Last published snapshot for ?symbol= (default: the replayed symbol).
	if latest := src.Latest; latest != nil {
		mux.HandleFunc("/api/latest", func(w http.ResponseWriter, r *http.Request) {
			SetCORS(w)
			symbol := r.URL.Query().Get("symbol")
			if symbol == "" {
				symbol = ctrl.Snapshot().Symbol
			}
			snap, ok, err := latest.Latest(r.Context(), symbol)
			if err != nil {
				writeError(w, http.StatusBadGateway, err.Error())
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "no snapshot for "+symbol)
				return
			}
			writeJSON(w, http.StatusOK, snap)
		})
	}

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		snap := ctrl.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"simulation": snap.Status,
			"run_id":     snap.RunID,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
