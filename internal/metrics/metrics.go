// Package metrics exposes Prometheus metrics and a health endpoint for the
// simulator. All Metrics methods are safe on a nil receiver so components
// can run without instrumentation.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the simulator's Prometheus collectors.
type Metrics struct {
	DaysReplayed     prometheus.Counter
	Signals          *prometheus.CounterVec // labels: type
	Trades           *prometheus.CounterVec // labels: side
	RejectedTrades   prometheus.Counter
	PortfolioValue   prometheus.Gauge
	DispatchDuration *prometheus.HistogramVec // labels: action
	WSClients        prometheus.Gauge
	PublishErrors    *prometheus.CounterVec // labels: sink

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		DaysReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papersim_days_replayed_total",
			Help: "Trading days advanced by the replay",
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papersim_signals_total",
			Help: "Crossover classifications by signal type",
		}, []string{"type"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papersim_trades_total",
			Help: "Executed paper trades by side",
		}, []string{"side"}),
		RejectedTrades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papersim_trades_rejected_total",
			Help: "Trade requests rejected for cash, position or quantity",
		}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papersim_portfolio_value",
			Help: "Mark-to-market portfolio value",
		}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "papersim_dispatch_duration_seconds",
			Help:    "State machine dispatch latency including sink fan-out",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"action"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papersim_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papersim_publish_errors_total",
			Help: "Snapshot or trade publish failures by sink",
		}, []string{"sink"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.DaysReplayed,
		m.Signals,
		m.Trades,
		m.RejectedTrades,
		m.PortfolioValue,
		m.DispatchDuration,
		m.WSClients,
		m.PublishErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveDispatch records the latency of one dispatch.
func (m *Metrics) ObserveDispatch(action string, d time.Duration) {
	if m == nil {
		return
	}
	m.DispatchDuration.WithLabelValues(action).Observe(d.Seconds())
}

// DayReplayed counts an advanced day with its signal and resulting value.
func (m *Metrics) DayReplayed(signal string, value float64) {
	if m == nil {
		return
	}
	m.DaysReplayed.Inc()
	m.Signals.WithLabelValues(signal).Inc()
	m.PortfolioValue.Set(value)
}

// TradeExecuted counts an executed trade.
func (m *Metrics) TradeExecuted(side string, value float64) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(side).Inc()
	m.PortfolioValue.Set(value)
}

// TradeRejected counts a rejected trade request.
func (m *Metrics) TradeRejected() {
	if m == nil {
		return
	}
	m.RejectedTrades.Inc()
}

// PublishFailed counts a failed publish to sink.
func (m *Metrics) PublishFailed(sink string) {
	if m == nil {
		return
	}
	m.PublishErrors.WithLabelValues(sink).Inc()
}

// ClientConnected and ClientDisconnected track the WebSocket client gauge.
func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.WSClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.WSClients.Dec()
}

// HealthStatus tracks dependency health for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled    bool
	RedisConnected  bool
	RedisLatencyMs  float64
	SQLiteOK        bool
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a health status with no checks run yet.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// CheckRedis pings Redis and records latency and connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency and health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs the checks every interval until ctx is done.
// Either dependency may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		if db != nil {
			h.CheckSQLite(probeCtx, db)
		}
	}
	check()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// ServeHTTP reports "healthy", "degraded" (503) when Redis is configured
// but unreachable, or "unhealthy" (503) when SQLite is down.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if h.RedisEnabled && !h.RedisConnected {
		overall = "degraded"
		code = http.StatusServiceUnavailable
	}
	if !h.SQLiteOK {
		overall = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overall,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// Server exposes /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates the metrics and health server.
func NewServer(addr string, m *Metrics, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("[metrics] server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[metrics] server error", "err", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
