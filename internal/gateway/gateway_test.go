package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"papersim/internal/model"
	"papersim/internal/portfolio"
	"papersim/internal/replay"
	"papersim/internal/simulation"
	sqlitestore "papersim/internal/store/sqlite"
)

type env struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	TS   string          `json:"ts"`
	Seq  int64           `json:"seq"`
}

func TestEnvelopeFormat(t *testing.T) {
	now := time.Date(2026, 2, 25, 10, 0, 1, 0, time.UTC)
	buf := envelope("snapshot", []byte(`{"status":"running"}`), now, 42)

	var e env
	if err := json.Unmarshal(buf, &e); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, buf)
	}
	if e.Type != "snapshot" || e.Seq != 42 {
		t.Errorf("got type=%q seq=%d", e.Type, e.Seq)
	}
	if e.TS != now.Format(time.RFC3339Nano) {
		t.Errorf("ts: got %q", e.TS)
	}
	if string(e.Data) != `{"status":"running"}` {
		t.Errorf("data: got %s", e.Data)
	}
}

func TestBacklog(t *testing.T) {
	b := NewBacklog(5)
	if got := b.After(0); len(got) != 0 {
		t.Fatalf("empty backlog: got %d", len(got))
	}
	for i := int64(1); i <= 8; i++ {
		b.Push(i, []byte{byte('0' + i)})
	}
	if b.Len() != 5 {
		t.Fatalf("Len: got %d, want 5", b.Len())
	}

	got := b.After(0)
	if len(got) != 5 || string(got[0]) != "4" || string(got[4]) != "8" {
		t.Errorf("After(0): got %q", got)
	}
	got = b.After(6)
	if len(got) != 2 || string(got[0]) != "7" {
		t.Errorf("After(6): got %q", got)
	}
}

func TestBacklog_CopiesData(t *testing.T) {
	b := NewBacklog(2)
	data := []byte("a")
	b.Push(1, data)
	data[0] = 'z'
	if got := b.After(0); string(got[0]) != "a" {
		t.Errorf("backlog aliased caller slice: %q", got[0])
	}
}

type fakeController struct {
	mu    sync.Mutex
	state simulation.State
	cmds  []replay.Command
	err   error
}

func (f *fakeController) State() simulation.State { return f.state }

func (f *fakeController) Snapshot() simulation.Snapshot {
	return f.state.Snapshot("run-1", "IBM")
}

func (f *fakeController) Do(_ context.Context, cmd replay.Command) (replay.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	if f.err != nil {
		return replay.Result{}, f.err
	}
	return replay.Result{Accepted: cmd.Type == replay.CommandPause, Snapshot: f.Snapshot()}, nil
}

type fakeTrades struct{ runID string }

func (f *fakeTrades) GetTrades(_ context.Context, runID string, limit int) ([]sqlitestore.TradeRecord, error) {
	f.runID = runID
	return []sqlitestore.TradeRecord{{RunID: runID, Side: model.Buy, Quantity: 10}}, nil
}

func runningState() simulation.State {
	pts := make([]model.ChartPoint, 5)
	for i := range pts {
		pts[i].Timestamp = int64(i + 1)
		pts[i].Close = 10
	}
	s := simulation.Reduce(simulation.InitialState(), simulation.Action{
		Type: simulation.ActionStart, Data: pts, InitialBalance: 1000, StartIndex: 1,
	})
	return simulation.Reduce(s, simulation.ExecuteTrade(model.Buy, 2, "IBM"))
}

func newTestServer(t *testing.T, ctrl Controller, src Sources) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(ctrl, nil)
	mux := http.NewServeMux()
	RegisterRoutes(mux, hub, ctrl, src, time.Now())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hub, srv
}

func TestHandlers_State(t *testing.T) {
	ctrl := &fakeController{state: runningState()}
	_, srv := newTestServer(t, ctrl, Sources{})

	resp, err := http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var st simulation.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Status != simulation.StatusRunning || len(st.Trades) != 1 || len(st.AllData) != 5 {
		t.Errorf("state: status=%s trades=%d data=%d", st.Status, len(st.Trades), len(st.AllData))
	}

	resp2, err := http.Get(srv.URL + "/api/state?compact=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var snap simulation.Snapshot
	if err := json.NewDecoder(resp2.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.RunID != "run-1" || snap.Portfolio.Position != 2 {
		t.Errorf("snapshot: got %+v", snap)
	}
}

func TestHandlers_Performance(t *testing.T) {
	ctrl := &fakeController{state: runningState()}
	_, srv := newTestServer(t, ctrl, Sources{})

	resp, err := http.Get(srv.URL + "/api/performance")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var perf portfolio.Summary
	if err := json.NewDecoder(resp.Body).Decode(&perf); err != nil {
		t.Fatal(err)
	}
	if perf.TotalTrades != 1 || perf.FinalValue != 1000 {
		t.Errorf("performance: got %+v", perf)
	}
}

func TestHandlers_Control(t *testing.T) {
	ctrl := &fakeController{state: runningState()}
	_, srv := newTestServer(t, ctrl, Sources{})

	resp, err := http.Post(srv.URL+"/api/control", "application/json", strings.NewReader(`{"type":"pause"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var res replay.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	ctrl.mu.Lock()
	cmds := ctrl.cmds
	ctrl.mu.Unlock()
	if !res.Accepted || len(cmds) != 1 || cmds[0].Type != replay.CommandPause {
		t.Errorf("result=%+v cmds=%+v", res, cmds)
	}

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, `{`, http.StatusBadRequest},
		{"missing type", http.MethodPost, `{}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+"/api/control", strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("got %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	ctrl.mu.Lock()
	ctrl.err = replay.ErrStopped
	ctrl.mu.Unlock()
	resp3, err := http.Post(srv.URL+"/api/control", "application/json", strings.NewReader(`{"type":"start"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("stopped driver: got %d, want 503", resp3.StatusCode)
	}
}

func TestHandlers_Trades(t *testing.T) {
	ctrl := &fakeController{state: runningState()}
	trades := &fakeTrades{}
	_, srv := newTestServer(t, ctrl, Sources{Trades: trades})

	resp, err := http.Get(srv.URL + "/api/trades?limit=5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var recs []sqlitestore.TradeRecord
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || trades.runID != "run-1" {
		t.Errorf("default run id: got %q, recs %+v", trades.runID, recs)
	}
}

type fakeSymbols []string

func (f fakeSymbols) Symbols(context.Context) ([]string, error) { return f, nil }

type fakeLatest map[string]simulation.Snapshot

func (f fakeLatest) Latest(_ context.Context, symbol string) (simulation.Snapshot, bool, error) {
	snap, ok := f[symbol]
	return snap, ok, nil
}

func TestHandlers_Symbols(t *testing.T) {
	_, srv := newTestServer(t, &fakeController{state: simulation.InitialState()},
		Sources{Symbols: fakeSymbols{"IBM", "MSFT"}})
	resp, err := http.Get(srv.URL + "/api/symbols")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var syms []string
	if err := json.NewDecoder(resp.Body).Decode(&syms); err != nil {
		t.Fatal(err)
	}
	if len(syms) != 2 || syms[0] != "IBM" {
		t.Errorf("symbols: got %v", syms)
	}
}

func TestHandlers_Latest(t *testing.T) {
	ctrl := &fakeController{state: runningState()}
	prev := ctrl.Snapshot()
	prev.RunID = "run-0"
	_, srv := newTestServer(t, ctrl, Sources{Latest: fakeLatest{"IBM": prev}})

	resp, err := http.Get(srv.URL + "/api/latest")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var snap simulation.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.RunID != "run-0" || snap.Symbol != "IBM" {
		t.Errorf("latest: got run %q symbol %q", snap.RunID, snap.Symbol)
	}

	missing, err := http.Get(srv.URL + "/api/latest?symbol=AAPL")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("unknown symbol: got %d, want 404", missing.StatusCode)
	}
}

func TestHandlers_OptionalRoutesUnregistered(t *testing.T) {
	_, srv := newTestServer(t, &fakeController{state: simulation.InitialState()}, Sources{})
	for _, path := range []string{"/api/trades", "/api/symbols", "/api/latest"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestHandlers_Health(t *testing.T) {
	_, srv := newTestServer(t, &fakeController{state: simulation.InitialState()}, Sources{})
	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" || body["simulation"] != "idle" {
		t.Errorf("health: got %v", body)
	}
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEnvelopes reads frames until n envelopes have arrived. Frames may
// carry several newline-separated envelopes.
func readEnvelopes(t *testing.T, conn *websocket.Conn, n int) []env {
	t.Helper()
	var out []env
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for len(out) < n {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (have %d of %d)", err, len(out), n)
		}
		for _, line := range bytes.Split(msg, []byte{'\n'}) {
			var e env
			if err := json.Unmarshal(line, &e); err != nil {
				t.Fatalf("bad envelope %q: %v", line, err)
			}
			out = append(out, e)
		}
	}
	return out
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients: got %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWS_StreamsSnapshots(t *testing.T) {
	ctrl := &fakeController{state: runningState()}
	hub, srv := newTestServer(t, ctrl, Sources{})

	conn := dial(t, srv, "")
	waitClients(t, hub, 1)

	if err := hub.Publish(context.Background(), ctrl.Snapshot()); err != nil {
		t.Fatal(err)
	}
	got := readEnvelopes(t, conn, 1)
	if got[0].Type != "snapshot" || got[0].Seq != 1 {
		t.Fatalf("envelope: got %+v", got[0])
	}
	var snap simulation.Snapshot
	if err := json.Unmarshal(got[0].Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Symbol != "IBM" || snap.Status != simulation.StatusRunning {
		t.Errorf("snapshot: got %+v", snap)
	}

	conn.Close()
	waitClients(t, hub, 0)
}

func TestWS_CatchUpSince(t *testing.T) {
	hub, srv := newTestServer(t, &fakeController{state: simulation.InitialState()}, Sources{})
	for i := 0; i < 3; i++ {
		hub.Broadcast("snapshot", []byte(`{}`))
	}

	conn := dial(t, srv, "?since=1")
	got := readEnvelopes(t, conn, 2)
	if got[0].Seq != 2 || got[1].Seq != 3 {
		t.Errorf("catch-up seqs: got %d, %d", got[0].Seq, got[1].Seq)
	}

	latest := dial(t, srv, "")
	got = readEnvelopes(t, latest, 1)
	if got[0].Seq != 3 {
		t.Errorf("latest only: got seq %d, want 3", got[0].Seq)
	}
}

func TestWS_ControlAndPing(t *testing.T) {
	ctrl := &fakeController{state: runningState()}
	hub, srv := newTestServer(t, ctrl, Sources{})
	conn := dial(t, srv, "")
	waitClients(t, hub, 1)

	if err := conn.WriteJSON(map[string]any{"type": "ping", "ping": 123}); err != nil {
		t.Fatal(err)
	}
	got := readEnvelopes(t, conn, 1)
	if got[0].Type != "pong" {
		t.Fatalf("got %+v, want pong", got[0])
	}

	if err := conn.WriteJSON(map[string]any{"type": "control", "command": map[string]any{"type": "pause"}}); err != nil {
		t.Fatal(err)
	}
	got = readEnvelopes(t, conn, 1)
	if got[0].Type != "control" {
		t.Fatalf("got %+v, want control", got[0])
	}
	var res replay.Result
	if err := json.Unmarshal(got[0].Data, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Accepted {
		t.Errorf("pause not accepted: %+v", res)
	}
}
