// Package gateway serves the simulation to browsers: a WebSocket stream of
// snapshots and a small REST API for state, performance and control.
package gateway

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"papersim/internal/metrics"
	"papersim/internal/simulation"
)

const sendQueueSize = 256

// Hub fans snapshots out to WebSocket clients. It implements replay.Sink.
type Hub struct {
	ctrl    Controller
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]struct{}
	seq     int64
	latest  []byte

	backlog *Backlog
}

// NewHub creates a hub. ctrl handles control messages sent over the socket
// and may be nil; m may be nil.
func NewHub(ctrl Controller, m *metrics.Metrics) *Hub {
	return &Hub{
		ctrl:    ctrl,
		metrics: m,
		clients: make(map[*Client]struct{}),
		backlog: NewBacklog(512),
	}
}

// Publish broadcasts a snapshot envelope.
func (h *Hub) Publish(_ context.Context, snap simulation.Snapshot) error {
	h.Broadcast("snapshot", snap.JSON())
	return nil
}

// Broadcast wraps data in an envelope and queues it on every client.
// Clients whose queue is full miss the message and can catch up via seq.
func (h *Hub) Broadcast(kind string, data []byte) {
	h.mu.Lock()
	h.seq++
	env := envelope(kind, data, time.Now().UTC(), h.seq)
	h.latest = env
	h.backlog.Push(h.seq, env)

	for c := range h.clients {
		select {
		case c.send <- env:
		default:
			slog.Debug("[gateway] client queue full, dropping message", "seq", h.seq)
		}
	}
	h.mu.Unlock()
}

// envelope builds {"type":...,"data":...,"ts":"...","seq":N} without a
// second marshal of data.
func envelope(kind string, data []byte, now time.Time, seq int64) []byte {
	buf := make([]byte, 0, len(kind)+len(data)+96)
	buf = append(buf, `{"type":"`...)
	buf = append(buf, kind...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')
	return buf
}

// Register attaches an upgraded connection. A positive since replays the
// backlog after that sequence number; otherwise only the latest envelope
// is sent.
func (h *Hub) Register(conn *websocket.Conn, since int64) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		hub:  h,
	}

	h.mu.Lock()
	var initial [][]byte
	if since > 0 {
		initial = h.backlog.After(since)
	} else if h.latest != nil {
		initial = [][]byte{h.latest}
	}
	for _, env := range initial {
		select {
		case c.send <- env:
		default:
		}
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.ClientConnected()
	slog.Info("[gateway] ws client connected", "clients", count)

	go c.writePump()
	go c.readPump()
	return c
}

// RemoveClient detaches c and closes its queue. Safe to call twice.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	h.metrics.ClientDisconnected()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seq returns the sequence number of the last broadcast.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}
