package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"papersim/internal/replay"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
)

// Client is one WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// inbound is a message from the browser: a latency ping or a control
// command for the driver.
type inbound struct {
	Type    string          `json:"type"`
	Ping    int64           `json:"ping,omitempty"`
	Command *replay.Command `json:"command,omitempty"`
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Coalesce queued messages into one frame, newline separated.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		slog.Info("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var in inbound
		if json.Unmarshal(msg, &in) != nil {
			continue
		}

		switch in.Type {
		case "ping":
			c.reply("pong", map[string]int64{
				"ping":      in.Ping,
				"server_ts": time.Now().UnixMilli(),
			})

		case "control":
			if in.Command == nil || c.hub.ctrl == nil {
				c.reply("error", map[string]string{"error": "no command"})
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			res, err := c.hub.ctrl.Do(ctx, *in.Command)
			cancel()
			if err != nil {
				c.reply("error", map[string]string{"error": err.Error()})
				continue
			}
			c.reply("control", res)
		}
	}
}

// reply queues a message for this client only. The hub lock guards
// against a concurrent RemoveClient closing the queue.
func (c *Client) reply(kind string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	env := envelope(kind, data, time.Now().UTC(), 0)

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- env:
	default:
	}
}
