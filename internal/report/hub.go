package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tabot/internal/strategy"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Hub fans events out to WebSocket clients. New clients first receive the
// latest snapshot of every strategy, then the buffered decisions newer than
// their ?since= sequence (all buffered ones when absent).
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	latest  map[string][]byte // strategy → last snapshot envelope
	recent  *replayBuffer
	seq     int64

	upgrader websocket.Upgrader

	// OnClients, if set, observes the client count after every change.
	OnClients func(n int)
}

// NewHub creates an empty hub. Cross-origin connections are accepted.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		latest:  make(map[string][]byte),
		recent:  newReplayBuffer(replayCapacity),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), hub: h}

	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	for _, snap := range h.latest {
		c.send <- snap
	}
	for _, e := range h.recent.since(since) {
		select {
		case c.send <- e.Data:
		default:
		}
	}
	h.mu.Unlock()

	slog.Info("ws client connected", "remote", r.RemoteAddr, "clients", n)
	if h.OnClients != nil {
		h.OnClients(n)
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	slog.Info("ws client disconnected", "clients", n)
	if h.OnClients != nil {
		h.OnClients(n)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast stamps ev with the next sequence number and queues it to every
// client. Slow clients drop messages rather than block the loop.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	ev.Seq = h.seq
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("ws marshal failed", "type", ev.Type, "error", err)
		return
	}
	switch ev.Type {
	case TypeSnapshot:
		h.latest[ev.Strategy] = data
	case TypeDecision:
		h.recent.push(ev.Seq, data)
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) publish(typ, strategyName string, v interface{}) {
	ev, err := newEvent(typ, strategyName, v)
	if err != nil {
		slog.Error("ws event failed", "type", typ, "error", err)
		return
	}
	h.Broadcast(ev)
}

func (h *Hub) Snapshot(ctx context.Context, s strategy.Snapshot) {
	h.publish(TypeSnapshot, s.Strategy, s)
}

func (h *Hub) Progress(ctx context.Context, p strategy.Progress) {
	h.publish(TypeProgress, p.Strategy, p)
}

func (h *Hub) Decision(ctx context.Context, d strategy.Decision) {
	h.publish(TypeDecision, d.Strategy, d)
}

// client is a single WebSocket peer.
type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (c *client) writePump() {
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
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			// coalesce queued events into one frame, newline separated
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

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
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
		var req struct {
			Ping int64 `json:"ping"`
		}
		if json.Unmarshal(msg, &req) != nil || req.Ping == 0 {
			continue
		}
		pong, _ := json.Marshal(map[string]interface{}{
			"type":      "pong",
			"ping":      req.Ping,
			"server_ts": time.Now().UnixMilli(),
		})
		select {
		case c.send <- pong:
		default:
		}
	}
}
