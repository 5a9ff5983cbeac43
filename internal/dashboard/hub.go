package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"video-dashboard/internal/shared/telemetry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16

	// terminalSendWait bounds how long Publish waits to queue an event that
	// ends a session.
	terminalSendWait = 2 * time.Second
)

// Event is one message pushed to live clients.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	JobID     string `json:"job_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Event types.
const (
	EventCurrent   = "current"
	EventSnapshot  = "snapshot"
	EventPollError = "poll_error"
	EventCompleted = "completed"
	EventStopped   = "stopped"
)

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected WebSocket clients. Slow clients are dropped
// rather than blocking the broadcaster.
type Hub struct {
	upgrader websocket.Upgrader

	register   chan *hubClient
	unregister chan *hubClient
	broadcast  chan []byte
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

// NewHub creates a hub. allowedOrigins mirrors the CORS allow list; "*" allows any origin.
func NewHub(allowedOrigins []string) *Hub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	_, allowAll := origins["*"]

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAll {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		clients:    make(map[*hubClient]struct{}),
	}
}

// Run dispatches registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			telemetry.Info("ws.connected", map[string]any{"clients": n})
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			telemetry.Info("ws.disconnected", map[string]any{"clients": n})
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
					telemetry.Warn("ws.client.dropped", map[string]any{"reason": "send buffer full"})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues an event for every client. Snapshot and poll error events are
// dropped when the hub is backed up. Completed and stopped events wait for room
// instead, up to terminalSendWait or until the hub stops. A client dropped for
// falling behind receives the current view again when it reconnects.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		telemetry.Error("ws.marshal.failed", map[string]any{"type": ev.Type, "error": err.Error()})
		return
	}
	select {
	case h.broadcast <- payload:
		return
	default:
	}
	if !isTerminalEvent(ev.Type) {
		telemetry.Warn("ws.broadcast.dropped", map[string]any{"type": ev.Type})
		return
	}

	timer := time.NewTimer(terminalSendWait)
	defer timer.Stop()
	select {
	case h.broadcast <- payload:
	case <-h.done:
	case <-timer.C:
		telemetry.Error("ws.broadcast.dropped", map[string]any{"type": ev.Type, "waited": terminalSendWait.String()})
	}
}

func isTerminalEvent(eventType string) bool {
	return eventType == EventCompleted || eventType == EventStopped
}

// Serve upgrades the request and streams events to the connection. initial, if
// non-nil, is written before any broadcast.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial *Event) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &hubClient{conn: conn, send: make(chan []byte, clientSendSize)}

	if initial != nil {
		if initial.Timestamp == "" {
			initial.Timestamp = time.Now().UTC().Format(time.RFC3339)
		}
		if payload, err := json.Marshal(initial); err == nil {
			c.send <- payload
		}
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return ErrHubClosed
	}

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// readPump only watches for the peer going away; clients do not send commands.
func (h *Hub) readPump(c *hubClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
