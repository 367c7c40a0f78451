package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/render"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	// The overlay page is served from wherever the camera page lives.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans rendered frames out to every connected websocket. Each client
// holds at most one unsent frame; a slow client skips straight to the
// newest one.
type Hub struct {
	log *logger.Logger

	mu      sync.Mutex
	clients map[string]*client
	last    []byte
}

// client is one websocket connection.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

var _ render.Sink = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:     log.With("component", "ws"),
		clients: make(map[string]*client),
	}
}

// Send implements render.Sink. The frame is encoded once and queued on
// every client.
func (h *Hub) Send(_ context.Context, f render.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for _, c := range h.clients {
		c.offer(data)
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and streams frames until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	if h.last != nil {
		c.offer(h.last)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("client %s connected (%d total)", c.id, n)

	go h.readPump(c)
	h.writePump(c)
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
		close(c.done)
	}
	n := len(h.clients)
	h.mu.Unlock()

	_ = c.conn.Close()
	if ok {
		h.log.Info("client %s disconnected (%d left)", c.id, n)
	}
}

// readPump discards incoming messages. It exists to process control
// frames and notice when the peer closes.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(4096)
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

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("client %s: write: %v", c.id, err)
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

// offer replaces any frame the client has not written yet. Called with
// the hub lock held, which makes it the only producer.
func (c *client) offer(data []byte) {
	select {
	case <-c.send:
	default:
	}
	c.send <- data
}
