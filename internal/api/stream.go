package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	clientBuffer = 32
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts decisions to websocket subscribers
// ⭐ SSOT: the only fan-out point for published decisions
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *logger.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  log.WithComponent("stream"),
	}
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends d to every subscriber. A subscriber whose buffer is full is dropped.
func (h *Hub) Publish(d contracts.Decision) {
	msg, err := json.Marshal(d)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to encode decision")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			c.close()
			h.logger.Warn("Dropping slow decision subscriber")
		}
	}
}

// ServeWS upgrades the request and streams decisions until the peer leaves
// GET /ws/decisions
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.WithField("remote", r.RemoteAddr).Debug("Decision subscriber connected")

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards inbound frames and unregisters the client on close
func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			c.close()
		}
		h.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
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
	ticker := time.NewTicker(pingInterval)
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
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
