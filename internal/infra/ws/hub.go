package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

type client struct {
	conn   *websocket.Conn
	tenant string
}

// Hub pushes asset status transitions to connected clients, scoped per
// tenant. Implements the media.Notifier port.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan domain.StatusEvent
	register   chan *client
	unregister chan *client
	mutex      sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan domain.StatusEvent, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			h.mutex.Unlock()
			h.log.Info("events client connected", zap.Int("total", h.ClientCount()))

		case c := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.conn.Close()
			}
			h.mutex.Unlock()
			h.log.Info("events client disconnected", zap.Int("total", h.ClientCount()))

		case ev := <-h.broadcast:
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			h.mutex.Lock()
			for c := range h.clients {
				if c.tenant != ev.TenantID {
					continue
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					h.log.Warn("events write failed", zap.Error(err))
					delete(h.clients, c)
					c.conn.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish implements media.Notifier. Non-blocking: events are dropped
// when the hub is saturated rather than stalling the pipeline.
func (h *Hub) Publish(ev domain.StatusEvent) {
	select {
	case h.broadcast <- ev:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// same-origin policy is enforced upstream by the CORS middleware
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades the connection and keeps it registered until the
// client goes away.
func (h *Hub) Handler(tenant string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, tenant: tenant}
	h.register <- c

	// drain reads so pings/close frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister <- c
				return
			}
		}
	}()
}
