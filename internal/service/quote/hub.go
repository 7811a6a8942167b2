package quote

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// Message is the frame pushed to websocket clients.
type Message struct {
	Type string             `json:"type"`
	Data models.CachedQuote `json:"data"`
}

// Hub streams quote updates to websocket clients. Every client gets the
// cached quote on connect and each new quote afterwards.
type Hub struct {
	cache        *Cache
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	clients      atomic.Int64
	log          *logger.Logger
}

func NewHub(c *Cache, pingInterval time.Duration, l *logger.Logger) *Hub {
	if l == nil {
		l = logger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		cache: c,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		log:          l,
	}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int64 { return h.clients.Load() }

// ServeHTTP upgrades the request and blocks until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.Error(err))
		return
	}
	h.clients.Add(1)
	defer h.clients.Add(-1)
	defer conn.Close()

	updates, cancel := h.cache.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	if cq, ok := h.cache.Latest(); ok {
		if err := h.write(conn, cq); err != nil {
			return
		}
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case cq, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(conn, cq); err != nil {
				h.log.Debug("websocket write failed", logger.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, cq models.CachedQuote) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Message{Type: "quote", Data: cq})
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Hub) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
