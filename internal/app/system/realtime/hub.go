// internal/app/system/realtime/hub.go
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/metrics"
	"github.com/dalemusser/churchhub/internal/app/system/presence"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/wsauth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
	readLimit  = 4096
)

// Event is one server-to-client frame.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub keeps the open websocket connections of this instance and mirrors
// them into the presence registry.
type Hub struct {
	auth     wsauth.Authenticator
	presence presence.Registry
	log      *zap.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[primitive.ObjectID]map[*client]struct{}
	closed  bool
}

type client struct {
	id   string
	user primitive.ObjectID
	conn *websocket.Conn
	send chan Event
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub builds a hub. m may be nil.
func NewHub(a wsauth.Authenticator, p presence.Registry, allowedOrigins []string, log *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		auth:     a,
		presence: p,
		log:      log,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     wsauth.OriginChecker(allowedOrigins),
		},
		clients: make(map[primitive.ObjectID]map[*client]struct{}),
	}
}

// ServeHTTP authenticates and upgrades the request, then pumps frames until
// either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, err := wsauth.Authenticate(r, h.auth)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{id: uuid.NewString(), user: u.ID, conn: conn, send: make(chan Event, sendBuffer)}
	if !h.register(r.Context(), c) {
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(ctx context.Context, c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	set, ok := h.clients[c.user]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.user] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	if err := h.presence.Connect(ctx, c.user, c.id); err != nil {
		h.log.Warn("presence connect failed", zap.String("user", c.user.Hex()), zap.Error(err))
	}
	if h.metrics != nil {
		h.metrics.RealtimeConnections.Inc()
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	set := h.clients[c.user]
	_, present := set[c]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.user)
	}
	h.mu.Unlock()
	if !present {
		return
	}
	c.close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.presence.Disconnect(ctx, c.user, c.id); err != nil {
		h.log.Warn("presence disconnect failed", zap.String("user", c.user.Hex()), zap.Error(err))
	}
	if h.metrics != nil {
		h.metrics.RealtimeConnections.Dec()
	}
}

// readPump discards client frames; it exists to process pings, pongs and
// the close handshake.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(readLimit)
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
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
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

// Send queues ev for every connection of each user and reports how many
// connections accepted it. Slow connections whose buffer is full skip the
// event.
func (h *Hub) Send(users []primitive.ObjectID, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, u := range users {
		for c := range h.clients[u] {
			select {
			case c.send <- ev:
				n++
			default:
				h.log.Debug("realtime buffer full, event skipped", zap.String("user", u.Hex()))
			}
		}
	}
	return n
}

// Connections returns the number of open connections on this instance.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Close ends every connection. New upgrades are refused afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()
	for _, c := range all {
		h.unregister(c)
	}
}
