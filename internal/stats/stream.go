package stats

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"carbon-exchange/marketplace-backend/internal/market"
)

const (
	writeWait      = 10 * time.Second
	defaultRefresh = 5 * time.Second
)

// Hub pushes fresh market snapshots to websocket subscribers on a fixed
// interval, replacing the demo frontend's poll loop.
type Hub struct {
	aggregator *Aggregator
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	refresh    time.Duration

	mu          sync.RWMutex
	closed      bool
	connections map[*connection]bool

	stop chan struct{}
	once sync.Once
}

type connection struct {
	conn *websocket.Conn
	send chan market.MarketSnapshot
}

// NewHub creates a snapshot hub.  refresh <= 0 uses the default interval.
func NewHub(aggregator *Aggregator, refresh time.Duration, logger *zap.Logger) *Hub {
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	return &Hub{
		aggregator:  aggregator,
		logger:      logger,
		refresh:     refresh,
		connections: make(map[*connection]bool),
		stop:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The demo frontend is served from a different origin.
				return true
			},
		},
	}
}

// Run recomputes and broadcasts snapshots until the context is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.broadcast(h.aggregator.Snapshot(ctx))
		case <-ctx.Done():
			h.Close()
			return
		case <-h.stop:
			return
		}
	}
}

func (h *Hub) broadcast(snapshot market.MarketSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		select {
		case c.send <- snapshot:
		default:
			// Slow subscriber; drop this tick rather than block the hub.
		}
	}
}

// HandleConnection upgrades an HTTP request and serves snapshots until the
// client goes away.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &connection{conn: ws, send: make(chan market.MarketSnapshot, 4)}
	snapshot := h.aggregator.Snapshot(r.Context())

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ws.Close()
		return
	}
	h.connections[c] = true
	// Prime the subscriber with the current view.  The channel is buffered
	// and freshly made, so this never blocks; queueing it before the lock is
	// released means Close can only see the connection with the priming
	// snapshot already enqueued.
	c.send <- snapshot
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *connection) {
	defer c.conn.Close()
	for snapshot := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(snapshot); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop discards client frames and detects disconnects.
func (h *Hub) readLoop(c *connection) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[c] {
		delete(h.connections, c)
		close(c.send)
	}
}

// Close disconnects every subscriber and stops the broadcast loop.  Later
// connection attempts are turned away instead of joining a dead hub.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.stop) })

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.connections {
		delete(h.connections, c)
		close(c.send)
		c.conn.Close()
	}
}
