package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"spotwatch/internal/domain/models"
	"spotwatch/internal/engine"
	xlogger "spotwatch/pkg/logger"
)

// StatusHub pushes status transitions to websocket subscribers. It
// implements TransitionListener, so the engine fans transitions into it
// like any other sink.
type StatusHub struct {
	logger   *xlogger.Logger
	snap     *engine.Snapshot
	symbol   string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewStatusHub(logger *xlogger.Logger, snap *engine.Snapshot, symbol string) *StatusHub {
	return &StatusHub{
		logger:  logger,
		snap:    snap,
		symbol:  symbol,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *StatusHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/status", h.Subscribe)
}

// Subscribe upgrades the connection and sends the current status before any
// transition, so a subscriber never starts blind.
func (h *StatusHub) Subscribe(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	hello := models.StatusTransition{
		Symbol: h.symbol,
		From:   h.snap.Status(),
		To:     h.snap.Status(),
	}
	if r, ok := h.snap.LastReading(); ok {
		hello.Price = r.Price
		hello.ObservedAt = r.ObservedAt
	}
	// Register only after the hello write: the broadcaster must never
	// interleave with it on the same connection.
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("ws subscriber connected", xlogger.Int("subscribers", n))

	// Reads only serve to detect the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
	return nil
}

// OnTransition broadcasts a transition to every subscriber. A failed write
// drops that subscriber; the rest still get the message.
func (h *StatusHub) OnTransition(_ context.Context, tr models.StatusTransition) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(tr); err != nil {
			h.drop(c)
		}
	}
}

// Close disconnects all subscribers.
func (h *StatusHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

func (h *StatusHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	h.mu.Unlock()
}
