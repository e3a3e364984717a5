package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FuelPhases/internal/domain/models"
	"FuelPhases/internal/service/metrics"
	"FuelPhases/internal/usecase"
	xhttp "FuelPhases/pkg/http"
	applogger "FuelPhases/pkg/logger"
)

// MessageTypePhaseComputed tags computed-event frames.
const MessageTypePhaseComputed = "phase_computed"

// Message is the frame written to stream clients.
type Message struct {
	Type string                `json:"type"`
	Data *models.PhaseComputed `json:"data"`
}

// Hub fans computed events out to websocket subscribers. Slow clients lose
// messages instead of blocking the publisher.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	sendBuf  int
	l        *applogger.Logger
}

var (
	_ usecase.Notifier = (*Hub)(nil)
	_ xhttp.Handler    = (*Hub)(nil)
)

type Option func(*Hub)

// WithSendBuffer sets the per-client outbound queue length.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuf = n
		}
	}
}

// WithCheckOrigin replaces the default same-origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

func WithLogger(l *applogger.Logger) Option {
	return func(h *Hub) { h.l = l }
}

func NewHub(opts ...Option) *Hub {
	metrics.Register()
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		sendBuf: 64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/market-phases", h.Serve)
}

// Serve upgrades the request. An optional ?fuel= restricts the stream to one fuel.
func (h *Hub) Serve(c echo.Context) error {
	fuel := c.QueryParam("fuel")
	if fuel != "" && !isFuel(fuel) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unknown fuel %q", fuel))
	}

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("stream is shutting down"))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		if h.l != nil {
			h.l.Warn("stream upgrade failed", applogger.Error(err))
		}
		return nil
	}

	cl := &client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, h.sendBuf),
		id:          uuid.NewString(),
		fuel:        fuel,
		connectedAt: time.Now(),
	}
	if !h.register(cl) {
		_ = conn.Close()
		return nil
	}
	if h.l != nil {
		h.l.Info("stream client connected",
			applogger.String("client_id", cl.id),
			applogger.String("fuel", fuel),
			applogger.String("remote", c.RealIP()),
		)
	}

	go cl.writePump()
	go cl.readPump()
	return nil
}

// Notify broadcasts ev to every client subscribed to its fuel.
func (h *Hub) Notify(ev *models.PhaseComputed) {
	if ev == nil {
		return
	}
	b, err := json.Marshal(Message{Type: MessageTypePhaseComputed, Data: ev})
	if err != nil {
		if h.l != nil {
			h.l.Error("encode stream message failed", applogger.Error(err))
		}
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		if !cl.wants(ev.Fuel) {
			continue
		}
		select {
		case cl.send <- b:
			metrics.StreamMessages.WithLabelValues(ev.Fuel, "sent").Inc()
		default:
			metrics.StreamMessages.WithLabelValues(ev.Fuel, "dropped").Inc()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
	metrics.StreamClients.Set(0)
}

func (h *Hub) register(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	metrics.StreamClients.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
	metrics.StreamClients.Set(float64(len(h.clients)))
	if h.l != nil {
		h.l.Info("stream client disconnected",
			applogger.String("client_id", cl.id),
			applogger.Duration("connected_for", time.Since(cl.connectedAt)),
		)
	}
}

func isFuel(f string) bool {
	for _, k := range models.Fuels() {
		if k == f {
			return true
		}
	}
	return false
}
