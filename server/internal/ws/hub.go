package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nexusboard/nexusboard/pkg/types"
	"github.com/nexusboard/nexusboard/server/internal/auth"
	"github.com/nexusboard/nexusboard/server/internal/session"
)

// minPongWait keeps the ping interval (9/10 of PongWait) well above zero.
const minPongWait = time.Second

var (
	errClosed         = errors.New("ws: connection closed")
	errSendBufferFull = errors.New("ws: send buffer full")
)

// Options configures a Hub.
type Options struct {
	SendBuffer     int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteTimeout   time.Duration

	// RateBurst commands per RateRefill are accepted per client.
	// RateBurst <= 0 disables rate limiting.
	RateBurst  int
	RateRefill time.Duration

	AllowedOrigins []string

	// Verifier, when set, requires a valid board access token on upgrade
	// and binds its claims into Access.
	Verifier *auth.Verifier
	Access   *auth.BoardAccess
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	} else if o.PongWait < minPongWait {
		o.PongWait = minPongWait
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	return o
}

// Hub accepts WebSocket clients and bridges them to gateway sessions.
type Hub struct {
	sessions *session.Handler
	opts     Options
	origins  *originPolicy
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// New creates a Hub that opens a session on sessions for every client.
func New(sessions *session.Handler, opts Options) *Hub {
	opts = opts.withDefaults()
	h := &Hub{
		sessions: sessions,
		opts:     opts,
		origins:  newOriginPolicy(opts.AllowedOrigins),
		clients:  make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.origins.check,
	}
	return h
}

// SetAllowedOrigins replaces the origin allow-list for new upgrades.
func (h *Hub) SetAllowedOrigins(origins []string) {
	h.origins.set(origins)
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the request and serves the client until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var claims *auth.Claims
	if h.opts.Verifier != nil {
		var err error
		claims, err = h.opts.Verifier.Verify(auth.TokenFromRequest(r))
		if err != nil {
			slog.Warn("ws: rejected upgrade", "remote", r.RemoteAddr, "err", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		slog.Debug("ws: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newClient(uuid.NewString(), conn, h.opts)
	h.register(c)
	if claims != nil && h.opts.Access != nil {
		h.opts.Access.Bind(c.id, claims)
	}
	sess := h.sessions.Open(c)

	defer func() {
		sess.Close()
		if h.opts.Access != nil {
			h.opts.Access.Forget(c.id)
		}
		h.unregister(c)
	}()

	go c.writePump()
	c.readPump(sess) // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.close()
	}
	slog.Info("ws: closed all clients", "count", len(targets))
}

// client is one WebSocket connection. It implements registry.Conn.
type client struct {
	id      string
	conn    *websocket.Conn
	opts    Options
	limiter *rateLimiter

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, conn *websocket.Conn, opts Options) *client {
	var limiter *rateLimiter
	if opts.RateBurst > 0 {
		limiter = newRateLimiter(opts.RateBurst, opts.RateRefill)
	}
	return &client{
		id:      id,
		conn:    conn,
		opts:    opts,
		limiter: limiter,
		send:    make(chan []byte, opts.SendBuffer),
	}
}

func (c *client) ID() string { return c.id }

// Send queues msg without blocking.
func (c *client) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

// close stops the write pump; it is safe to call more than once.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drains the send queue to the socket and sends periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)) //nolint:errcheck
			if !ok {
				// Queue closed: client removed or hub shutting down.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("ws: write failed", "conn_id", c.id, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump feeds inbound frames to sess until the connection closes.
func (c *client) readPump(sess *session.Session) {
	defer c.conn.Close()
	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if c.limiter != nil && !c.limiter.allow() {
			sess.Reject(types.RateLimited())
			continue
		}
		sess.Handle(raw) //nolint:errcheck // already replied to the client
	}
}

func (c *client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		slog.Warn("ws: frame exceeded size limit", "conn_id", c.id, "limit", c.opts.MaxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		slog.Debug("ws: client closed", "conn_id", c.id)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		slog.Warn("ws: unexpected close", "conn_id", c.id, "err", err)
	default:
		slog.Debug("ws: read ended", "conn_id", c.id, "err", err)
	}
}
