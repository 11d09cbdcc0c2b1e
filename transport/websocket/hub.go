package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/gomoku-server/game/lobby"
	"go.uber.org/zap"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Options tune the websocket transport.
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int

	// Maximum message size allowed from peer.
	MaxMessageSize int64

	// Outbound frames queued per client before it is dropped.
	SendBuffer int

	// Time allowed to write a message to the peer.
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration

	// Send pings to peer with this period. Must be less than PongWait.
	PingPeriod time.Duration

	// Origins allowed to connect. Empty allows every origin.
	AllowedOrigins []string
}

// DefaultOptions returns the transport defaults.
func DefaultOptions() Options {
	pongWait := 60 * time.Second
	return Options{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  64 * 1024,
		SendBuffer:      256,
		WriteWait:       10 * time.Second,
		PongWait:        pongWait,
		PingPeriod:      (pongWait * 9) / 10,
	}
}

// Client is one websocket connection. It is the lobby.Handle for that
// connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   lobby.ConnID

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// ID returns the connection identifier.
func (c *Client) ID() lobby.ConnID {
	return c.id
}

// Send queues payload for the write pump without blocking. A client that
// cannot keep up is disconnected, which surfaces as its own close.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		if c.conn != nil {
			c.conn.Close()
		}
		return ErrSendBufferFull
	}
}

// closeSend stops the write pump after it drains the queue.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub upgrades connections, hands them to the lobby, and tracks the set of
// live clients.
type Hub struct {
	lobby    *lobby.Lobby
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	count atomic.Int64
	done  chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub(l *lobby.Lobby, opts Options, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Hub{
		lobby:      l,
		opts:       opts,
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// Run starts the hub's event loop. On shutdown every client is asked to
// close.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			for client := range h.clients {
				h.unregisterClient(client)
			}
			return nil
		}
	}
}

// Count returns the number of live websocket clients.
func (h *Hub) Count() int {
	return int(h.count.Load())
}

// ServeWS upgrades the request and admits the connection to the lobby.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metricUpgradeFailures.Inc()
		h.logger.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		id:   lobby.NewConnID(),
		send: make(chan []byte, h.opts.SendBuffer),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	adm, err := h.lobby.Admit(r.Context(), client.id, client)
	if err != nil {
		h.logger.Error("admit connection", zap.String("conn", string(client.id)), zap.Error(err))
		h.unregisterLater(client)
		conn.Close()
		return
	}

	h.logger.Debug("connection admitted",
		zap.String("conn", string(client.id)),
		zap.String("session", adm.SessionID),
		zap.Stringer("role", adm.Role),
		zap.String("remote", r.RemoteAddr))

	go client.writePump()
	go client.readPump()
}

// registerClient adds a client to the live set
func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.count.Store(int64(len(h.clients)))
	metricConnections.Set(float64(len(h.clients)))
}

// unregisterClient removes a client and stops its write pump
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
		h.count.Store(int64(len(h.clients)))
		metricConnections.Set(float64(len(h.clients)))
	}
}

func (h *Hub) unregisterLater(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, u.Host) || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// readPump relays frames from the connection to the lobby until the
// connection fails, then closes the connection's session exactly once.
func (c *Client) readPump() {
	defer func() {
		if err := c.hub.lobby.Close(context.Background(), c.id); err != nil {
			c.hub.logger.Debug("lobby close", zap.String("conn", string(c.id)), zap.Error(err))
		}
		c.hub.unregisterLater(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.String("conn", string(c.id)), zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			metricIgnoredFrames.Inc()
			continue
		}

		if err := c.hub.lobby.Relay(context.Background(), c.id, message); err != nil {
			c.hub.logger.Debug("relay", zap.String("conn", string(c.id)), zap.Error(err))
			break
		}
	}
}

// writePump writes one text frame per queued payload and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
