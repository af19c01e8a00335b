// Package wstransport carries bridge frames over a WebSocket. It serves
// development setups where the host runs in another process, such as the
// miniapp simulator.
package wstransport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/go-drift/miniapp/pkg/errors"
)

const (
	// WriteWait bounds a single write.
	WriteWait = 10 * time.Second
	// PongWait is how long the peer may stay silent.
	PongWait = 60 * time.Second
	// PingPeriod must be shorter than PongWait.
	PingPeriod = (PongWait * 9) / 10
	// MaxMessageSize caps inbound frames.
	MaxMessageSize = 64 << 10

	sendBuffer = 256
)

// ErrSendBufferFull is returned when the peer is not draining frames.
var ErrSendBufferFull = errors.New("wstransport: send buffer full")

type config struct {
	log       *zap.Logger
	readLimit int64
}

// Option configures a Conn.
type Option func(*config)

// WithLogger logs connection lifecycle at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithReadLimit overrides MaxMessageSize.
func WithReadLimit(n int64) Option {
	return func(c *config) { c.readLimit = n }
}

// Conn adapts a WebSocket connection to bridge.Transport. Every text
// message is one frame.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	log  *zap.Logger

	readOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}

	mu      sync.Mutex
	handler func([]byte)
	err     error
}

// New wraps an established connection and starts its write pump. Reading
// starts with the first OnReceive.
func New(ws *websocket.Conn, opts ...Option) *Conn {
	cfg := config{log: zap.NewNop(), readLimit: MaxMessageSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	ws.SetReadLimit(cfg.readLimit)
	c := &Conn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		log:  cfg.log.With(zap.String("remote", ws.RemoteAddr().String())),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Dial connects to a host at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wstransport: dial %s: %w", url, err)
	}
	return New(ws, opts...), nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Upgrade accepts a WebSocket handshake on an HTTP request.
func Upgrade(w http.ResponseWriter, r *http.Request, opts ...Option) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("wstransport: upgrade: %w", err)
	}
	return New(ws, opts...), nil
}

// Send queues frame for the write pump without blocking.
func (c *Conn) Send(frame []byte) error {
	buf := make([]byte, len(frame))
	copy(buf, frame)
	select {
	case <-c.done:
		return fmt.Errorf("wstransport: %w", errors.ErrClosed)
	default:
	}
	select {
	case c.send <- buf:
		return nil
	case <-c.done:
		return fmt.Errorf("wstransport: %w", errors.ErrClosed)
	default:
		return ErrSendBufferFull
	}
}

// OnReceive sets the frame handler and starts reading. The handler runs
// on the read goroutine.
func (c *Conn) OnReceive(handler func([]byte)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
	c.readOnce.Do(func() { go c.readPump() })
}

// Close sends a close frame and releases the connection.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

// Done is closed once the connection is gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the connection, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
		if err != nil {
			c.log.Debug("connection lost", zap.Error(err))
		}
	})
}

func (c *Conn) readPump() {
	defer c.ws.Close()

	c.ws.SetReadDeadline(time.Now().Add(PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		kind, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.shutdown(err)
			} else {
				c.shutdown(nil)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(raw)
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.shutdown(err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown(err)
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
