package ws

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrConnClosed = errors.New("connection closed")

// ClientConn is the registry-facing handle for one connected user. All
// frames go through a buffered out channel drained by a single write
// pump, so sends on one connection are never interleaved and a slow
// client never blocks the caller past queue capacity.
type ClientConn struct {
	ctx        context.Context
	cancel     context.CancelFunc
	ws         *WebSocket
	userID     string
	out        chan []byte
	once       sync.Once
	mu         sync.Mutex
	lastActive time.Time
}

func NewClientConn(parent context.Context, ws *WebSocket, userID string) *ClientConn {
	ctx, cancel := context.WithCancel(parent)
	c := &ClientConn{
		ctx:        ctx,
		cancel:     cancel,
		ws:         ws,
		userID:     userID,
		out:        make(chan []byte, ws.opts.SendBuffer),
		lastActive: time.Now(),
	}
	go c.writeLoop()
	return c
}

func (c *ClientConn) UserID() string { return c.userID }

func (c *ClientConn) Touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

func (c *ClientConn) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Send enqueues a frame without blocking on the network. A full queue is
// treated the same as a dead connection.
func (c *ClientConn) Send(ctx context.Context, frame []byte) error {
	select {
	case <-c.ctx.Done():
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.out <- frame:
		return nil
	default:
		return errors.New("send queue full")
	}
}

func (c *ClientConn) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *ClientConn) writeLoop() {
	ticker := time.NewTicker(c.ws.opts.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame := <-c.out:
			if err := c.ws.WriteFrame(frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.Ping(); err != nil {
				return
			}
		}
	}
}
