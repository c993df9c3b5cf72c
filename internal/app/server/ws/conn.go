package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Options carries the transport tuning from config.Broker.
type Options struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	WriteTimeout      time.Duration
	SendBuffer        int
	MaxMessageSize    int64
}

// WebSocket wraps one upgraded gorilla connection with deadline and
// heartbeat plumbing. Absence of a pong (or any read) within the
// heartbeat window makes ReadMessage fail, which tears the connection
// down through the same path as an explicit close.
type WebSocket struct {
	*websocket.Conn
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWebSocket(parent context.Context, conn *websocket.Conn, opts Options) *WebSocket {
	ctx, cancel := context.WithCancel(parent)
	w := &WebSocket{Conn: conn, opts: opts, ctx: ctx, cancel: cancel}
	conn.SetReadLimit(opts.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(opts.HeartbeatTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.HeartbeatTimeout))
	})
	return w
}

func (w *WebSocket) WriteFrame(data []byte) error {
	_ = w.Conn.SetWriteDeadline(time.Now().Add(w.opts.WriteTimeout))
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WebSocket) Ping() error {
	_ = w.Conn.SetWriteDeadline(time.Now().Add(w.opts.WriteTimeout))
	return w.Conn.WriteMessage(websocket.PingMessage, nil)
}

// ReadLoop delivers inbound frames to onFrame until the connection
// errors, times out, or closes. Any read refreshes the liveness window.
func (w *WebSocket) ReadLoop(log *slog.Logger, onFrame func([]byte)) {
	defer w.Close()
	for {
		_, data, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("ws - read loop - unexpected close", "err", err)
			}
			return
		}
		_ = w.Conn.SetReadDeadline(time.Now().Add(w.opts.HeartbeatTimeout))
		if len(data) > 0 {
			onFrame(data)
		}
	}
}

func (w *WebSocket) Close() {
	w.cancel()
	_ = w.Conn.Close()
}
