package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZhanWeiKai/eatwhat/internal/app/registry"
	"github.com/ZhanWeiKai/eatwhat/internal/app/server/ws"
	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
	"github.com/ZhanWeiKai/eatwhat/internal/core/services"
	"github.com/ZhanWeiKai/eatwhat/internal/platform/logger"
	"github.com/ZhanWeiKai/eatwhat/pkg/middleware"
	"github.com/ZhanWeiKai/eatwhat/pkg/stomp"
)

type WSHandler struct {
	hub      *registry.Registry
	presence *services.PresenceService
	opts     ws.Options
}

func NewWSHandler(hub *registry.Registry, presence *services.PresenceService, opts ws.Options) *WSHandler {
	return &WSHandler{
		hub:      hub,
		presence: presence,
		opts:     opts,
	}
}

// Handler upgrades the connection and speaks the frame protocol: the
// client sends CONNECT, gets CONNECTED back, and is then registered
// with its two implicit subscriptions (private topic + presence).
// DISCONNECT, transport error, and heartbeat timeout all tear down
// through the same deferred unregister.
func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", "err", err)
		return
	}
	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - ws closed", "user_id", userID)
		cancel()
		return nil
	})
	websock := ws.NewWebSocket(ctx, conn, s.opts)
	client := ws.NewClientConn(ctx, websock, userID)
	defer func() {
		s.hub.Unregister(client)
		client.Close()
	}()
	log.InfoContext(r.Context(), "ws handler - transport open", "user_id", userID)

	connected := false
	websock.ReadLoop(log, func(data []byte) {
		frame, err := stomp.Parse(data)
		if err != nil {
			log.Warn("ws handler - bad frame", "user_id", userID, "err", err)
			s.sendError(ctx, client, err.Error())
			return
		}
		switch frame.Command {
		case stomp.CommandConnect:
			if connected {
				log.Warn("ws handler - duplicate CONNECT ignored", "user_id", userID)
				return
			}
			connected = true
			ack := stomp.NewFrame(stomp.CommandConnected).SetHeader(stomp.HeaderVersion, "1.2")
			if err := client.Send(ctx, ack.Marshal()); err != nil {
				return
			}
			s.hub.Register(client)
			s.presence.Refresh(ctx, userID)
			log.InfoContext(ctx, "ws handler - connection registered", "user_id", userID)
		case stomp.CommandSubscribe:
			// Subscriptions are implicit: every connection already gets
			// its private topic and presence. Only reject attempts to
			// subscribe to someone else's private topic.
			dest := frame.Header(stomp.HeaderDestination)
			if target, isUser := domain.IsUserTopic(dest); isUser && target != userID {
				log.Warn("ws handler - forbidden subscription", "user_id", userID, "destination", dest)
				s.sendError(ctx, client, "cannot subscribe to another user's topic")
				return
			}
			log.Info("ws handler - subscribe", "user_id", userID, "destination", dest)
		case stomp.CommandDisconnect:
			log.Info("ws handler - graceful disconnect", "user_id", userID)
			cancel()
		default:
			s.sendError(ctx, client, "unsupported command")
		}
	})
}

func (s *WSHandler) sendError(ctx context.Context, client *ws.ClientConn, msg string) {
	f := stomp.NewFrame(stomp.CommandError).SetHeader(stomp.HeaderMessage, msg)
	_ = client.Send(ctx, f.Marshal())
}

// Stats reports the live connection count (diagnostic only).
func (s *WSHandler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"connectionCount": s.hub.Size()})
}
