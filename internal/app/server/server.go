package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ZhanWeiKai/eatwhat/internal/app/registry"
	"github.com/ZhanWeiKai/eatwhat/internal/app/server/handlers"
	"github.com/ZhanWeiKai/eatwhat/internal/app/server/sse"
	"github.com/ZhanWeiKai/eatwhat/internal/app/server/ws"
	"github.com/ZhanWeiKai/eatwhat/internal/config"
	"github.com/ZhanWeiKai/eatwhat/internal/core/services"
	"github.com/ZhanWeiKai/eatwhat/pkg/middleware"
)

type Server struct {
	mux           *http.ServeMux
	log           *slog.Logger
	cfg           *config.Config
	httpSrv       *http.Server
	authHandler   *handlers.AuthHandler
	friendHandler *handlers.FriendHandler
	pushHandler   *handlers.PushHandler
	dishHandler   *handlers.DishHandler
	wsHandler     *handlers.WSHandler
	sseHandler    *handlers.SSEHandler
	chatHandler   *handlers.ChatHandler
	tokenSvc      *services.TokenService
}

func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	userSvc *services.UserService,
	tokenSvc *services.TokenService,
	friendSvc *services.FriendService,
	pushSvc *services.PushService,
	dishSvc *services.DishService,
	chatSvc *services.ChatService,
	presenceSvc *services.PresenceService,
	hub *registry.Registry,
	streams *sse.Server,
) *Server {
	wsOpts := ws.Options{
		HeartbeatInterval: cfg.Broker.HeartbeatInterval,
		HeartbeatTimeout:  cfg.Broker.HeartbeatTimeout,
		WriteTimeout:      cfg.Broker.WriteTimeout,
		SendBuffer:        cfg.Broker.SendBuffer,
		MaxMessageSize:    cfg.Broker.MaxMessageSize,
	}
	s := &Server{
		mux:           http.NewServeMux(),
		log:           log,
		cfg:           cfg,
		authHandler:   handlers.NewAuthHandler(userSvc, tokenSvc),
		friendHandler: handlers.NewFriendHandler(friendSvc),
		pushHandler:   handlers.NewPushHandler(pushSvc),
		dishHandler:   handlers.NewDishHandler(dishSvc),
		wsHandler:     handlers.NewWSHandler(hub, presenceSvc, wsOpts),
		sseHandler:    handlers.NewSSEHandler(streams, chatSvc),
		chatHandler:   handlers.NewChatHandler(chatSvc),
		tokenSvc:      tokenSvc,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)

	// Public routes.
	s.mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	s.mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	// Protected routes: the middleware resolves the JWT 'sub' into the
	// request context before any registry mutation can happen.
	s.mux.Handle("POST /auth/logout", auth(http.HandlerFunc(s.authHandler.Logout)))
	s.mux.Handle("GET /auth/me", auth(http.HandlerFunc(s.authHandler.Me)))

	s.mux.Handle("GET /friends", auth(http.HandlerFunc(s.friendHandler.List)))
	s.mux.Handle("POST /friends", auth(http.HandlerFunc(s.friendHandler.Add)))
	s.mux.Handle("DELETE /friends/{id}", auth(http.HandlerFunc(s.friendHandler.Remove)))

	s.mux.Handle("GET /pushes", auth(http.HandlerFunc(s.pushHandler.List)))
	s.mux.Handle("POST /pushes", auth(http.HandlerFunc(s.pushHandler.Create)))
	s.mux.Handle("DELETE /pushes/{id}", auth(http.HandlerFunc(s.pushHandler.Delete)))

	s.mux.Handle("GET /dishes", auth(http.HandlerFunc(s.dishHandler.ListDishes)))
	s.mux.Handle("POST /dishes", auth(http.HandlerFunc(s.dishHandler.CreateDish)))
	s.mux.Handle("PUT /dishes/{id}", auth(http.HandlerFunc(s.dishHandler.UpdateDish)))
	s.mux.Handle("DELETE /dishes/{id}", auth(http.HandlerFunc(s.dishHandler.DeleteDish)))
	s.mux.Handle("GET /categories", auth(http.HandlerFunc(s.dishHandler.ListCategories)))
	s.mux.Handle("POST /categories", auth(http.HandlerFunc(s.dishHandler.CreateCategory)))
	s.mux.Handle("DELETE /categories/{id}", auth(http.HandlerFunc(s.dishHandler.DeleteCategory)))

	s.mux.Handle("POST /ai/chat", auth(http.HandlerFunc(s.chatHandler.Chat)))

	// Live channels. Websocket and SSE clients cannot always set headers,
	// so the auth middleware also accepts ?token=.
	s.mux.Handle("GET /ws", auth(http.HandlerFunc(s.wsHandler.Handler)))
	s.mux.Handle("GET /ws/stats", auth(http.HandlerFunc(s.wsHandler.Stats)))
	s.mux.Handle("GET /sse/connect", auth(http.HandlerFunc(s.sseHandler.Connect)))
	s.mux.Handle("POST /sse/chat", auth(http.HandlerFunc(s.sseHandler.Chat)))
	s.mux.Handle("GET /sse/stats", auth(http.HandlerFunc(s.sseHandler.Stats)))
}

func (s *Server) Start() error {
	handler := middleware.RequestLogger(s.log)(
		middleware.TracerMiddleware(s.cfg.Service.Name)(s.mux),
	)
	// No global read/write timeouts: websocket connections are hijacked
	// and SSE responses stay open far longer than any sane write budget.
	// Per-connection deadlines are enforced by the ws transport itself.
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Service.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.log.Info("server - starting", "addr", s.cfg.Service.Addr)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
