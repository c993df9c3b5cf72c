package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ZhanWeiKai/eatwhat/internal/app/registry"
	"github.com/ZhanWeiKai/eatwhat/internal/app/server"
	"github.com/ZhanWeiKai/eatwhat/internal/app/server/sse"
	"github.com/ZhanWeiKai/eatwhat/internal/app/worker"
	"github.com/ZhanWeiKai/eatwhat/internal/config"
	"github.com/ZhanWeiKai/eatwhat/internal/core/services"
	"github.com/ZhanWeiKai/eatwhat/internal/platform/logger"
	"github.com/ZhanWeiKai/eatwhat/internal/platform/telemetry"
	"github.com/ZhanWeiKai/eatwhat/internal/plugins/openai"
	"github.com/ZhanWeiKai/eatwhat/internal/plugins/postgres"
	redisPlugin "github.com/ZhanWeiKai/eatwhat/internal/plugins/redis"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	defer pdb.Close()
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	defer rdb.Close()
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepository(pdb)
	friendRepo := postgres.NewFriendshipRepo(pdb)
	pushRepo := postgres.NewPushRepo(pdb)
	dishRepo := postgres.NewDishRepo(pdb)
	presStore := redisPlugin.NewRedisPresenceStore(rdb)
	fanoutQueue := redisPlugin.NewRedisFanoutQueue(log, rdb)
	aiClient := openai.NewClient(*cfg.AI)

	// Live channels
	hub := registry.NewRegistry(log)
	streams := sse.NewServer(log, *cfg.Stream)

	// Core services
	txManager := services.NewTxManager(log, pdb)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	presenceSvc := services.NewPresenceService(log, userRepo, presStore, hub)
	userSvc := services.NewUserService(log, userRepo, presenceSvc)
	friendSvc := services.NewFriendService(log, friendRepo, userRepo, presStore)
	pushSvc := services.NewPushService(log, pushRepo, userRepo, friendSvc, fanoutQueue, hub, txManager)
	dishSvc := services.NewDishService(log, dishRepo)
	chatSvc := services.NewChatService(log, aiClient, streams)

	// Delivery worker
	wrkr := worker.NewPushDeliveryWorker(log, fanoutQueue, pushSvc, cfg.Worker.FanoutGroup)
	go func() {
		if err := wrkr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("push delivery worker stopped", "err", err)
		}
	}()

	// Server
	srv := server.NewServer(log, cfg, userSvc, tokenSvc, friendSvc, pushSvc, dishSvc, chatSvc, presenceSvc, hub, streams)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "err", err)
		}
	}()
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "err", err)
	}
	log.Info("application stopped")
}
