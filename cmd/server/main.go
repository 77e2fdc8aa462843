package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk-realtime-api/internal/auth"
	"helpdesk-realtime-api/internal/broadcast"
	"helpdesk-realtime-api/internal/config"
	"helpdesk-realtime-api/internal/database"
	"helpdesk-realtime-api/internal/gateway"
	"helpdesk-realtime-api/internal/handlers"
	"helpdesk-realtime-api/internal/logging"
	"helpdesk-realtime-api/internal/metrics"
	"helpdesk-realtime-api/internal/presence"
	"helpdesk-realtime-api/internal/realtime"
	"helpdesk-realtime-api/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger level comes from config, so fall back to the default one here
		logging.New("info").Fatal("invalid configuration", zap.Error(err))
	}

	log := logging.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init database
	db, err := database.InitDB(cfg.Database.Path, cfg.Log.Level, log)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	tokens := auth.NewTokens(cfg.JWT)
	verifier := auth.NewCachingVerifier(tokens, time.Minute, 10000)

	registry := presence.NewRegistry()
	sampler := metrics.NewSampler()
	hub := realtime.NewHub()

	var mirror presence.Mirror = presence.NopMirror{}
	var cluster handlers.PresenceLookup
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		redisMirror := presence.NewRedisMirror(rdb, cfg.NodeID, cfg.Redis.PresenceTTL)
		mirror, cluster = redisMirror, redisMirror
		log.Info("presence mirror enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var relay *broadcast.NATSRelay
	if cfg.NATS.URL != "" {
		nc, err := broadcast.ConnectNATS(cfg.NATS.URL, cfg.NodeID)
		if err != nil {
			log.Fatal("nats connect failed", zap.Error(err))
		}
		defer nc.Close()
		relay = broadcast.NewNATSRelay(nc, hub, cfg.NATS.SubjectPrefix, log)
		if err := relay.Subscribe(nc); err != nil {
			log.Fatal("nats subscribe failed", zap.Error(err))
		}
		defer func() { _ = relay.Close() }()
		log.Info("nats relay enabled", zap.String("url", cfg.NATS.URL), zap.String("prefix", cfg.NATS.SubjectPrefix))
	}
	out := newBroadcasters(hub, relay, log)

	gw := gateway.New(gateway.Deps{
		Verifier:    verifier,
		Registry:    registry,
		Sampler:     sampler,
		Rooms:       hub,
		Broadcaster: out.cluster,
		Mirror:      mirror,
		AuthTimeout: cfg.WebSocket.AuthTimeout,
		Log:         log.Named("gateway"),
	})

	reporter := metrics.NewReporter(sampler, registry, out.local, mirror, cfg.Metrics.Interval, log.Named("metrics"))
	go reporter.Run(ctx)

	// Setup the routes (public and protected routes)
	ginRoutes := routes.SetupRoutes(routes.Deps{
		DB:        db,
		Tokens:    tokens,
		Verifier:  verifier,
		Registry:  registry,
		Sampler:   sampler,
		Presence:  cluster,
		Notifier:  out.cluster,
		WebSocket: handlers.NewWebSocketHandler(ctx, gw, cfg.WebSocket, log.Named("ws")),
		Log:       log.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           ginRoutes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("node_id", cfg.NodeID),
			zap.Strings("endpoints", []string{
				"POST   /api/login",
				"GET    /api/notifications",
				"POST   /api/notifications",
				"PATCH  /api/notifications/:id/read",
				"POST   /api/alerts",
				"GET    /network/stats",
				"GET    /network/health",
				"GET    /network/connections",
				"GET    /network/presence/:userId",
				"GET    /ws",
				"GET    /health",
			}))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
