package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/presence-service/config"
	"github.com/cwrk-planet/presence-service/internal/postgres"
	"github.com/cwrk-planet/presence-service/internal/presence"
	"github.com/cwrk-planet/presence-service/internal/redis"
	"github.com/cwrk-planet/presence-service/internal/security"
	httpx "github.com/cwrk-planet/presence-service/internal/transport/http"
	"github.com/cwrk-planet/presence-service/internal/transport/ws"
	"github.com/cwrk-planet/presence-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	lg.Info("starting presence-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "positions", cfg.Positions.Backend)

	// --- postgres ---
	ctx := context.Background()
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(cfg.Postgres.DSN, lg); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:               cfg.Postgres.DSN,
		MaxConns:          cfg.Postgres.MaxConns,
		MinConns:          cfg.Postgres.MinConns,
		MaxConnLifetime:   cfg.Postgres.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Postgres.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Postgres.HealthCheckPeriod,
		ApplicationName:   cfg.Postgres.ApplicationName,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	deps := map[string]httpx.Pinger{
		"postgres": httpx.PingFunc(func(ctx context.Context) error { return postgres.Ping(ctx, pool) }),
	}

	// --- repos ---
	var positions presence.PositionStore = postgres.NewPositionRepository(pool)
	if cfg.Positions.Backend == "redis" {
		rdb, err := redis.NewClient(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer func() { _ = rdb.Close() }()

		positions = redis.NewPositionStore(rdb)
		deps["redis"] = httpx.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	// --- presence hub & WS ---
	hub := presence.NewHub(presence.Deps{
		Auth:      security.NewTokenVerifier(cfg.Auth.JWTSecret),
		Spaces:    postgres.NewSpaceRepository(pool),
		Accounts:  postgres.NewAccountRepository(pool),
		Positions: positions,
		Logger:    lg.With("component", "presence"),
	}, presence.Options{
		SaveInterval:    cfg.Presence.SaveInterval,
		SaveTimeout:     cfg.Presence.SaveTimeout,
		ProximityRadius: cfg.Presence.ProximityRadius,
		TileSize:        cfg.Presence.TileSize,
		MaxChatLength:   cfg.Presence.MaxChatLength,
	})
	wsServer := ws.NewServer(hub, lg.With("component", "ws"), ws.Options{
		PingEvery:    cfg.WS.PingEvery,
		WriteTimeout: cfg.WS.WriteTimeout,
		ReadLimit:    cfg.WS.ReadLimit,
		SendBuffer:   cfg.WS.SendBuffer,
	})

	// --- HTTP ---
	router := httpx.NewRouter(httpx.Deps{
		Handler:        httpx.NewHandler(hub, deps),
		WS:             wsServer.HandleWS,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         lg.With("component", "http"),
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		lg.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Shutdown не ждёт hijacked WS-соединения, их закрывает hub
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		lg.Warn("http shutdown", "err", err)
	}
	hub.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
