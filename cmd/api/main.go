package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salesops/leadhub/internal/auth"
	"github.com/salesops/leadhub/internal/config"
	"github.com/salesops/leadhub/internal/db"
	httpx "github.com/salesops/leadhub/internal/http"
	"github.com/salesops/leadhub/internal/observability"
	redisclient "github.com/salesops/leadhub/internal/redis"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env, "leadhub")

	// tracing
	shutdownTracer, err := observability.InitTracer(context.Background(), "leadhub", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// database pool
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("could not connect to database", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	// seed a fresh database
	seedCtx, cancelSeed := config.WithTimeout(30 * time.Second)

	if cfg.SeedDemoData {
		if err := db.SeedDemoData(seedCtx, pool, cfg); err != nil {
			log.Error("demo seed failed", "err", err)
			cancelSeed()
			os.Exit(1)
		}
	}

	if err := db.EnsureAdminUser(seedCtx, pool, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		cancelSeed()
		os.Exit(1)
	}

	cancelSeed()

	// redis backs the login rate limiter
	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer rdb.Close()

	pingCtx, cancelPing := config.WithTimeout(2 * time.Second)

	if err := rdb.Ping(pingCtx); err != nil {
		log.Warn("redis unavailable, rate limiting degrades to fail-open", "err", err)
	}

	cancelPing()

	// metrics land in the default registry, served at /metrics
	prom := observability.NewProm(prometheus.DefaultRegisterer)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	// set up routers with the log
	router := httpx.NewRouter(cfg, log, pool, jwtManager, rdb, prom)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
