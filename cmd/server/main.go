package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heartlink/discovery/internal/app"
	"github.com/heartlink/discovery/internal/async"
	"github.com/heartlink/discovery/internal/cache"
	"github.com/heartlink/discovery/internal/config"
	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/fame"
	"github.com/heartlink/discovery/internal/geo"
	"github.com/heartlink/discovery/internal/logger"
	"github.com/heartlink/discovery/internal/repository"
	"github.com/heartlink/discovery/internal/server"
	"github.com/heartlink/discovery/internal/service/discovery"
	"github.com/heartlink/discovery/internal/service/notification"
	"github.com/heartlink/discovery/internal/service/profile"
	"github.com/heartlink/discovery/internal/service/relationship"
	"github.com/heartlink/discovery/internal/session"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Worker pool for fame recomputes and push fan-out
	pool, err := async.New(cfg.Async.PoolSize, cfg.Async.TaskTimeout, log)
	if err != nil {
		log.Error("failed to init worker pool", "err", err)
		return
	}
	defer pool.Release()

	hub := session.NewHub()
	geocoder := geo.NewHTTPGeocoder(cfg)

	appCtx := app.New(database, redisCache, log, pool, hub, geocoder)

	userRepo := repository.NewUserRepository(database)
	aggregator := fame.NewAggregator(userRepo, userRepo, pool, log)
	dispatcher := notification.NewDispatcher(appCtx)

	registrars := []server.Registrar{
		discovery.NewService(appCtx),
		relationship.NewService(appCtx, dispatcher, aggregator),
		notification.NewService(appCtx),
		profile.NewService(appCtx),
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	srv := server.New(appCtx, cfg, hub, registrars...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("http server failed", "err", err)
		}
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Shutdown()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown failed", "err", err)
		}
	}
}
