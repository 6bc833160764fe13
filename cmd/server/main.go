package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/piotrgredowski/memes-ranker/internal/auth"
	"github.com/piotrgredowski/memes-ranker/internal/config"
	"github.com/piotrgredowski/memes-ranker/internal/event"
	"github.com/piotrgredowski/memes-ranker/internal/httpapi"
	"github.com/piotrgredowski/memes-ranker/internal/hub"
	"github.com/piotrgredowski/memes-ranker/internal/repo"
	"github.com/piotrgredowski/memes-ranker/internal/reveal"
	"github.com/piotrgredowski/memes-ranker/internal/session"
)

const pingInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var logger *zap.Logger
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repo.Store
	if cfg.DatabaseURL != "" {
		store, err = repo.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open store", zap.Error(err))
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = repo.NewMemory()
	}

	// Wire hub first, then the dispatcher holding it, then the domain
	// components holding the dispatcher as a listener.
	h := hub.NewHub(ctx, logger)
	dispatcher := event.NewDispatcher(h, store, logger)
	h.SetOnChange(func() { dispatcher.BroadcastConnectionStats(context.Background()) })

	coordinator := session.NewCoordinator(store, logger)
	coordinator.AddListener(dispatcher)

	engine := reveal.NewEngine(store, coordinator, logger)
	engine.AddListener(dispatcher)

	operator, err := auth.NewOperator(cfg.OperatorPassword, cfg.JWTSecret)
	if err != nil {
		logger.Fatal("operator auth", zap.Error(err))
	}
	identity := auth.NewIdentity(store)

	api := httpapi.NewAPI(coordinator, engine, h, operator, identity, cfg, logger)
	server := &http.Server{Addr: cfg.Addr, Handler: httpapi.SetupRoutes(api)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return h.PingLoop(gctx, pingInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Shutdown()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
