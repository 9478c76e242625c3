package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"optionx/internal/adapter"
	"optionx/internal/adapter/demo"
	"optionx/internal/api"
	"optionx/internal/config"
	"optionx/internal/eventhub"
	"optionx/internal/facade"
	"optionx/internal/queue"
	"optionx/internal/scheduler"
	"optionx/internal/session"
	"optionx/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	sessions := session.NewFileStore(cfg.Security.SessionDBPath, cfg.Security.AESMode, cfg.Security.LookupKeySecret, logger)
	if err := sessions.SetKey([]byte(cfg.Security.EncryptionKey)); err != nil {
		logger.Fatal("failed to initialize session store", zap.Error(err))
	}

	hub := eventhub.New(256, logger)

	ctx, cancelScheduler := context.WithCancel(context.Background())
	sched := scheduler.New(ctx, logger)

	// The demo adapter stands in for a real platform binding; swap in a
	// concrete implementation of adapter.PlatformAdapter to trade live.
	// PlaceTrade is throttled to the platform's own API rate limit
	// regardless of which adapter is behind it.
	demoAdapter := demo.New()
	platform := adapter.NewRateLimited(demoAdapter, cfg.Platform.PlaceTradeRate, cfg.Platform.PlaceTradeBurst)

	if cfg.Platform.TickFeedURL != "" {
		go func() {
			if err := demoAdapter.UseWebsocketFeed(ctx, cfg.Platform.TickFeedURL, logger); err != nil && ctx.Err() == nil {
				logger.Warn("tick feed stopped", zap.Error(err))
			}
		}()
	}

	f := facade.New(platform, hub, sched, queue.Config{
		OrderIntervalMS:     cfg.Queue.OrderIntervalMS,
		OrderQueueTimeoutMS: cfg.Queue.OrderQueueTimeoutSec * 1000,
		MaxTrades:           cfg.Queue.MaxTrades,
	}, logger)

	if err := f.Initialize(ctx); err != nil {
		logger.Fatal("failed to initialize trade execution engine", zap.Error(err))
	}

	// Record this session so a restart can tell a fresh login from a
	// resumed one - the binary-option platforms behind real adapters
	// authorize per email, not per process, so the engine tracks the
	// last-connected timestamp per platform/account the same way.
	platformName := demoAdapter.PlatformType().String()
	const engineAccount = "engine@local.internal"
	if _, err := sessions.Get(platformName, engineAccount); err != nil {
		if err := sessions.Set(platformName, engineAccount, time.Now().UTC().Format(time.RFC3339)); err != nil {
			logger.Warn("failed to record session", zap.Error(err))
		}
	}

	sched.Register("queue-tick", scheduler.Spec{
		Mode:   scheduler.Periodic,
		Period: cfg.Scheduler.QueueTickInterval,
	}, func(_ context.Context, firedAt time.Time) {
		f.Process(firedAt.UnixMilli())
	})

	deps := &api.Dependencies{
		Facade:    f,
		Scheduler: sched,
	}
	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting diagnostics server", zap.String("addr", server.Addr))
		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	cancelScheduler()
	sched.Shutdown()

	if err := f.Shutdown(time.Now().UnixMilli()); err != nil {
		logger.Error("error shutting down trade execution engine", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
