package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"kasa/internal/amqp"
	"kasa/internal/app"
	"kasa/internal/backend"
	"kasa/internal/cache"
	"kasa/internal/cli"
	apphttp "kasa/internal/http"
	klog "kasa/internal/log"
	"kasa/internal/notify"
	"kasa/internal/view"
)

const (
	shutdownTimeout = 30 * time.Second
	reloadTimeout   = 30 * time.Second

	collationCacheSize = 2048
	collationCacheTTL  = time.Hour
	cacheCleanupEvery  = 10 * time.Minute
)

func main() {
	// Load .env file for local development (ignored when missing)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"), "kasa")
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", klog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(klog.For(klog.ComponentBackend)).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", klog.FieldError, err,
			"source", backendCfg.Source.String(),
			"store", backendCfg.Store.String())
		os.Exit(1)
	}

	names := cache.NewLRUCache[string](collationCacheSize, collationCacheTTL)
	caches := cache.NewManager()
	caches.Register(names)
	caches.StartCleanup(cacheCleanupEvery)

	opts := []app.Option{app.WithViewEngine(view.NewEngine(cfg.Locale(), names))}
	if res.Publisher != nil {
		opts = append(opts, app.WithPublisher(res.Publisher))
	} else {
		logger.Warn("Category events disabled - no AMQP publisher available")
	}
	a := app.New(res.Source, notify.NewEngine(res.Store), opts...)

	reload := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
		defer cancel()
		if err := a.Reload(ctx); err != nil {
			logger.Warn("Reload incomplete", klog.NewFields().WithOperation(klog.OpReload).WithError(err).Args()...)
		}
	}

	reload(context.Background())
	a.Start()

	scheduler := cron.New()
	if cfg.RefreshSchedule != "" {
		if _, err := scheduler.AddFunc(cfg.RefreshSchedule, func() { reload(context.Background()) }); err != nil {
			logger.Error("Invalid refresh schedule", klog.FieldError, err, "schedule", cfg.RefreshSchedule)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("Periodic reload scheduled", "schedule", cfg.RefreshSchedule)
	}

	srv := apphttp.NewServer(":"+cfg.Port, a, apphttp.Options{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", klog.FieldError, err)
		}
		<-scheduler.Stop().Done()
		a.Stop()
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", klog.FieldError, err)
		}
	})

	// Changes made by other instances arrive as category events.
	if res.Publisher != nil {
		go func() {
			err := res.Publisher.ConsumeCategoryEvents(ctx, func(ctx context.Context, ev amqp.CategoryEvent) error {
				logger.Debug("Category event received", "kind", ev.Kind, klog.FieldCategoryID, ev.CategoryID)
				reload(ctx)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Category event consumption stopped", klog.FieldError, err)
			}
		}()
	}

	logger.Info("Starting kasa server",
		"port", cfg.Port,
		"source", backendCfg.Source.String(),
		"store", backendCfg.Store.String(),
		"amqp", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", klog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
