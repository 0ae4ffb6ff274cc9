// Command finterm runs the market terminal: background refresh jobs plus the
// HTTP dashboard and JSON API.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/lucasmieiro/finterm/internal/app"
	"github.com/lucasmieiro/finterm/internal/app/httpapi"
	"github.com/lucasmieiro/finterm/internal/app/metrics"
	"github.com/lucasmieiro/finterm/internal/app/storage/postgres"
	"github.com/lucasmieiro/finterm/internal/app/storage/rediscache"
	"github.com/lucasmieiro/finterm/internal/config"
	"github.com/lucasmieiro/finterm/internal/middleware"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML config file")
		listenAddr = flag.String("addr", "", "listen address override")
	)
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		logger.NewDefault("main").WithError(err).Fatal("load configuration")
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	log := logger.New("main", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("initialize storage")
	}
	defer cleanup()

	application, err := app.New(cfg, stores, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start services")
	}

	cors := middleware.NewCORSMiddleware(cfg.CORSOrigins)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(10 * time.Minute)
			case <-ctx.Done():
				return
			}
		}
	}()

	handler := cors.Handler(limiter.Handler(metrics.InstrumentHandler(httpapi.NewHandler(application, log))))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown incomplete")
	}
	log.Info("terminal stopped")
}

// buildStores wires the optional Postgres and Redis layers. With neither
// configured the application falls back to in-memory storage.
func buildStores(ctx context.Context, cfg config.Config, log *logger.Logger) (app.Stores, func(), error) {
	var stores app.Stores
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return app.Stores{}, cleanup, err
		}
		closers = append(closers, func() {
			if err := pg.Close(); err != nil {
				log.WithError(err).Warn("close postgres")
			}
		})
		stores.Snapshots = pg
		stores.Headlines = pg
		stores.Heatmaps = pg
		log.Info("postgres storage enabled")
	}

	if cfg.RedisURL != "" {
		if stores.Snapshots == nil {
			log.Warn("REDIS_URL set without DATABASE_URL; skipping snapshot cache")
			return stores, cleanup, nil
		}
		rdb, err := rediscache.OpenClient(ctx, cfg.RedisURL)
		if err != nil {
			return app.Stores{}, cleanup, err
		}
		closers = append(closers, func() {
			if err := rdb.Close(); err != nil {
				log.WithError(err).Warn("close redis")
			}
		})
		cached := rediscache.New(stores.Snapshots, rdb, 15*time.Minute, log)
		for panel, seconds := range cfg.TTLSeconds {
			cached.WithPanelTTL(panel, time.Duration(seconds)*time.Second)
		}
		stores.Snapshots = cached
		log.Info("redis snapshot cache enabled")
	}

	return stores, cleanup, nil
}
