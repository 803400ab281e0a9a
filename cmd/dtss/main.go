package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sverreng/dtss/internal/collect"
	"github.com/sverreng/dtss/internal/config"
	"github.com/sverreng/dtss/internal/host"
	"github.com/sverreng/dtss/internal/repository"
	"github.com/sverreng/dtss/internal/repository/heartbeat"
	"github.com/sverreng/dtss/internal/repository/netatmo"
	"github.com/sverreng/dtss/internal/repository/store"
	"github.com/sverreng/dtss/internal/router"
	"github.com/sverreng/dtss/internal/server"
)

// Command dtss runs the distributed time series service host.
//
// The host accepts batched read and find queries over gRPC, routes
// every identifier to the repository owning its scheme (netatmo,
// store, heartbeat) and reassembles the answers in request order. An
// optional collection scheduler mirrors remote series into the local
// TimescaleDB store.
//
// Usage:
//
//	dtss [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
//	-port int
//	      listening port, overrides the config file (default from config)
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	port := flag.Int("port", 0, "listening port, overrides the config file")
	flag.Parse()

	appConfig, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		appConfig.Server.Port = *port
	}

	logger := newLogger(appConfig.Logging)

	registry, storeRepo, err := buildRegistry(appConfig, logger)
	if err != nil {
		logger.Fatalf("Failed to build repository registry: %v", err)
	}
	if storeRepo != nil {
		defer storeRepo.Close()
	}
	logger.WithField("schemes", registry.Schemes()).Info("Repositories registered")

	queryRouter := router.New(registry, router.Config{
		RepoTimeout: appConfig.Router.RepoTimeout,
		Logger:      logger,
	})

	addr := fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port)
	h := host.New(addr, queryRouter, server.Config{
		CacheSize:      appConfig.Server.CacheSize,
		RateLimit:      appConfig.Server.RateLimit,
		RateLimitBurst: appConfig.Server.RateLimitBurst,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler, err := startCollection(ctx, appConfig, registry, storeRepo, logger)
	if err != nil {
		logger.Fatalf("Failed to start collection: %v", err)
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	if err := h.Start(); err != nil {
		logger.Fatalf("Failed to start host: %v", err)
	}
	logger.WithField("address", h.Addr()).Info("DTSS host running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Shutting down")

	cancel()
	h.Stop()
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format != "text" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// buildRegistry instantiates every configured repository plus the
// always-present heartbeat repository. Configured schemes this build
// does not know are skipped with a warning so a partial deployment can
// share one config file.
func buildRegistry(cfg *config.Config, logger *logrus.Logger) (*router.Registry, *store.Repository, error) {
	repos := []repository.Repository{heartbeat.New(logger)}

	if nc := cfg.Repositories.Netatmo; nc != nil {
		repos = append(repos, netatmo.New(*nc, logger))
	}

	var storeRepo *store.Repository
	if sc := cfg.Repositories.Store; sc != nil {
		var err error
		storeRepo, err = store.New(sc.ConnString())
		if err != nil {
			return nil, nil, fmt.Errorf("store repository: %w", err)
		}
		repos = append(repos, storeRepo)
	}

	for scheme := range cfg.Repositories.Extra {
		logger.WithField("scheme", scheme).Warn("Ignoring unrecognized repository configuration")
	}

	registry, err := router.NewRegistry(repos...)
	if err != nil {
		if storeRepo != nil {
			storeRepo.Close()
		}
		return nil, nil, err
	}
	return registry, storeRepo, nil
}

// startCollection wires the collector between the netatmo source and
// the local store and starts the cron scheduler, when enabled.
func startCollection(ctx context.Context, cfg *config.Config, registry *router.Registry, storeRepo *store.Repository, logger *logrus.Logger) (*collect.Scheduler, error) {
	if !cfg.Collection.Enabled {
		return nil, nil
	}
	source, err := registry.Lookup(netatmo.Scheme)
	if err != nil {
		return nil, fmt.Errorf("collection needs the netatmo repository: %w", err)
	}
	if storeRepo == nil {
		return nil, fmt.Errorf("collection needs the store repository")
	}

	collector := collect.New(source, storeRepo, cfg.Collection.TsIDs, logger)

	if cfg.Collection.Bootstrap {
		go func() {
			if err := collector.Bootstrap(ctx); err != nil {
				logger.WithError(err).Error("Historical bootstrap failed")
			}
		}()
	}

	scheduler := collect.NewScheduler(ctx, collector, cfg.Collection.Cron, cfg.Collection.Window, logger)
	if err := scheduler.Start(); err != nil {
		return nil, err
	}
	return scheduler, nil
}
