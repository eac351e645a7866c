package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"go-news-client/internal/cache/tiered"
	"go-news-client/internal/config"
	"go-news-client/internal/coordinator"
	"go-news-client/internal/httpserver"
	"go-news-client/internal/interfaces"
	"go-news-client/internal/netquality"
	"go-news-client/internal/news"
	"go-news-client/internal/normalize"
	"go-news-client/internal/prefetch"
	"go-news-client/internal/storage/bigcachestore"
	"go-news-client/internal/storage/noop"
	"go-news-client/internal/storage/redisstore"
)

// storePattern scopes the durable store to the cache's mirrored keys.
const storePattern = "newscache:*"

// CompositionRoot holds all application dependencies and provides a
// centralized place for dependency injection and service initialization.
type CompositionRoot struct {
	Config *config.Config
	Logger *zap.Logger

	Store     interfaces.KeyValueStore
	Cache     *tiered.Cache
	Estimator *netquality.Estimator

	Coordinator *coordinator.Coordinator
	Normalizer  *normalize.Normalizer
	Service     *news.Service
	Prefetcher  *prefetch.Scheduler
	HTTPServer  *httpserver.Server
}

// NewCompositionRoot creates and wires all application dependencies.
//
// Initialization order:
// 1. Logger (needed by all other components)
// 2. Configuration
// 3. Durable key-value store (redis, falling back to in-process memory)
// 4. Tiered cache (warmed from the store) and connection estimator
// 5. Coordinator, normalizer, facade service
// 6. Prefetch scheduler and HTTP server
func NewCompositionRoot() (*CompositionRoot, error) {
	root := &CompositionRoot{}

	if err := root.initLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := root.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := root.initStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	root.initCore()
	root.initServices()

	return root, nil
}

// initLogger initializes the application logger
func (r *CompositionRoot) initLogger() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	r.Logger = logger
	return nil
}

// loadConfig loads the application configuration. Without a config file the
// built-in defaults apply.
func (r *CompositionRoot) loadConfig() error {
	configPath := os.Getenv("NEWS_CONFIG_FILE")
	if configPath == "" {
		r.Logger.Info("No config file set, using defaults")
		r.Config = config.Default()
		return nil
	}

	cfg, err := config.LoadConfig(configPath, r.Logger)
	if err != nil {
		return err
	}
	r.Config = cfg
	return nil
}

// initStore selects the durable key-value store. A redis connection failure
// degrades to the in-process store rather than failing startup.
func (r *CompositionRoot) initStore() error {
	switch r.Config.Storage.Backend {
	case "redis":
		redisURL := GetRedisURL(r.Config, r.Logger)
		store, err := redisstore.New(redisURL, storePattern, r.Logger)
		if err == nil {
			r.Store = store
			return nil
		}
		r.Logger.Warn("Failed to connect to redis, falling back to in-process store",
			zap.String("redis_url", redisURL),
			zap.Error(err))
		fallthrough
	case "memory":
		store, err := bigcachestore.New(r.Config.Storage.MemoryMB, r.Logger)
		if err != nil {
			return err
		}
		r.Store = store
		r.Logger.Info("In-process store initialized", zap.Int("size_mb", r.Config.Storage.MemoryMB))
	default:
		r.Store = noop.New()
		r.Logger.Info("Persistence disabled")
	}
	return nil
}

// initCore creates the shared cache and connection estimator.
func (r *CompositionRoot) initCore() {
	caps := tiered.Caps{
		General:  r.Config.Cache.GeneralMax,
		Image:    r.Config.Cache.ImageMax,
		Category: r.Config.Cache.CategoryMax,
	}
	r.Cache = tiered.New(caps, r.Config.Cache.DefaultTTL.Duration, r.Store, r.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.Cache.WarmUp(ctx)

	r.Estimator = netquality.New(r.Logger)
}

// initServices wires the fetch pipeline and its surfaces.
func (r *CompositionRoot) initServices() {
	r.Coordinator = coordinator.New(r.Estimator, r.Logger)
	r.Normalizer = normalize.New(r.Cache, r.Logger)
	r.Service = news.New(r.Config, r.Coordinator, r.Cache, r.Normalizer, r.Estimator, r.Logger)
	r.Prefetcher = prefetch.New(r.Service, r.Cache, r.Estimator, r.Config.Prefetch, r.Logger)
	r.HTTPServer = httpserver.NewServer(r.Service, r.Logger)
}

// Cleanup performs cleanup of all resources
func (r *CompositionRoot) Cleanup() error {
	var errors []error

	if r.Prefetcher != nil {
		r.Prefetcher.Stop()
	}

	if r.Logger != nil {
		if err := r.Logger.Sync(); err != nil {
			errors = append(errors, fmt.Errorf("failed to sync logger: %w", err))
		}
	}

	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errors = append(errors, fmt.Errorf("failed to close store: %w", err))
		}
	}

	if len(errors) > 0 {
		return errors[0]
	}
	return nil
}
