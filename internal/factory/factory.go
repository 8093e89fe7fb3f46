package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/playfield/internal/api"
	"github.com/mcoot/playfield/internal/api/middleware"
	"github.com/mcoot/playfield/internal/dependencies/clock"
	"github.com/mcoot/playfield/internal/dependencies/random"
	"github.com/mcoot/playfield/internal/feed"
	"github.com/mcoot/playfield/internal/feed/hub"
	"github.com/mcoot/playfield/internal/session"
	"github.com/mcoot/playfield/internal/storage"
	"github.com/mcoot/playfield/internal/storage/memory"
	pgstorage "github.com/mcoot/playfield/internal/storage/postgres"
	redisstorage "github.com/mcoot/playfield/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// feedScope is the table the hub fans out
const feedScope = "players"

// App contains all wired application components
type App struct {
	// Storage
	Storage     storage.Storage
	StorageType string

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Change feed fan-out
	Hub   *hub.Hub
	Relay *hub.Relay

	logger    *slog.Logger
	rateLimit middleware.RateLimitConfig
	cancel    context.CancelFunc
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds Postgres connection settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
	// RateLimit bounds player writes per remote address; zero disables it
	RateLimit middleware.RateLimitConfig
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New(memory.WithClock(clk), memory.WithLogger(logger))
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig, logger)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(ctx, *cfg.PostgresConfig, logger)
		if err != nil {
			return nil, err
		}
		store = pgStore
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}

	app := newWithDependencies(store, clk, random.New(), logger)
	app.StorageType = storageType
	app.rateLimit = cfg.RateLimit
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	h := hub.New(feedScope, logger)
	return &App{
		Storage:     store,
		StorageType: StorageTypeMemory,
		Clock:       clk,
		Random:      rnd,
		Hub:         h,
		Relay:       hub.NewRelay(store, h, logger),
		logger:      logger,
	}
}

// Start runs the hub and relays storage changes into it until Close
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.Hub.Run()
	go a.Relay.Run(ctx)
}

// Handler builds the HTTP API over this app
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.logger,
		Storage:     a.Storage,
		StorageType: a.StorageType,
		Hub:         a.Hub,
		RateLimit:   a.rateLimit,
	})
}

// NewSession creates a client session that talks to this app's storage in process
func (a *App) NewSession(cfg session.Config) *session.Field {
	return a.NewSessionWith(cfg, a.Storage, a.Storage)
}

// NewSessionWith creates a client session over an arbitrary store and feed source
func (a *App) NewSessionWith(cfg session.Config, store session.Store, source feed.Source) *session.Field {
	return session.New(cfg, store, source, a.Clock, a.Random, a.logger)
}

// Close stops the feed fan-out and releases the storage backend
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.Hub.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
