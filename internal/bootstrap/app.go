// Package bootstrap assembles the CRM from configuration: storage, services,
// the HTTP handler tree and the dispatch sweeper.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/config"
	"github.com/example/growth-crm/internal/dispatch"
	httptransport "github.com/example/growth-crm/internal/http"
	"github.com/example/growth-crm/internal/persistence/sqlite"
	"github.com/example/growth-crm/internal/persistence/sqlite/migration"
	"github.com/example/growth-crm/internal/pipeline"
	"github.com/example/growth-crm/internal/recurrence"
)

// App owns the wired services and the store they share.
type App struct {
	Config   config.Config
	Store    *sqlite.Store
	Registry *pipeline.Registry
	Leads    *application.LeadService
	Posts    *application.PostService
	Bookings *application.BookingService

	logger *slog.Logger
}

// Option customises New.
type Option func(*options)

type options struct {
	idGenerator  func() string
	now          func() time.Time
	sqliteConfig *migration.SQLiteConfig
}

// WithIDGenerator replaces uuid based identifiers.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.idGenerator = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSQLiteConfig overrides the connection settings derived from cfg.SQLiteDSN.
func WithSQLiteConfig(c migration.SQLiteConfig) Option {
	return func(o *options) { o.sqliteConfig = &c }
}

// SQLiteConfigFor returns connection settings for dsn.
func SQLiteConfigFor(dsn string) migration.SQLiteConfig {
	if dsn == ":memory:" {
		return migration.InMemorySQLiteConfig()
	}
	return migration.DefaultSQLiteConfig(dsn)
}

// LoadRegistry returns the registry named by path, or the built-in one when
// path is empty.
func LoadRegistry(path string) (*pipeline.Registry, error) {
	if strings.TrimSpace(path) == "" {
		return pipeline.DefaultRegistry(), nil
	}
	registry, err := pipeline.LoadRegistryFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pipeline vocabularies from %s: %w", path, err)
	}
	return registry, nil
}

// New opens and migrates the store and builds every service.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{idGenerator: uuid.NewString, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	registry, err := LoadRegistry(cfg.PipelineConfig)
	if err != nil {
		return nil, err
	}

	sqliteConfig := SQLiteConfigFor(cfg.SQLiteDSN)
	if o.sqliteConfig != nil {
		sqliteConfig = *o.sqliteConfig
	}
	store, err := sqlite.Open(ctx, sqliteConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	expander := recurrence.NewExpander(cfg.Location, o.now, recurrence.WithHorizon(cfg.ScheduleHorizon))
	leadRepo := newLeadRepositoryAdapter(store.Leads)

	return &App{
		Config:   cfg,
		Store:    store,
		Registry: registry,
		Leads:    application.NewLeadServiceWithLogger(leadRepo, registry, o.idGenerator, o.now, logger),
		Posts:    application.NewPostServiceWithLogger(newPostRepositoryAdapter(store.Posts), expander, o.idGenerator, o.now, logger),
		Bookings: application.NewBookingServiceWithLogger(newBookingRepositoryAdapter(store.Bookings), leadRepo, registry, o.idGenerator, o.now, logger),
		logger:   logger,
	}, nil
}

// Handler returns the HTTP handler tree guarded by verifier.
func (a *App) Handler(verifier httptransport.KeyVerifier) http.Handler {
	loc := a.Config.Location
	limit := httptransport.RateLimit(a.Config.RateLimit, a.logger)
	requireKey := httptransport.RequireAPIKey(verifier, a.logger)
	return httptransport.NewRouter(httptransport.RouterConfig{
		Leads:    httptransport.NewLeadHandler(a.Leads, a.logger),
		Posts:    httptransport.NewPostHandler(a.Posts, loc, a.logger),
		Bookings: httptransport.NewBookingHandler(a.Bookings, loc, a.logger),
		Health:   httptransport.NewHealthHandler(a.Store, a.logger),
		Auth: func(next http.Handler) http.Handler {
			return limit(requireKey(next))
		},
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(a.logger)},
	})
}

// Sweeper returns the job that flips scheduled posts to due.
func (a *App) Sweeper() (*dispatch.Sweeper, error) {
	return dispatch.NewSweeper(a.Posts, a.Config.DispatchSchedule, a.Config.Location, a.logger)
}

// Close releases the store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
