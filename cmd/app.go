package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/zjrosen/dispatch/internal/auth"
	"github.com/zjrosen/dispatch/internal/batch"
	"github.com/zjrosen/dispatch/internal/bootstrap"
	"github.com/zjrosen/dispatch/internal/cache"
	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/config"
	"github.com/zjrosen/dispatch/internal/direct"
	"github.com/zjrosen/dispatch/internal/middleware"
	"github.com/zjrosen/dispatch/internal/pipeline"
	"github.com/zjrosen/dispatch/internal/pubsub"
	"github.com/zjrosen/dispatch/internal/registry"
	"github.com/zjrosen/dispatch/internal/todo"
	"github.com/zjrosen/dispatch/internal/tracing"
)

// alwaysExcluded lists commands that must run without a session or
// nobody could sign in or discover commands.
var alwaysExcluded = []string{
	"auth-sign-in",
	"auth-status",
	"registry-help",
	"registry-schema",
	"registry-docs",
}

// app holds everything a CLI subcommand needs: the registry with its
// full middleware pipeline, the direct client, and the resources to
// close on exit.
type app struct {
	cfg      config.Config
	reg      *registry.Registry
	client   *direct.Client
	adapter  *auth.StaticAdapter
	store    todo.Store
	tracer   *tracing.Provider
	events   *pubsub.Broker[middleware.ExecutionEvent]
	sessions *pubsub.Broker[auth.SessionState]
	progress *pubsub.Broker[pipeline.ProgressUpdate]
}

// buildApp assembles the platform from configuration.
func buildApp(cfg config.Config) (*app, error) {
	tracer, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     cfg.Tracing.FilePath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		ServiceName:  cfg.Server.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring tracing: %w", err)
	}

	store, err := newStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	authBroker := pubsub.NewBroker[auth.SessionState]()
	adapter := auth.NewStaticAdapter(authTokens(cfg.Auth), authBroker)

	events := pubsub.NewBroker[middleware.ExecutionEvent]()

	// The caching middleware asks the registry whether a command
	// mutates; reg is assigned below, after the pipeline captures it.
	var reg *registry.Registry

	var mws []middleware.Middleware
	if tracer.Enabled() {
		mws = append(mws, middleware.NewTracingMiddleware(middleware.TracingConfig{
			Tracer: tracer.Tracer(),
		}))
	}
	if cfg.Auth.Enabled {
		mws = append(mws, middleware.NewAuthMiddleware(middleware.AuthConfig{
			Adapter: adapter,
			Exclude: append(alwaysExcluded, cfg.Auth.Exclude...),
		}))
	}
	mws = append(mws,
		middleware.NewLoggingMiddleware(middleware.LoggingConfig{}),
		middleware.NewTimingMiddleware(middleware.TimingConfig{
			SlowThreshold: cfg.Registry.SlowCallThreshold(),
		}),
		middleware.NewTelemetryMiddleware(middleware.TelemetryConfig{
			Publisher: events,
		}),
	)
	if cfg.Cache.Enabled {
		mws = append(mws, middleware.NewCachingMiddleware(middleware.CachingConfig{
			Store: cache.NewStore[command.Result]("results", cfg.Cache.TTL(), time.Minute),
			TTL:   cfg.Cache.TTL(),
			IsMutation: func(name string) bool {
				def, ok := reg.Get(name)
				return ok && def.Mutation()
			},
		}))
	}
	mws = append(mws, middleware.NewTimeoutMiddleware(middleware.TimeoutConfig{
		Timeout: cfg.Registry.Timeout(),
	}))

	reg = registry.New(
		registry.WithDefaultExposure(cfg.Registry.DefaultExposure),
		registry.WithMiddleware(mws...),
	)

	progress := pubsub.NewBroker[pipeline.ProgressUpdate]()

	reg.MustRegister(todo.Commands(store)...)
	reg.MustRegister(auth.Commands(adapter)...)
	reg.MustRegister(batch.NewCommand(reg.Execute))
	reg.MustRegister(pipeline.NewCommandWithExecutor(pipeline.NewExecutor(reg.Execute, progress)))
	reg.MustRegister(bootstrap.Commands(reg)...)

	return &app{
		cfg:      cfg,
		reg:      reg,
		client:   direct.NewClient(reg, direct.WithSurface(command.SurfaceCLI)),
		adapter:  adapter,
		store:    store,
		tracer:   tracer,
		events:   events,
		sessions: authBroker,
		progress: progress,
	}, nil
}

func newStore(cfg config.StoreConfig) (todo.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return todo.NewMemoryStore(), nil
	case "sqlite":
		store, err := todo.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening todo store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func authTokens(cfg config.AuthConfig) map[string]auth.User {
	tokens := make(map[string]auth.User, len(cfg.Tokens))
	for token, user := range cfg.Tokens {
		tokens[token] = auth.User{ID: user.ID, Email: user.Email, Name: user.Name}
	}
	return tokens
}

// Close flushes traces and releases the store.
func (a *app) Close(ctx context.Context) error {
	err := a.tracer.Shutdown(ctx)
	if closeErr := a.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
