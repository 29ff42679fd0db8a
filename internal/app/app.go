package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/yukikurage/task-management-client/internal/cache"
	"github.com/yukikurage/task-management-client/internal/config"
	"github.com/yukikurage/task-management-client/internal/gateway"
	"github.com/yukikurage/task-management-client/internal/guard"
	"github.com/yukikurage/task-management-client/internal/logger"
	"github.com/yukikurage/task-management-client/internal/metrics"
	"github.com/yukikurage/task-management-client/internal/repository"
	"github.com/yukikurage/task-management-client/internal/services"
	"github.com/yukikurage/task-management-client/internal/session"
	"github.com/yukikurage/task-management-client/internal/storage"
)

// Deps overrides pieces of the wiring, mostly for tests. Zero fields are
// built from the config.
type Deps struct {
	Storage   storage.Storage
	Transport http.RoundTripper
	Notifier  services.Notifier
	LogOutput io.Writer
	Registry  *prometheus.Registry
}

// App is the fully wired client: session, transport, cache, services and
// navigation.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry

	Store     *session.Store
	Persister *session.Persister
	Gateway   *gateway.Gateway
	Cache     *cache.Cache
	Auth      *services.AuthService
	Tasks     *services.TaskService
	Router    *guard.Router
	Guard     *guard.Guard

	storage storage.Storage
}

// New wires an App from cfg. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	log := logger.Setup(deps.LogOutput, cfg.LogLevel)

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	collector := metrics.NewCollector(registry)

	st := deps.Storage
	if st == nil {
		var err error
		st, err = storage.Open(ctx, storage.Options{
			Backend:   cfg.StateBackend,
			Path:      cfg.StatePath,
			RedisAddr: cfg.RedisAddr,
			LogLevel:  cfg.LogLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open session storage: %w", err)
		}
	}

	store := session.NewStore()
	persister := session.NewPersister(store, st, log.With("component", "session"), cfg.HydrationTimeout)

	opts := []gateway.Option{
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithRateLimit(cfg.GatewayRateLimit),
		gateway.WithMetrics(collector),
		gateway.WithLogger(log.With("component", "gateway")),
	}
	if deps.Transport != nil {
		opts = append(opts, gateway.WithTransport(deps.Transport))
	}
	gw := gateway.New(cfg.APIBaseURL, store.Token, store.ClearAuth, opts...)

	c := cache.New(cache.Options{
		StaleTime:       cfg.CacheStaleTime,
		Retry:           cfg.QueryRetry,
		RefetchOnSettle: cfg.RefetchOnSettle,
		Logger:          log.With("component", "cache"),
		Metrics:         collector,
	})

	notifier := deps.Notifier
	if notifier == nil {
		notifier = services.LogNotifier{Logger: log.With("component", "notifier")}
	}

	router := guard.NewRouter(guard.RouteLanding)

	return &App{
		Config:    cfg,
		Logger:    log,
		Registry:  registry,
		Store:     store,
		Persister: persister,
		Gateway:   gw,
		Cache:     c,
		Auth:      services.NewAuthService(repository.NewAuthRepository(gw), store, c, notifier, log.With("component", "auth")),
		Tasks:     services.NewTaskService(repository.NewTaskRepository(gw), store, c, notifier, log.With("component", "tasks")),
		Router:    router,
		Guard:     guard.New(store, router, log.With("component", "guard")),
		storage:   st,
	}, nil
}

// Start begins hydration and route guarding. It does not wait for the
// session to be restored; use Ready for that.
func (a *App) Start(ctx context.Context) {
	a.Persister.Hydrate(ctx)
	a.Guard.Start()
}

// Ready blocks until the session has been hydrated.
func (a *App) Ready(ctx context.Context) error {
	return a.Store.WaitHydrated(ctx)
}

// Close stops the guard, flushes pending work and releases the storage.
func (a *App) Close() error {
	a.Guard.Stop()
	a.Cache.Wait()
	a.Persister.Close()
	return a.storage.Close()
}
