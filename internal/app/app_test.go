package app

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-management-client/internal/backend"
	"github.com/yukikurage/task-management-client/internal/config"
	"github.com/yukikurage/task-management-client/internal/database"
	"github.com/yukikurage/task-management-client/internal/guard"
	"github.com/yukikurage/task-management-client/internal/models"
	"github.com/yukikurage/task-management-client/internal/services"
	"github.com/yukikurage/task-management-client/internal/storage"
)

func startBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "api.db"), "silent")
	require.NoError(t, err)
	require.NoError(t, backend.Migrate(db))

	srv := httptest.NewServer(backend.NewRouter(db, backend.Options{
		JWTSecret: "test-secret",
		JWTTTL:    time.Hour,
		Registry:  prometheus.NewRegistry(),
	}))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close(db)
	})
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		APIBaseURL:       baseURL + "/api",
		RequestTimeout:   5 * time.Second,
		StateBackend:     "memory",
		HydrationTimeout: time.Second,
		CacheStaleTime:   time.Minute,
		QueryRetry:       0,
		RefetchOnSettle:  true,
		LogLevel:         "error",
	}
}

func newApp(t *testing.T, cfg *config.Config, st storage.Storage) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, Deps{
		Storage:   st,
		Notifier:  services.NopNotifier{},
		LogOutput: io.Discard,
	})
	require.NoError(t, err)
	return a
}

func TestApp_EndToEnd(t *testing.T) {
	srv := startBackend(t)
	ctx := context.Background()
	st := storage.NewMemoryStorage()

	a := newApp(t, testConfig(srv.URL), st)
	a.Start(ctx)
	require.NoError(t, a.Ready(ctx))
	a.Persister.Wait()

	assert.Equal(t, guard.RouteLogin, a.Router.Location())

	_, err := a.Auth.Register(ctx, models.Registration{
		FirstName:            "Ada",
		LastName:             "Lovelace",
		Email:                "ada@example.com",
		Password:             "analytical",
		PasswordConfirmation: "analytical",
	})
	require.NoError(t, err)
	assert.Equal(t, guard.RouteDashboard, a.Router.Location())

	created, err := a.Tasks.CreateTask().MutateAsync(ctx, models.TaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	_, err = a.Tasks.UpdateTaskStatus().MutateAsync(ctx, services.StatusChange{ID: created.ID, Status: models.TaskStatusCompleted})
	require.NoError(t, err)
	a.Cache.Wait()

	dash := a.Tasks.Dashboard(ctx, models.FilterCompleted)
	require.NoError(t, dash.Err)
	require.Len(t, dash.Tasks, 1)
	assert.Equal(t, "Buy milk", dash.Tasks[0].Title)
	assert.Equal(t, 1, dash.Stats.Completed)

	requests, err := testutil.GatherAndCount(a.Registry, "todo_client_requests_total")
	require.NoError(t, err)
	assert.Positive(t, requests)

	require.NoError(t, a.Auth.Logout(ctx))
	assert.Equal(t, guard.RouteLogin, a.Router.Location())
	require.NoError(t, a.Close())
}

func TestApp_SessionSurvivesRestart(t *testing.T) {
	srv := startBackend(t)
	ctx := context.Background()
	st := storage.NewMemoryStorage()

	first := newApp(t, testConfig(srv.URL), st)
	first.Start(ctx)
	require.NoError(t, first.Ready(ctx))
	_, err := first.Auth.Register(ctx, models.Registration{
		FirstName:            "Ada",
		LastName:             "Lovelace",
		Email:                "ada@example.com",
		Password:             "analytical",
		PasswordConfirmation: "analytical",
	})
	require.NoError(t, err)
	first.Persister.Wait()
	first.Guard.Stop()
	first.Cache.Wait()
	first.Persister.Close()

	second := newApp(t, testConfig(srv.URL), st)
	second.Start(ctx)
	require.NoError(t, second.Ready(ctx))
	second.Persister.Wait()

	assert.True(t, second.Store.IsAuthenticated())
	assert.Equal(t, guard.RouteDashboard, second.Router.Location())

	user, err := second.Auth.RefreshUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	require.NoError(t, second.Close())
}

func TestApp_RevokedTokenSignsOut(t *testing.T) {
	srv := startBackend(t)
	ctx := context.Background()

	a := newApp(t, testConfig(srv.URL), storage.NewMemoryStorage())
	a.Start(ctx)
	require.NoError(t, a.Ready(ctx))
	_, err := a.Auth.Register(ctx, models.Registration{
		FirstName:            "Ada",
		LastName:             "Lovelace",
		Email:                "ada@example.com",
		Password:             "analytical",
		PasswordConfirmation: "analytical",
	})
	require.NoError(t, err)

	// Revoke on the server without touching the local session.
	require.NoError(t, a.Gateway.Post(ctx, "/auth/logout", nil, nil))
	require.True(t, a.Store.IsAuthenticated())

	res := a.Tasks.Refetch(ctx)
	require.Error(t, res.Err)

	assert.False(t, a.Store.IsAuthenticated())
	assert.Equal(t, guard.RouteLogin, a.Router.Location())
	require.NoError(t, a.Close())
}
