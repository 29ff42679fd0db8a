package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-management-client/internal/app"
	"github.com/yukikurage/task-management-client/internal/backend"
	"github.com/yukikurage/task-management-client/internal/config"
	"github.com/yukikurage/task-management-client/internal/database"
	"github.com/yukikurage/task-management-client/internal/storage"
)

type harness struct {
	t       *testing.T
	cfg     *config.Config
	storage storage.Storage
}

func newHarness(t *testing.T) *harness {
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

	return &harness{
		t: t,
		cfg: &config.Config{
			APIBaseURL:       srv.URL + "/api",
			RequestTimeout:   5 * time.Second,
			StateBackend:     "memory",
			HydrationTimeout: time.Second,
			CacheStaleTime:   time.Minute,
			LogLevel:         "error",
		},
		storage: storage.NewMemoryStorage(),
	}
}

// run executes one CLI invocation; the session storage is shared between
// invocations like the state file would be.
func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCommand(h.cfg, app.Deps{Storage: h.storage, LogOutput: io.Discard}, &out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func TestCLI_SignedOutCommandsAskForLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("tasks")
	assert.ErrorIs(t, err, ErrSignInRequired)

	_, err = h.run("whoami")
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestCLI_TaskWorkflow(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("register", "--first-name", "Ada", "--last-name", "Lovelace", "-e", "ada@example.com", "-p", "analytical")
	assert.Contains(t, out, "✓ Welcome: Ada Lovelace")

	_, err := h.run("login", "-e", "ada@example.com", "-p", "analytical")
	assert.ErrorIs(t, err, ErrSignedIn)

	assert.Contains(t, h.mustRun("whoami"), "Ada Lovelace <ada@example.com>")

	out = h.mustRun("add", "Buy milk", "-d", "2 litres")
	assert.Contains(t, out, `✓ Task created: "Buy milk" was added`)
	h.mustRun("add", "Walk dog")

	out = h.mustRun("tasks")
	assert.Contains(t, out, "2 tasks: 2 pending, 0 completed, 0 canceled")
	assert.Contains(t, out, "Buy milk")

	out = h.mustRun("status", "1", "completed")
	assert.Contains(t, out, "✓ Status updated")

	out = h.mustRun("tasks", "--filter", "completed")
	assert.Contains(t, out, "Buy milk")
	assert.NotContains(t, out, "Walk dog")

	h.mustRun("edit", "2", "--title", "Walk the dog")
	h.mustRun("rm", "1")

	out = h.mustRun("tasks")
	assert.Contains(t, out, "1 tasks: 1 pending")
	assert.Contains(t, out, "Walk the dog")

	out, err = h.run("add", "no")
	assert.Error(t, err)
	assert.Contains(t, out, "✗ Could not create task: Title must be at least 3 characters")

	h.mustRun("logout")
	_, err = h.run("tasks")
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestCLI_ArgumentErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("status", "abc", "completed")
	assert.Error(t, err)

	_, err = h.run("tasks", "--filter", "later")
	assert.Error(t, err)

	_, err = h.run("edit", "3")
	assert.Error(t, err)
}
