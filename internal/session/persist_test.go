package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-management-client/internal/logger"
	"github.com/yukikurage/task-management-client/internal/storage"
)

// gatedStorage blocks GetItem until the gate is closed.
type gatedStorage struct {
	*storage.MemoryStorage
	gate   chan struct{}
	getErr error
}

func (g *gatedStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	if g.gate != nil {
		<-g.gate
	}
	if g.getErr != nil {
		return "", false, g.getErr
	}
	return g.MemoryStorage.GetItem(ctx, key)
}

func seed(t *testing.T, st storage.Storage, raw string) {
	t.Helper()
	require.NoError(t, st.SetItem(context.Background(), StorageKey, raw))
}

func waitHydrated(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.WaitHydrated(ctx))
}

func TestPersister_RestoresSession(t *testing.T) {
	mem := storage.NewMemoryStorage()
	seed(t, mem, `{"state":{"user":{"id":42,"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"},"token":"tok","isAuthenticated":true},"version":0}`)

	s := NewStore()
	p := NewPersister(s, mem, logger.Discard(), time.Second)
	p.Hydrate(context.Background())
	waitHydrated(t, s)
	p.Wait()

	st := s.State()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "Ada", st.User.FirstName)
	assert.Equal(t, "tok", st.Token)
}

func TestPersister_HydratesWhenStorageIsEmptyOrBroken(t *testing.T) {
	cases := map[string]storage.Storage{
		"empty":   storage.NewMemoryStorage(),
		"error":   &gatedStorage{MemoryStorage: storage.NewMemoryStorage(), getErr: errors.New("disk gone")},
		"garbage": func() storage.Storage { m := storage.NewMemoryStorage(); seed(t, m, "{not json"); return m }(),
		"version": func() storage.Storage {
			m := storage.NewMemoryStorage()
			seed(t, m, `{"state":{"user":{"id":1},"token":"tok","isAuthenticated":true},"version":3}`)
			return m
		}(),
	}

	for name, st := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewStore()
			p := NewPersister(s, st, logger.Discard(), time.Second)
			p.Hydrate(context.Background())
			waitHydrated(t, s)
			p.Wait()

			assert.True(t, s.HasHydrated())
			assert.False(t, s.IsAuthenticated())
		})
	}
}

func TestPersister_TimeoutForcesHydration(t *testing.T) {
	mem := storage.NewMemoryStorage()
	seed(t, mem, `{"state":{"user":{"id":42},"token":"tok","isAuthenticated":true},"version":0}`)
	gated := &gatedStorage{MemoryStorage: mem, gate: make(chan struct{})}

	s := NewStore()
	p := NewPersister(s, gated, logger.Discard(), 20*time.Millisecond)
	p.Hydrate(context.Background())

	waitHydrated(t, s)
	assert.False(t, s.IsAuthenticated())

	close(gated.gate)
	p.Wait()

	assert.True(t, s.HasHydrated())
	assert.True(t, s.IsAuthenticated(), "late restore applies when nothing was written meanwhile")
}

func TestPersister_LateRestoreDoesNotOverrideLogin(t *testing.T) {
	mem := storage.NewMemoryStorage()
	seed(t, mem, `{"state":{"user":{"id":1},"token":"stale","isAuthenticated":true},"version":0}`)
	gated := &gatedStorage{MemoryStorage: mem, gate: make(chan struct{})}

	s := NewStore()
	p := NewPersister(s, gated, logger.Discard(), 20*time.Millisecond)
	p.Hydrate(context.Background())
	waitHydrated(t, s)

	s.SetAuth(testUser(), "fresh")
	close(gated.gate)
	p.Wait()

	assert.Equal(t, "fresh", s.Token())

	raw, found, err := mem.GetItem(context.Background(), StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, raw, `"token":"fresh"`)
}

func TestPersister_WritesSubsetAndRemovesOnLogout(t *testing.T) {
	mem := storage.NewMemoryStorage()
	s := NewStore()
	p := NewPersister(s, mem, logger.Discard(), time.Second)
	p.Hydrate(context.Background())
	waitHydrated(t, s)
	p.Wait()

	s.SetLoading(true)
	s.SetAuth(testUser(), "tok")
	p.Wait()

	raw, found, err := mem.GetItem(context.Background(), StorageKey)
	require.NoError(t, err)
	require.True(t, found)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.JSONEq(t, `0`, string(decoded["version"]))

	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(decoded["state"], &state))
	assert.Len(t, state, 3)
	assert.JSONEq(t, `"tok"`, string(state["token"]))
	assert.JSONEq(t, `true`, string(state["isAuthenticated"]))
	assert.NotContains(t, state, "isLoading")
	assert.NotContains(t, state, "hasHydrated")

	s.ClearAuth()
	p.Close()

	_, found, err = mem.GetItem(context.Background(), StorageKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPersister_RoundTripThroughNewProcess(t *testing.T) {
	mem := storage.NewMemoryStorage()

	first := NewStore()
	p1 := NewPersister(first, mem, logger.Discard(), time.Second)
	p1.Hydrate(context.Background())
	waitHydrated(t, first)
	first.SetAuth(testUser(), "tok")
	p1.Close()

	second := NewStore()
	p2 := NewPersister(second, mem, logger.Discard(), time.Second)
	p2.Hydrate(context.Background())
	waitHydrated(t, second)
	p2.Close()

	assert.True(t, second.IsAuthenticated())
	assert.Equal(t, "ada@example.com", second.User().Email)
}
