package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yukikurage/task-management-client/internal/storage"
)

const (
	// StorageKey names the persisted session record.
	StorageKey = "todoApp-auth-store"

	// DefaultHydrationTimeout bounds how long startup waits for storage.
	DefaultHydrationTimeout = 3 * time.Second

	recordVersion = 0
	writeTimeout  = 5 * time.Second
)

type record struct {
	State   Persisted `json:"state"`
	Version int       `json:"version"`
}

// Persister mirrors the store into device storage and restores it at startup.
type Persister struct {
	store   *Store
	storage storage.Storage
	logger  *slog.Logger
	timeout time.Duration

	once        sync.Once
	restored    atomic.Bool
	unsubscribe func()
	wg          sync.WaitGroup

	writeMu     sync.Mutex
	lastVersion uint64
}

// NewPersister wires store to st. A zero timeout uses DefaultHydrationTimeout.
func NewPersister(store *Store, st storage.Storage, logger *slog.Logger, timeout time.Duration) *Persister {
	if timeout <= 0 {
		timeout = DefaultHydrationTimeout
	}
	return &Persister{
		store:   store,
		storage: st,
		logger:  logger,
		timeout: timeout,
	}
}

// Hydrate starts restoring the persisted session in the background and
// returns immediately. The store's hydration latch is set when the restore
// finishes, fails, or when the timeout fires, whichever comes first.
// Only the first call has an effect.
func (p *Persister) Hydrate(ctx context.Context) {
	p.once.Do(func() {
		p.unsubscribe = p.store.Subscribe(p.onChange)

		timer := time.AfterFunc(p.timeout, func() {
			if !p.store.HasHydrated() {
				p.logger.Warn("session hydration timed out", "timeout", p.timeout)
			}
			p.store.SetHasHydrated()
		})

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.restore(ctx)
			timer.Stop()
			p.restored.Store(true)
			p.store.SetHasHydrated()
			// Transitions during the restore window were skipped; write
			// whatever the store holds now.
			p.write(p.store.State())
		}()
	})
}

func (p *Persister) restore(ctx context.Context) {
	raw, found, err := p.storage.GetItem(ctx, StorageKey)
	if err != nil {
		p.logger.Error("failed to read persisted session", "error", err)
		return
	}
	if !found {
		return
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		p.logger.Warn("discarding unreadable persisted session", "error", err)
		return
	}
	if rec.Version != recordVersion {
		p.logger.Warn("discarding persisted session with unknown version", "version", rec.Version)
		return
	}

	if !p.store.Restore(rec.State) {
		p.logger.Info("persisted session arrived after a newer sign-in; ignored")
	}
}

func (p *Persister) onChange(state State) {
	if !state.HasHydrated || !p.restored.Load() {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.write(state)
	}()
}

// write stores the persisted subset of state unless a newer version has
// already been written.
func (p *Persister) write(state State) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if state.Version <= p.lastVersion {
		return
	}
	p.lastVersion = state.Version

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	subset := state.Persisted()
	if subset.Empty() {
		if err := p.storage.RemoveItem(ctx, StorageKey); err != nil {
			p.logger.Error("failed to remove persisted session", "error", err)
		}
		return
	}

	body, err := json.Marshal(record{State: subset, Version: recordVersion})
	if err != nil {
		p.logger.Error("failed to encode session", "error", err)
		return
	}
	if err := p.storage.SetItem(ctx, StorageKey, string(body)); err != nil {
		p.logger.Error("failed to persist session", "error", err)
	}
}

// Wait blocks until the restore and all pending writes have finished.
func (p *Persister) Wait() {
	p.wg.Wait()
}

// Close stops mirroring and waits for outstanding writes.
func (p *Persister) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	p.wg.Wait()
}
