// Package cache is the keyed task list cache and the optimistic mutation
// coordinator that writes to it.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	apierrors "github.com/yukikurage/task-management-client/internal/errors"
	"github.com/yukikurage/task-management-client/internal/logger"
	"github.com/yukikurage/task-management-client/internal/metrics"
	"github.com/yukikurage/task-management-client/internal/models"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultRetry      = 2
	DefaultRetryDelay = 500 * time.Millisecond

	maxRetryDelay = 30 * time.Second
)

// Fetcher loads the authoritative list for a key.
type Fetcher func(ctx context.Context) ([]models.Task, error)

// Options configures a Cache. Zero durations fall back to the defaults above.
type Options struct {
	StaleTime time.Duration

	// Retry is the number of extra attempts for retryable read failures.
	Retry      int
	RetryDelay time.Duration

	RefetchOnSettle bool
	Logger          *slog.Logger
	Metrics         metrics.Recorder
	Now             func() time.Time
}

// QueryResult is what a read returns.
type QueryResult struct {
	Data       []models.Task
	IsLoading  bool
	IsFetching bool
	IsStale    bool
	Err        error
	UpdatedAt  time.Time
}

// Cache holds task lists by key.
type Cache struct {
	opts  Options
	group singleflight.Group
	wg    sync.WaitGroup

	mu      sync.Mutex
	entries map[Key]*entry

	placeholders atomic.Int64
}

type entry struct {
	key Key

	// data is the view readers see: base with every pending op applied.
	data []models.Task
	// base is the state beneath the oldest pending op.
	base    []models.Task
	pending []*pendingOp

	updatedAt   time.Time
	invalidated bool
	err         error
	fetcher     Fetcher

	generation uint64
	cancel     context.CancelFunc
	fetching   int
	refreshing bool
}

type pendingOp struct {
	entry   *entry
	apply   func([]models.Task) []models.Task
	settled bool
}

func New(opts Options) *Cache {
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{opts: opts, entries: make(map[Key]*entry)}
}

// entryLocked returns the entry for key, creating it. Callers hold c.mu.
func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) staleLocked(e *entry) bool {
	return e.invalidated || c.opts.Now().Sub(e.updatedAt) > c.opts.StaleTime
}

func (c *Cache) resultLocked(e *entry) QueryResult {
	return QueryResult{
		Data:       models.CloneTasks(e.data),
		IsLoading:  e.data == nil && e.fetching > 0,
		IsFetching: e.fetching > 0,
		IsStale:    e.data != nil && c.staleLocked(e),
		Err:        e.err,
		UpdatedAt:  e.updatedAt,
	}
}

// Query reads key. Without cached data it fetches and waits. Cached data is
// returned immediately; when stale, a background refetch is started as well.
func (c *Cache) Query(ctx context.Context, key Key, fetch Fetcher) QueryResult {
	c.mu.Lock()
	e := c.entryLocked(key)
	if fetch != nil {
		e.fetcher = fetch
	}
	if e.data != nil {
		res := c.resultLocked(e)
		if res.IsStale {
			c.refreshLocked(e)
		}
		c.mu.Unlock()
		c.opts.Metrics.RecordCacheRead(true)
		return res
	}
	c.mu.Unlock()

	c.opts.Metrics.RecordCacheRead(false)
	return c.load(ctx, key)
}

// Refetch fetches key now and waits for the result.
func (c *Cache) Refetch(ctx context.Context, key Key, fetch Fetcher) QueryResult {
	c.mu.Lock()
	e := c.entryLocked(key)
	if fetch != nil {
		e.fetcher = fetch
	}
	e.invalidated = true
	c.mu.Unlock()

	return c.load(ctx, key)
}

// State reports the current view of key without any I/O.
func (c *Cache) State(key Key) QueryResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return QueryResult{}
	}
	return c.resultLocked(e)
}

// Peek returns a copy of the cached list for key.
func (c *Cache) Peek(key Key) ([]models.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.data == nil {
		return nil, false
	}
	return models.CloneTasks(e.data), true
}

// SetData replaces the server state of key. Pending optimistic ops stay
// applied on top of it.
func (c *Cache) SetData(key Key, tasks []models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	c.cancelFetchLocked(e)
	e.base = models.CloneTasks(tasks)
	e.data = fold(e.base, e.pending)
	e.updatedAt = c.opts.Now()
	e.invalidated = false
	e.err = nil
}

// Invalidate marks key stale so the next read refetches it.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.invalidated = true
	}
}

// InvalidatePrefix marks every key under prefix stale.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if k.HasPrefix(prefix) {
			e.invalidated = true
		}
	}
}

// Clear drops every entry and abandons in-flight fetches.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		c.cancelFetchLocked(e)
	}
	c.entries = make(map[Key]*entry)
}

// Wait blocks until background refetches and asynchronous mutations finish.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// NextPlaceholderID returns a fresh negative id for an optimistic insert.
func (c *Cache) NextPlaceholderID() int64 {
	return -c.placeholders.Add(1)
}

// cancelFetchLocked makes any in-flight fetch for e obsolete.
func (c *Cache) cancelFetchLocked(e *entry) {
	e.generation++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// refreshLocked starts a background refetch of e unless one is running or
// optimistic ops are pending.
func (c *Cache) refreshLocked(e *entry) {
	if e.refreshing || e.fetcher == nil || len(e.pending) > 0 {
		return
	}
	e.refreshing = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := c.load(context.Background(), e.key)
		c.mu.Lock()
		e.refreshing = false
		c.mu.Unlock()
		if res.Err != nil {
			c.opts.Logger.Warn("background refetch failed", "key", string(e.key), "error", res.Err)
		}
	}()
}

// load joins or starts the fetch for the current generation of key and
// waits for it, or for ctx.
func (c *Cache) load(ctx context.Context, key Key) QueryResult {
	c.mu.Lock()
	e := c.entryLocked(key)
	gen := e.generation
	fetcher := e.fetcher
	c.mu.Unlock()

	if fetcher == nil {
		return QueryResult{Err: fmt.Errorf("no fetcher registered for %s", key)}
	}

	ch := c.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		c.runFetch(e, gen, fetcher)
		return nil, nil
	})

	select {
	case <-ch:
	case <-ctx.Done():
		c.mu.Lock()
		res := c.resultLocked(e)
		c.mu.Unlock()
		res.Err = ctx.Err()
		return res
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultLocked(e)
}

// runFetch performs one fetch with retries and stores the result, unless
// the entry moved to a newer generation or has pending ops meanwhile.
func (c *Cache) runFetch(e *entry, gen uint64, fetcher Fetcher) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	if e.generation != gen {
		c.mu.Unlock()
		return
	}
	e.cancel = cancel
	e.fetching++
	c.mu.Unlock()

	data, err := c.fetchWithRetry(ctx, fetcher)
	c.opts.Metrics.RecordFetch(err == nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	e.fetching--
	if e.generation != gen || len(e.pending) > 0 {
		c.opts.Logger.Debug("discarding fetch result", "key", string(e.key))
		return
	}
	e.cancel = nil
	if err != nil {
		e.err = err
		return
	}
	if data == nil {
		data = []models.Task{}
	}
	e.base = data
	e.data = models.CloneTasks(data)
	e.updatedAt = c.opts.Now()
	e.invalidated = false
	e.err = nil
}

// fetchWithRetry retries transport and server failures with exponential
// backoff; authorization and validation failures are returned at once.
func (c *Cache) fetchWithRetry(ctx context.Context, fetcher Fetcher) ([]models.Task, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.RetryDelay
	policy.MaxInterval = maxRetryDelay
	policy.MaxElapsedTime = 0

	var data []models.Task
	err := backoff.Retry(func() error {
		var err error
		data, err = fetcher(ctx)
		if err != nil && !apierrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.opts.Retry)), ctx))
	return data, err
}

// begin pushes an optimistic op onto key and applies it to the view.
func (c *Cache) begin(key Key, apply func([]models.Task) []models.Task) *pendingOp {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	c.cancelFetchLocked(e)
	if len(e.pending) == 0 {
		e.base = models.CloneTasks(e.data)
	}
	op := &pendingOp{entry: e, apply: apply}
	e.pending = append(e.pending, op)
	e.data = apply(models.CloneTasks(e.data))
	return op
}

// settle resolves op. A failed op is dropped and the ops issued after it are
// replayed on the state it started from; the last failing op therefore
// restores that state exactly. A successful op keeps its place with
// reconcile (if any) replacing its optimistic apply. Settled ops at the
// bottom of the stack fold into the base. The key is always invalidated.
func (c *Cache) settle(op *pendingOp, ok bool, reconcile func([]models.Task) []models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := op.entry
	i := indexOf(e.pending, op)
	if i < 0 {
		return
	}

	if ok {
		if reconcile != nil {
			op.apply = reconcile
		}
		op.settled = true
	} else {
		e.pending = append(e.pending[:i], e.pending[i+1:]...)
	}

	for len(e.pending) > 0 && e.pending[0].settled {
		e.base = e.pending[0].apply(e.base)
		e.pending = e.pending[1:]
	}
	if len(e.pending) == 0 {
		e.data = models.CloneTasks(e.base)
	} else {
		e.data = fold(e.base, e.pending)
	}
	e.invalidated = true

	if len(e.pending) == 0 && c.opts.RefetchOnSettle && c.entries[e.key] == e {
		c.refreshLocked(e)
	}
}

func fold(base []models.Task, ops []*pendingOp) []models.Task {
	state := models.CloneTasks(base)
	for _, op := range ops {
		state = op.apply(state)
	}
	return state
}

func indexOf(ops []*pendingOp, op *pendingOp) int {
	for i, o := range ops {
		if o == op {
			return i
		}
	}
	return -1
}
