package cache

import (
	"context"
	"sync"

	"github.com/yukikurage/task-management-client/internal/metrics"
	"github.com/yukikurage/task-management-client/internal/models"
)

// Phase is where a mutation call is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseApplying
	PhaseCommitting
	PhaseSucceeded
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseApplying:
		return "applying"
	case PhaseCommitting:
		return "committing"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Result is the outcome of one mutation call.
type Result[R any] struct {
	Value R
	Err   error
}

// OK reports whether the call succeeded.
func (r Result[R]) OK() bool { return r.Err == nil }

// MutationSpec describes an optimistic write.
//
// Apply edits the cached list as if Commit had already succeeded. Reconcile,
// when set, replaces that edit once the server answers; it receives the list
// as it was before Apply and must produce the confirmed list. Both get the
// placeholder id reserved for the call, for inserts that need one.
type MutationSpec[V, R any] struct {
	Name      string
	Key       func(vars V) Key
	Apply     func(tasks []models.Task, vars V, placeholderID int64) []models.Task
	Commit    func(ctx context.Context, vars V) (R, error)
	Reconcile func(tasks []models.Task, vars V, result R, placeholderID int64) []models.Task
}

// Mutation runs a MutationSpec against a Cache. It is safe for concurrent
// use; Phase reflects the most recent call.
type Mutation[V, R any] struct {
	cache *Cache
	spec  MutationSpec[V, R]

	mu       sync.Mutex
	phase    Phase
	seq      uint64
	inflight int
}

type mutationCall[V any] struct {
	seq           uint64
	key           Key
	vars          V
	placeholderID int64
	op            *pendingOp
}

func NewMutation[V, R any](c *Cache, spec MutationSpec[V, R]) *Mutation[V, R] {
	return &Mutation[V, R]{cache: c, spec: spec}
}

// Do applies the change optimistically, commits it and waits for the outcome.
func (m *Mutation[V, R]) Do(ctx context.Context, vars V) Result[R] {
	call := m.start(vars)
	return m.commit(ctx, call)
}

// Mutate applies the change optimistically before returning and commits it in
// the background. The channel receives exactly one result.
func (m *Mutation[V, R]) Mutate(ctx context.Context, vars V) <-chan Result[R] {
	call := m.start(vars)
	out := make(chan Result[R], 1)

	m.cache.wg.Add(1)
	go func() {
		defer m.cache.wg.Done()
		out <- m.commit(ctx, call)
		close(out)
	}()
	return out
}

// IsPending reports whether any call is still waiting for the server.
func (m *Mutation[V, R]) IsPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

// Phase returns the phase of the most recent call.
func (m *Mutation[V, R]) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Mutation[V, R]) start(vars V) mutationCall[V] {
	m.mu.Lock()
	m.seq++
	call := mutationCall[V]{
		seq:           m.seq,
		key:           m.spec.Key(vars),
		vars:          vars,
		placeholderID: m.cache.NextPlaceholderID(),
	}
	m.inflight++
	m.phase = PhaseApplying
	m.mu.Unlock()

	call.op = m.cache.begin(call.key, func(tasks []models.Task) []models.Task {
		if m.spec.Apply == nil {
			return tasks
		}
		return m.spec.Apply(tasks, vars, call.placeholderID)
	})

	m.setPhase(call.seq, PhaseCommitting)
	return call
}

func (m *Mutation[V, R]) commit(ctx context.Context, call mutationCall[V]) Result[R] {
	result, err := m.spec.Commit(ctx, call.vars)
	log := m.cache.opts.Logger.With("mutation", m.spec.Name, "key", string(call.key))

	if err != nil {
		m.cache.settle(call.op, false, nil)
		m.done(call.seq, PhaseRolledBack)
		m.cache.opts.Metrics.RecordMutation(m.spec.Name, metrics.OutcomeRolledBack)
		log.Warn("mutation rolled back", "error", err)
		return Result[R]{Err: err}
	}

	var reconcile func([]models.Task) []models.Task
	if m.spec.Reconcile != nil {
		reconcile = func(tasks []models.Task) []models.Task {
			return m.spec.Reconcile(tasks, call.vars, result, call.placeholderID)
		}
	}
	m.cache.settle(call.op, true, reconcile)
	m.done(call.seq, PhaseSucceeded)
	m.cache.opts.Metrics.RecordMutation(m.spec.Name, metrics.OutcomeSuccess)
	log.Debug("mutation committed")
	return Result[R]{Value: result}
}

func (m *Mutation[V, R]) setPhase(seq uint64, phase Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq == m.seq {
		m.phase = phase
	}
}

func (m *Mutation[V, R]) done(seq uint64, phase Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	if seq == m.seq {
		m.phase = phase
	}
}
