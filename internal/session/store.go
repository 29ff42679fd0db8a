// Package session holds the authenticated user and bearer token, and tracks
// whether persisted state has been restored yet.
package session

import (
	"context"
	"sync"

	"github.com/yukikurage/task-management-client/internal/models"
)

// State is an immutable view of the store. Version increases on every change.
type State struct {
	User            *models.User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
	HasHydrated     bool
	Version         uint64
}

// Persisted is the subset of State written to device storage.
type Persisted struct {
	User            *models.User `json:"user"`
	Token           string       `json:"token"`
	IsAuthenticated bool         `json:"isAuthenticated"`
}

// Empty reports whether there is nothing worth persisting.
func (p Persisted) Empty() bool {
	return p.User == nil && p.Token == ""
}

// Persisted extracts the persisted subset.
func (s State) Persisted() Persisted {
	return Persisted{User: s.User, Token: s.Token, IsAuthenticated: s.IsAuthenticated}
}

// Listener receives the state after each change. Listeners run on the
// goroutine that made the change, after the store lock is released.
type Listener func(State)

// Store is the session container. The zero value is not usable; call NewStore.
type Store struct {
	mu        sync.Mutex
	user      *models.User
	token     string
	loading   bool
	hydrated  bool
	version   uint64
	written   bool
	hydratedC chan struct{}

	listeners map[int]Listener
	nextID    int
}

func NewStore() *Store {
	return &Store{
		hydratedC: make(chan struct{}),
		listeners: make(map[int]Listener),
	}
}

// SetAuth stores user and token together. A nil user or an empty token
// leaves the session signed out, so the pair is never half set.
func (s *Store) SetAuth(user *models.User, token string) {
	s.mu.Lock()
	if user == nil || token == "" {
		s.user, s.token = nil, ""
	} else {
		u := *user
		s.user, s.token = &u, token
	}
	s.loading = false
	s.written = true
	s.commit()
}

// ClearAuth signs the session out. Calling it on an empty session is a no-op.
func (s *Store) ClearAuth() {
	s.mu.Lock()
	if s.user == nil && s.token == "" && !s.loading {
		s.mu.Unlock()
		return
	}
	s.user, s.token = nil, ""
	s.loading = false
	s.written = true
	s.commit()
}

// SetLoading toggles the transient busy flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	if s.loading == loading {
		s.mu.Unlock()
		return
	}
	s.loading = loading
	s.commit()
}

// SetHasHydrated latches the hydration flag. Only the first call has an effect.
func (s *Store) SetHasHydrated() {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return
	}
	s.hydrated = true
	close(s.hydratedC)
	s.commit()
}

// Restore applies a persisted subset read at startup. It is ignored once the
// session has been written by SetAuth or ClearAuth, so a slow restore cannot
// overwrite a newer login. The authentication flag is recomputed from the
// restored user and token rather than taken from p.
func (s *Store) Restore(p Persisted) bool {
	s.mu.Lock()
	if s.written {
		s.mu.Unlock()
		return false
	}
	if p.User == nil || p.Token == "" {
		s.user, s.token = nil, ""
	} else {
		u := *p.User
		s.user, s.token = &u, p.Token
	}
	s.commit()
	return true
}

// commit bumps the version, releases the lock and notifies listeners.
// Callers must hold s.mu.
func (s *Store) commit() {
	s.version++
	state := s.snapshot()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

func (s *Store) snapshot() State {
	st := State{
		Token:           s.token,
		IsAuthenticated: s.user != nil && s.token != "",
		IsLoading:       s.loading,
		HasHydrated:     s.hydrated,
		Version:         s.version,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.token != ""
}

func (s *Store) HasHydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Hydrated returns a channel that is closed once hydration completes.
func (s *Store) Hydrated() <-chan struct{} {
	return s.hydratedC
}

// WaitHydrated blocks until hydration completes or ctx is done.
func (s *Store) WaitHydrated(ctx context.Context) error {
	select {
	case <-s.hydratedC:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers l for future changes and returns a function that
// removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
