package guard

import (
	"strings"
	"sync"
)

// Routes of the application.
const (
	RouteLanding   = "/"
	RouteLogin     = "/(auth)/login"
	RouteRegister  = "/(auth)/register"
	RouteDashboard = "/(tabs)"
	RouteProfile   = "/(tabs)/profile"
	RouteTaskModal = "/modal"
)

// Area is the location class the guard reasons about.
type Area int

const (
	// AreaOther covers the landing screen and modals.
	AreaOther Area = iota
	// AreaAuth is the unauthenticated area (login, register).
	AreaAuth
	// AreaApp is the authenticated area (dashboard, profile).
	AreaApp
)

func (a Area) String() string {
	switch a {
	case AreaAuth:
		return "auth"
	case AreaApp:
		return "app"
	default:
		return "other"
	}
}

// AreaOf classifies a path by its first segment.
func AreaOf(path string) Area {
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	switch first {
	case "(auth)":
		return AreaAuth
	case "(tabs)":
		return AreaApp
	default:
		return AreaOther
	}
}

// Router is an in-memory navigation stack.
type Router struct {
	mu        sync.Mutex
	stack     []string
	listeners map[int]func(location string)
	nextID    int
}

func NewRouter(initial string) *Router {
	if initial == "" {
		initial = RouteLanding
	}
	return &Router{
		stack:     []string{initial},
		listeners: make(map[int]func(string)),
	}
}

// Location returns the current path.
func (r *Router) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stack[len(r.stack)-1]
}

// Push navigates forward to path.
func (r *Router) Push(path string) {
	r.mu.Lock()
	r.stack = append(r.stack, path)
	r.notify()
}

// Replace swaps the current location for path.
func (r *Router) Replace(path string) {
	r.mu.Lock()
	r.stack[len(r.stack)-1] = path
	r.notify()
}

// replaceFrom replaces the current location only while it is still from.
func (r *Router) replaceFrom(from, to string) bool {
	r.mu.Lock()
	if r.stack[len(r.stack)-1] != from {
		r.mu.Unlock()
		return false
	}
	r.stack[len(r.stack)-1] = to
	r.notify()
	return true
}

// Back pops the current location. It reports false at the root.
func (r *Router) Back() bool {
	r.mu.Lock()
	if len(r.stack) < 2 {
		r.mu.Unlock()
		return false
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.notify()
	return true
}

func (r *Router) CanGoBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack) > 1
}

// Subscribe registers fn for location changes.
func (r *Router) Subscribe(fn func(location string)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// notify releases r.mu and calls listeners. Callers hold r.mu.
func (r *Router) notify() {
	location := r.stack[len(r.stack)-1]
	listeners := make([]func(string), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(location)
	}
}
