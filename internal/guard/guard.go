// Package guard keeps the navigation location consistent with the session.
package guard

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/yukikurage/task-management-client/internal/logger"
	"github.com/yukikurage/task-management-client/internal/session"
)

// Session is the part of the session store the guard observes.
type Session interface {
	State() session.State
	Subscribe(l session.Listener) func()
}

// Decide returns where to redirect, if anywhere. Nothing moves before
// hydration; afterwards signed-out users leave the app area and signed-in
// users leave the auth area.
func Decide(hydrated, authenticated bool, area Area) (target string, redirect bool) {
	if !hydrated {
		return "", false
	}
	switch {
	case !authenticated && area == AreaApp:
		return RouteLogin, true
	case authenticated && area == AreaAuth:
		return RouteDashboard, true
	default:
		return "", false
	}
}

// LandingTarget is where the landing screen sends the user once hydrated.
func LandingTarget(authenticated bool) string {
	if authenticated {
		return RouteDashboard
	}
	return RouteLogin
}

// Guard redirects the router whenever the session or the location changes.
type Guard struct {
	session Session
	router  *Router
	logger  *slog.Logger

	redirects atomic.Int64

	mu   sync.Mutex
	stop []func()
}

func New(s Session, r *Router, log *slog.Logger) *Guard {
	if log == nil {
		log = logger.Discard()
	}
	return &Guard{session: s, router: r, logger: log}
}

// Evaluate applies Decide to the current state. The landing screen is
// resolved here too once hydration is done.
func (g *Guard) Evaluate() {
	st := g.session.State()
	location := g.router.Location()

	target, redirect := Decide(st.HasHydrated, st.IsAuthenticated, AreaOf(location))
	if !redirect && st.HasHydrated && location == RouteLanding {
		target, redirect = LandingTarget(st.IsAuthenticated), true
	}
	if !redirect {
		return
	}

	if g.router.replaceFrom(location, target) {
		g.redirects.Add(1)
		g.logger.Info("route guard redirect",
			"from", location,
			"to", target,
			"authenticated", st.IsAuthenticated,
		)
	}
}

// Start evaluates once and then on every session or location change.
func (g *Guard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop != nil {
		return
	}
	g.stop = []func(){
		g.session.Subscribe(func(session.State) { g.Evaluate() }),
		g.router.Subscribe(func(string) { g.Evaluate() }),
	}
	g.Evaluate()
}

// Stop unsubscribes from both sources.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, fn := range g.stop {
		fn()
	}
	g.stop = nil
}

// Redirects counts the redirects performed so far.
func (g *Guard) Redirects() int {
	return int(g.redirects.Load())
}
