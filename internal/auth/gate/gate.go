// Package gate decides, per protected view, whether to render content or
// send the browser to the login page.
package gate

import (
	"context"
	"sync"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
)

type State int

const (
	Pending State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "pending"
	}
}

// SessionSource is the session stream a gate observes.
type SessionSource interface {
	Subscribe(handler func(*authdomain.Session)) (unsubscribe func())
}

// Gate tracks one view's authentication state. It starts Pending and leaves
// Pending on the first session notification.
type Gate struct {
	mu      sync.Mutex
	state   State
	session *authdomain.Session
	torn    bool
	changed chan struct{}

	unsubscribe func()
}

func Mount(src SessionSource) *Gate {
	g := &Gate{changed: make(chan struct{})}
	g.unsubscribe = src.Subscribe(g.observe)
	return g
}

func (g *Gate) observe(s *authdomain.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.torn {
		return
	}

	g.session = s
	if s != nil {
		g.state = Authenticated
	} else {
		g.state = Unauthenticated
	}
	close(g.changed)
	g.changed = make(chan struct{})
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session is the session behind the Authenticated state, nil otherwise.
func (g *Gate) Session() *authdomain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Wait blocks until the gate has left Pending or ctx is done, and returns
// the state at that moment.
func (g *Gate) Wait(ctx context.Context) State {
	for {
		g.mu.Lock()
		state, changed, torn := g.state, g.changed, g.torn
		g.mu.Unlock()
		if state != Pending || torn {
			return state
		}

		select {
		case <-ctx.Done():
			return g.State()
		case <-changed:
		}
	}
}

// Teardown unsubscribes. Notifications arriving afterwards are discarded.
func (g *Gate) Teardown() {
	g.mu.Lock()
	if g.torn {
		g.mu.Unlock()
		return
	}
	g.torn = true
	close(g.changed)
	g.changed = make(chan struct{})
	g.mu.Unlock()

	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}
