package session

import (
	"context"
	"sync"
	"sync/atomic"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"go.uber.org/zap"
)

// Manager is the single owner of one browser's session state. It mirrors the
// identity provider's auth state and fans changes out to subscribers.
//
// Handlers run on one dispatch goroutine, so every subscriber observes
// changes in the order the provider emitted them. A subscriber's first call
// carries the state current at subscription time.
type Manager struct {
	provider identity.Provider
	log      *zap.Logger

	mu       sync.Mutex
	current  *authdomain.Session
	resolved bool
	subs     []*subscriber
	queue    []event
	closed   bool

	ready   chan struct{}
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}

	unsubscribeProvider func()
	closeOnce           sync.Once
}

type subscriber struct {
	handler func(*authdomain.Session)
	removed atomic.Bool
}

type event struct {
	session *authdomain.Session
	targets []*subscriber
}

func NewManager(provider identity.Provider, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		provider: provider,
		log:      log,
		ready:    make(chan struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go m.run()
	m.unsubscribeProvider = provider.SubscribeAuthState(m.onAuthState)
	return m
}

// Login signs in with the provider. The returned session is informational:
// the manager's current session changes only when the provider reports it.
func (m *Manager) Login(ctx context.Context, email, password string) (*authdomain.Session, error) {
	user, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		authErr := authdomain.AsAuthError(err)
		m.log.Info("login rejected", zap.String("code", authErr.Code), zap.Error(authErr.Kind))
		return nil, authErr
	}
	return toSession(user), nil
}

// Logout asks the provider to sign out. The provider's change event clears
// the session.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		return authdomain.AsAuthError(err)
	}
	return nil
}

// Subscribe registers handler. The returned function unsubscribes; once it
// returns no further invocation of handler begins. It is safe to call more
// than once and from inside handler.
func (m *Manager) Subscribe(handler func(*authdomain.Session)) func() {
	sub := &subscriber{handler: handler}
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	m.subs = append(m.subs, sub)
	if m.resolved {
		m.queue = append(m.queue, event{session: m.current, targets: []*subscriber{sub}})
	}
	m.mu.Unlock()
	m.signal()

	return func() {
		if sub.removed.Swap(true) {
			return
		}
		m.mu.Lock()
		for i, s := range m.subs {
			if s == sub {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
	}
}

// Current is a synchronous read of the last state the provider reported.
func (m *Manager) Current() *authdomain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Resolved reports whether the provider has published its initial state.
func (m *Manager) Resolved() bool {
	select {
	case <-m.ready:
		return true
	default:
		return false
	}
}

// Ready is closed once the provider has published its initial state.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Provider exposes the underlying provider connection.
func (m *Manager) Provider() identity.Provider {
	return m.provider
}

// Close detaches from the provider and stops dispatch. Queued
// notifications are dropped. It must not be called from a handler.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribeProvider != nil {
			m.unsubscribeProvider()
		}
		m.mu.Lock()
		m.closed = true
		m.queue = nil
		m.subs = nil
		m.mu.Unlock()
		close(m.done)
		<-m.stopped
	})
}

func (m *Manager) onAuthState(user identity.User) {
	session := toSession(user)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.current = session
	if !m.resolved {
		m.resolved = true
		close(m.ready)
	}
	targets := make([]*subscriber, len(m.subs))
	copy(targets, m.subs)
	m.queue = append(m.queue, event{session: session, targets: targets})
	m.mu.Unlock()

	m.signal()
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) run() {
	defer close(m.stopped)
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
			m.drain()
		}
	}
}

func (m *Manager) drain() {
	for {
		m.mu.Lock()
		if m.closed || len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		ev := m.queue[0]
		m.queue[0] = event{}
		m.queue = m.queue[1:]
		m.mu.Unlock()

		for _, sub := range ev.targets {
			if sub.removed.Load() {
				continue
			}
			m.deliver(sub, ev.session)
		}
	}
}

func (m *Manager) deliver(sub *subscriber, session *authdomain.Session) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("session handler panicked", zap.Any("panic", r))
		}
	}()
	sub.handler(session)
}

func toSession(user identity.User) *authdomain.Session {
	if user == nil {
		return nil
	}
	return authdomain.NewSession(user.UID(), user.Email(), user.EmailVerified(), user)
}
