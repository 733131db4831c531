package identity

import (
	"slices"
	"sync"
)

// Notifier fans auth-state transitions out to subscribers. Publish calls are
// serialized, so every subscriber sees transitions in the order published.
type Notifier struct {
	mu       sync.Mutex
	emitMu   sync.Mutex
	handlers map[uint64]func(User)
	nextID   uint64
	resolved bool
	current  User
}

// Subscribe registers handler. When the initial state is already known the
// handler is called with it before Subscribe returns.
func (n *Notifier) Subscribe(handler func(User)) func() {
	if handler == nil {
		return func() {}
	}

	n.emitMu.Lock()
	n.mu.Lock()
	if n.handlers == nil {
		n.handlers = make(map[uint64]func(User))
	}
	n.nextID++
	id := n.nextID
	n.handlers[id] = handler
	resolved, current := n.resolved, n.current
	n.mu.Unlock()
	if resolved {
		handler(current)
	}
	n.emitMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.handlers, id)
			n.mu.Unlock()
		})
	}
}

// Publish records user as the current state and notifies subscribers.
func (n *Notifier) Publish(user User) {
	n.emitMu.Lock()
	defer n.emitMu.Unlock()

	n.mu.Lock()
	n.resolved = true
	n.current = user
	handlers := make([]func(User), 0, len(n.handlers))
	ids := make([]uint64, 0, len(n.handlers))
	for id := range n.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, n.handlers[id])
	}
	n.mu.Unlock()

	for _, h := range handlers {
		h(user)
	}
}

// Current returns the last published state.
func (n *Notifier) Current() (User, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current, n.resolved
}
