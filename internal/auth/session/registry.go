package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	storeTimeout = 3 * time.Second

	// DefaultSignedOutIdle bounds how long a signed-out manager is kept.
	DefaultSignedOutIdle = 5 * time.Minute
)

// Registry owns one Manager per browser, keyed by the session cookie.
type Registry struct {
	factory identity.Factory
	store   Store
	cookies *Cookies
	idle    time.Duration
	// signedOutIdle applies to resolved managers with no session.
	signedOutIdle time.Duration
	log           *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type entry struct {
	manager     *Manager
	lastSeen    time.Time
	stopPersist func()
}

type RegistryParams struct {
	Factory     identity.Factory
	Store       Store
	Cookies     *Cookies
	IdleTimeout time.Duration
	// SignedOutIdle defaults to DefaultSignedOutIdle, capped at IdleTimeout.
	SignedOutIdle time.Duration
	Logger        *zap.Logger
}

func NewRegistry(p RegistryParams) *Registry {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	store := p.Store
	if store == nil {
		store = NewMemoryStore()
	}
	idle := p.IdleTimeout
	if idle <= 0 {
		idle = 12 * time.Hour
	}
	signedOutIdle := p.SignedOutIdle
	if signedOutIdle <= 0 {
		signedOutIdle = DefaultSignedOutIdle
	}
	if signedOutIdle > idle {
		signedOutIdle = idle
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		factory:       p.Factory,
		store:         store,
		cookies:       p.Cookies,
		idle:          idle,
		signedOutIdle: signedOutIdle,
		log:           log.Named("session"),
		now:           time.Now,
		entries:       make(map[string]*entry),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Acquire returns the browser's manager, minting a session cookie when the
// browser has none. A new manager resumes from the stored snapshot in the
// background, so it may still be unresolved when returned.
func (r *Registry) Acquire(c *gin.Context) (*Manager, string) {
	sid, ok := r.cookies.Read(c)
	if !ok {
		sid = uuid.NewString()
	}
	r.cookies.Set(c, sid, r.now().Add(r.idle))
	return r.open(c.Request.Context(), sid), sid
}

// Resolve returns the browser's manager without minting a session. A browser
// with no live manager only gets one when a stored snapshot can resume it;
// otherwise it is signed out and ok is false.
func (r *Registry) Resolve(c *gin.Context) (*Manager, bool) {
	sid, ok := r.cookies.Read(c)
	if !ok {
		return nil, false
	}
	manager, ok := r.Lookup(sid)
	if !ok {
		creds, found := r.load(c.Request.Context(), sid)
		if !found {
			return nil, false
		}
		manager = r.attach(sid, creds)
	}
	r.cookies.Set(c, sid, r.now().Add(r.idle))
	return manager, true
}

// Forget ends the browser session for sid: the manager is released and the
// stored snapshot deleted.
func (r *Registry) Forget(ctx context.Context, sid string) error {
	r.Release(sid)
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	return r.store.Delete(deleteCtx, sid)
}

// Lookup returns the manager for sid without creating one.
func (r *Registry) Lookup(sid string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sid]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.manager, true
}

func (r *Registry) open(ctx context.Context, sid string) *Manager {
	if manager, ok := r.Lookup(sid); ok {
		return manager
	}
	creds, _ := r.load(ctx, sid)
	return r.attach(sid, creds)
}

// attach registers a manager for sid and resumes it from creds. A manager
// registered concurrently wins.
func (r *Registry) attach(sid string, creds identity.Credentials) *Manager {
	r.mu.Lock()
	if e, ok := r.entries[sid]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.manager
	}

	manager := NewManager(r.factory(), r.log.With(zap.String("sid_hash", shortHash(sid))))
	e := &entry{manager: manager, lastSeen: r.now()}
	e.stopPersist = manager.Subscribe(r.persister(sid, manager))
	r.entries[sid] = e
	r.mu.Unlock()

	r.resume(sid, manager, creds)
	return manager
}

// load reads the snapshot for sid. A store outage reads as no snapshot.
func (r *Registry) load(ctx context.Context, sid string) (identity.Credentials, bool) {
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	creds, ok, err := r.store.Load(loadCtx, sid)
	if err != nil {
		r.log.Warn("session snapshot unavailable", zap.Error(err))
		return identity.Credentials{}, false
	}
	if !ok || creds.RefreshToken == "" {
		return identity.Credentials{}, false
	}
	return creds, true
}

func (r *Registry) resume(sid string, manager *Manager, creds identity.Credentials) {
	resumable, ok := manager.Provider().(identity.Resumable)
	if !ok {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := resumable.Resume(r.ctx, creds); err != nil && r.ctx.Err() == nil {
			r.log.Info("session resume failed", zap.String("sid_hash", shortHash(sid)), zap.Error(err))
		}
	}()
}

// persister mirrors sign-in and sign-out into the snapshot store.
func (r *Registry) persister(sid string, manager *Manager) func(*authdomain.Session) {
	return func(s *authdomain.Session) {
		ctx, cancel := context.WithTimeout(r.ctx, storeTimeout)
		defer cancel()

		if s == nil {
			if err := r.store.Delete(ctx, sid); err != nil {
				r.log.Warn("session snapshot delete failed", zap.Error(err))
			}
			return
		}
		resumable, ok := manager.Provider().(identity.Resumable)
		if !ok {
			return
		}
		creds, ok := resumable.Credentials()
		if !ok {
			return
		}
		if err := r.store.Save(ctx, sid, creds, r.idle); err != nil {
			r.log.Warn("session snapshot save failed", zap.Error(err))
		}
	}
}

// Release drops the in-memory manager for sid. The stored snapshot is kept.
func (r *Registry) Release(sid string) {
	r.mu.Lock()
	e, ok := r.entries[sid]
	delete(r.entries, sid)
	r.mu.Unlock()
	if ok {
		e.close()
	}
}

// Sweep releases managers idle for longer than the idle timeout. Managers that
// resolved signed out are released after the shorter signed-out idle time.
func (r *Registry) Sweep() int {
	now := r.now()
	cutoff := now.Add(-r.idle)
	signedOutCutoff := now.Add(-r.signedOutIdle)

	r.mu.Lock()
	var stale []*entry
	for sid, e := range r.entries {
		signedOut := e.manager.Resolved() && e.manager.Current() == nil
		if e.lastSeen.Before(cutoff) || (signedOut && e.lastSeen.Before(signedOutCutoff)) {
			stale = append(stale, e)
			delete(r.entries, sid)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.close()
	}
	if len(stale) > 0 {
		r.log.Debug("idle sessions released", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close releases every manager and waits for background resumes.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.close()
	}
}

func (e *entry) close() {
	if e.stopPersist != nil {
		e.stopPersist()
	}
	e.manager.Close()
}

// shortHash keeps session ids out of logs while letting lines be grouped.
func shortHash(sid string) string {
	sum := sha256.Sum256([]byte(sid))
	return hex.EncodeToString(sum[:6])
}
