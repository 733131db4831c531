package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/session"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity/memory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type manualSource struct {
	mu       sync.Mutex
	handlers map[int]func(*authdomain.Session)
	nextID   int
}

func newManualSource() *manualSource {
	return &manualSource{handlers: make(map[int]func(*authdomain.Session))}
}

func (s *manualSource) Subscribe(handler func(*authdomain.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

func (s *manualSource) emit(session *authdomain.Session) {
	s.mu.Lock()
	handlers := make([]func(*authdomain.Session), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h(session)
	}
}

func (s *manualSource) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

func TestGateStartsPending(t *testing.T) {
	src := newManualSource()
	g := Mount(src)
	defer g.Teardown()

	assert.Equal(t, Pending, g.State())
	assert.Nil(t, g.Session())
	assert.Equal(t, 1, src.subscribers())
}

func TestGateTracksSession(t *testing.T) {
	src := newManualSource()
	g := Mount(src)
	defer g.Teardown()

	s := authdomain.NewSession("uid-1", "admin@example.com", true, nil)
	src.emit(s)
	assert.Equal(t, Authenticated, g.State())
	assert.Same(t, s, g.Session())

	src.emit(nil)
	assert.Equal(t, Unauthenticated, g.State())
	assert.Nil(t, g.Session())
}

func TestGateFirstNotificationSignedOut(t *testing.T) {
	src := newManualSource()
	g := Mount(src)
	defer g.Teardown()

	src.emit(nil)
	assert.Equal(t, Unauthenticated, g.State())
}

func TestWaitReturnsOnTransition(t *testing.T) {
	src := newManualSource()
	g := Mount(src)
	defer g.Teardown()

	go func() {
		time.Sleep(20 * time.Millisecond)
		src.emit(authdomain.NewSession("uid-1", "a@example.com", true, nil))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Equal(t, Authenticated, g.Wait(ctx))
}

func TestWaitHonoursContext(t *testing.T) {
	g := Mount(newManualSource())
	defer g.Teardown()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, Pending, g.Wait(ctx))
}

func TestTeardownDiscardsLateNotifications(t *testing.T) {
	src := newManualSource()
	g := Mount(src)

	handler := src.handlers[0]
	g.Teardown()
	g.Teardown()
	assert.Equal(t, 0, src.subscribers())

	handler(authdomain.NewSession("uid-1", "a@example.com", true, nil))
	assert.Equal(t, Pending, g.State())
	assert.Nil(t, g.Session())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/login", LoginURL("/login", ""))
	assert.Equal(t, "/login", LoginURL("/login", "/login"))
	assert.Equal(t, "/login?next=%2Fdashboard%3Fpage%3D2", LoginURL("/login", "/dashboard?page=2"))
}

type harness struct {
	registry *session.Registry
	engine   *gin.Engine
	mu       sync.Mutex
	hits     int
}

func newHarness(t *testing.T, dir *memory.Directory, store session.Store, opts Options) *harness {
	t.Helper()
	registry := session.NewRegistry(session.RegistryParams{
		Factory:     dir.Factory(),
		Store:       store,
		Cookies:     session.NewCookies(config.Config{}),
		IdleTimeout: time.Hour,
	})
	t.Cleanup(registry.Close)

	h := &harness{registry: registry, engine: gin.New()}
	h.engine.GET("/dashboard", Middleware(registry, opts), func(c *gin.Context) {
		h.mu.Lock()
		h.hits++
		h.mu.Unlock()
		view, _ := SessionView(c)
		assert.NotNil(t, session.CurrentFromContext(c.Request.Context()))
		c.String(http.StatusOK, "users for "+view.Email)
	})
	return h
}

func (h *harness) get(cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func (h *harness) handlerCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits
}

func cookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

// signIn creates a signed-in browser on h and returns its cookie.
func signIn(t *testing.T, h *harness) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/login", nil)
	m, _ := h.registry.Acquire(c)
	<-m.Ready()
	_, err := m.Login(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.Current() != nil }, time.Second, 5*time.Millisecond)
	return cookieFrom(t, w)
}

func TestMiddlewareRedirectsWithoutSession(t *testing.T) {
	h := newHarness(t, memory.NewDirectory(), nil, Options{PendingWait: time.Second})

	w := h.get(nil)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next=%2Fdashboard", w.Header().Get("Location"))
	assert.Equal(t, 0, h.handlerCalls())
}

func TestMiddlewareShowsLoadingUntilSessionResolves(t *testing.T) {
	dir := memory.NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", true)
	dir.ResolveDelay = 200 * time.Millisecond
	store := session.NewMemoryStore()

	h := newHarness(t, dir, store, Options{PendingWait: 20 * time.Millisecond})
	cookie := signIn(t, h)
	require.Eventually(t, func() bool {
		_, ok, _ := store.Load(context.Background(), cookie.Value)
		return ok
	}, time.Second, 5*time.Millisecond)

	// A restarted process knows the browser only through the snapshot.
	h.registry.Release(cookie.Value)

	first := h.get(cookie)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("Refresh"))
	assert.Equal(t, "no-store", first.Header().Get("Cache-Control"))
	assert.Contains(t, first.Body.String(), "Loading")
	assert.Empty(t, first.Header().Get("Location"))
	assert.Equal(t, 0, h.handlerCalls())

	require.Eventually(t, func() bool {
		m, ok := h.registry.Lookup(cookie.Value)
		return ok && m.Current() != nil
	}, time.Second, 10*time.Millisecond)

	second := h.get(cookie)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "users for admin@example.com", second.Body.String())
	assert.Equal(t, 1, h.handlerCalls())
}

func TestMiddlewareWaitsWithinPendingWindow(t *testing.T) {
	dir := memory.NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", true)
	dir.ResolveDelay = 50 * time.Millisecond
	store := session.NewMemoryStore()

	h := newHarness(t, dir, store, Options{PendingWait: 2 * time.Second})
	cookie := signIn(t, h)
	require.Eventually(t, func() bool {
		_, ok, _ := store.Load(context.Background(), cookie.Value)
		return ok
	}, time.Second, 5*time.Millisecond)
	h.registry.Release(cookie.Value)

	w := h.get(cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "users for admin@example.com", w.Body.String())
}

func TestMiddlewareJSONResponses(t *testing.T) {
	dir := memory.NewDirectory()
	h := newHarness(t, dir, nil, Options{PendingWait: time.Second, JSON: true})

	w := h.get(nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":{"type":"unauthorized","message":"unauthorized"}}`, w.Body.String())

	slow := memory.NewDirectory()
	slow.ResolveDelay = time.Second
	store := session.NewMemoryStore()
	sid := uuid.NewString()
	require.NoError(t, store.Save(context.Background(), sid, identity.Credentials{RefreshToken: "refresh-1"}, time.Hour))
	pending := newHarness(t, slow, store, Options{PendingWait: 10 * time.Millisecond, JSON: true})
	w = pending.get(&http.Cookie{Name: session.DefaultCookieName, Value: sid})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, 0, pending.handlerCalls())
}

func TestMiddlewareAnonymousTrafficRegistersNoManagers(t *testing.T) {
	h := newHarness(t, memory.NewDirectory(), session.NewMemoryStore(), Options{PendingWait: time.Second})

	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusSeeOther, h.get(nil).Code)
	}
	stranger := &http.Cookie{Name: session.DefaultCookieName, Value: uuid.NewString()}
	assert.Equal(t, http.StatusSeeOther, h.get(stranger).Code)

	assert.Equal(t, 0, h.registry.Len())
	assert.Equal(t, 0, h.handlerCalls())
}

func TestMiddlewareRequireAdmin(t *testing.T) {
	dir := memory.NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", false)
	h := newHarness(t, dir, nil, Options{PendingWait: time.Second, RequireAdmin: true})

	w := h.get(signIn(t, h))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, h.handlerCalls())
}

func TestMiddlewareAdminClaimAccepted(t *testing.T) {
	dir := memory.NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", true)
	h := newHarness(t, dir, nil, Options{PendingWait: time.Second, RequireAdmin: true})

	w := h.get(signIn(t, h))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.handlerCalls())
}
