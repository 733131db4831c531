package session

import (
	"context"
	"errors"
	"testing"
	"time"

	authdomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeUser struct{ uid string }

func (u fakeUser) UID() string                             { return u.uid }
func (u fakeUser) Email() string                           { return u.uid + "@example.com" }
func (u fakeUser) EmailVerified() bool                     { return true }
func (u fakeUser) IDToken(context.Context) (string, error) { return "token-" + u.uid, nil }

// fakeProvider publishes only when the test says so.
type fakeProvider struct {
	notifier  identity.Notifier
	signInErr error
	signedIn  identity.User
}

func (p *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (identity.User, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	p.signedIn = fakeUser{uid: "uid-1"}
	return p.signedIn, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.notifier.Publish(nil)
	return nil
}

func (p *fakeProvider) SubscribeAuthState(handler func(identity.User)) func() {
	return p.notifier.Subscribe(handler)
}

func (p *fakeProvider) CurrentUser() identity.User {
	u, _ := p.notifier.Current()
	return u
}

func (p *fakeProvider) emit(uid string) {
	if uid == "" {
		p.notifier.Publish(nil)
		return
	}
	p.notifier.Publish(fakeUser{uid: uid})
}

type recorder struct {
	ch chan string
}

func newRecorder() *recorder { return &recorder{ch: make(chan string, 64)} }

func (r *recorder) handle(s *authdomain.Session) {
	if s == nil {
		r.ch <- ""
		return
	}
	r.ch <- s.ID
}

func (r *recorder) next(t *testing.T) string {
	t.Helper()
	select {
	case v := <-r.ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session notification")
		return ""
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case v := <-r.ch:
		t.Fatalf("unexpected notification %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeBeforeResolutionGetsOneCallPerEvent(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)
	defer m.Close()

	rec := newRecorder()
	unsubscribe := m.Subscribe(rec.handle)
	defer unsubscribe()
	rec.none(t)
	assert.False(t, m.Resolved())

	provider.emit("")
	provider.emit("uid-1")
	provider.emit("")
	provider.emit("uid-2")

	assert.Equal(t, "", rec.next(t))
	assert.Equal(t, "uid-1", rec.next(t))
	assert.Equal(t, "", rec.next(t))
	assert.Equal(t, "uid-2", rec.next(t))
	rec.none(t)
	assert.True(t, m.Resolved())
}

func TestSubscribeAfterResolutionGetsInitialState(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)
	defer m.Close()

	provider.emit("uid-1")
	<-m.Ready()

	rec := newRecorder()
	unsubscribe := m.Subscribe(rec.handle)
	defer unsubscribe()

	assert.Equal(t, "uid-1", rec.next(t))
	rec.none(t)

	provider.emit("")
	assert.Equal(t, "", rec.next(t))
	rec.none(t)
}

func TestEverySubscriberSeesTheSameOrder(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)
	defer m.Close()

	a, b := newRecorder(), newRecorder()
	defer m.Subscribe(a.handle)()
	defer m.Subscribe(b.handle)()

	for _, uid := range []string{"", "x", "y", ""} {
		provider.emit(uid)
	}
	for _, rec := range []*recorder{a, b} {
		assert.Equal(t, []string{"", "x", "y", ""}, []string{rec.next(t), rec.next(t), rec.next(t), rec.next(t)})
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)
	defer m.Close()

	rec := newRecorder()
	unsubscribe := m.Subscribe(rec.handle)
	provider.emit("uid-1")
	assert.Equal(t, "uid-1", rec.next(t))

	unsubscribe()
	unsubscribe()
	provider.emit("")
	rec.none(t)
}

func TestUnsubscribeFromInsideHandler(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)
	defer m.Close()

	calls := make(chan struct{}, 8)
	var unsubscribe func()
	unsubscribe = m.Subscribe(func(*authdomain.Session) {
		calls <- struct{}{}
		unsubscribe()
	})

	provider.emit("uid-1")
	provider.emit("")
	provider.emit("uid-2")

	<-calls
	select {
	case <-calls:
		t.Fatal("handler invoked after unsubscribing")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoginDoesNotSetCurrentSession(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)
	defer m.Close()
	provider.emit("")

	session, err := m.Login(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", session.ID)
	assert.Nil(t, m.Current())

	provider.emit("uid-1")
	require.Eventually(t, func() bool { return m.Current() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "uid-1", m.Current().ID)
}

func TestLoginNormalizesErrors(t *testing.T) {
	provider := &fakeProvider{signInErr: errors.New("boom")}
	m := NewManager(provider, nil)
	defer m.Close()

	_, err := m.Login(context.Background(), "admin@example.com", "secret")
	assert.ErrorIs(t, err, authdomain.ErrProviderError)

	provider.signInErr = authdomain.NewAuthError(authdomain.ErrInvalidCredentials, "INVALID_PASSWORD", "Invalid email or password", nil)
	_, err = m.Login(context.Background(), "admin@example.com", "secret")
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLogoutClearsSessionThroughProviderEvent(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)
	defer m.Close()
	provider.emit("uid-1")

	rec := newRecorder()
	defer m.Subscribe(rec.handle)()
	assert.Equal(t, "uid-1", rec.next(t))

	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, "", rec.next(t))
	assert.Nil(t, m.Current())
}

func TestSessionTokenIsDerivedFromProvider(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)
	defer m.Close()
	provider.emit("uid-1")

	token, err := m.Current().Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-uid-1", token)
}

func TestCloseStopsDispatch(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)

	rec := newRecorder()
	m.Subscribe(rec.handle)
	m.Close()
	m.Close()

	provider.emit("uid-1")
	rec.none(t)

	unsubscribe := m.Subscribe(rec.handle)
	unsubscribe()
}

func TestContextHelpers(t *testing.T) {
	assert.Nil(t, CurrentFromContext(context.Background()))

	provider := &fakeProvider{}
	m := NewManager(provider, nil)
	defer m.Close()
	provider.emit("uid-1")

	ctx := WithManager(context.Background(), m)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, m, got)
	require.NotNil(t, CurrentFromContext(ctx))
	assert.Equal(t, "uid-1", CurrentFromContext(ctx).ID)
}
