package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/session"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity/memory"
	"github.com/Cookseyyyyyy/ntadmindashboard/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	header http.Header
	body   map[string]any
}

// fakeAPI serves canned responses and records every request it sees.
type fakeAPI struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{
		method: r.Method,
		path:   r.URL.Path,
		header: r.Header.Clone(),
		body:   body,
	})
	status, payload := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (f *fakeAPI) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeAPI) calls() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.requests...)
}

func newTestClient(t *testing.T, api http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(Params{BaseURL: srv.URL + "/api/", HTTPClient: srv.Client()})
}

func TestListUsersNormalizesShapes(t *testing.T) {
	u1 := `{"id":"1","email":"admin@example.com","role":"admin","isActive":true}`
	u2 := `{"id":2,"email":"user@example.com","role":"user","isActive":false,"subscriptionTier":"team"}`
	list := "[" + u1 + "," + u2 + "]"

	cases := map[string]string{
		"data.users":          `{"data":{"users":` + list + `}}`,
		"data":                `{"data":` + list + `}`,
		"root":                list,
		"users":               `{"users":` + list + `}`,
		"envelope data.users": `{"status":"success","data":{"users":` + list + `}}`,
		"envelope array":      `{"status":"success","data":` + list + `}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			api := &fakeAPI{}
			api.respond(http.StatusOK, body)
			c := newTestClient(t, api)

			users, err := c.ListUsers(context.Background())
			require.NoError(t, err)
			require.Len(t, users, 2)
			assert.Equal(t, domain.UserID("1"), users[0].ID)
			assert.Equal(t, domain.UserID("2"), users[1].ID)
			assert.Equal(t, domain.TierFree, users[0].SubscriptionTier)
			assert.Equal(t, domain.TierTeam, users[1].SubscriptionTier)

			calls := api.calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "/api/users", calls[0].path)
		})
	}
}

func TestListUsersEmptyIsNotAnError(t *testing.T) {
	for _, body := range []string{`{"status":"success","data":[]}`, `{"status":"success","data":{}}`, `{}`} {
		api := &fakeAPI{}
		api.respond(http.StatusOK, body)
		c := newTestClient(t, api)

		users, err := c.ListUsers(context.Background())
		require.NoError(t, err, body)
		assert.NotNil(t, users, body)
		assert.Empty(t, users, body)
	}
}

func TestCreateUserWithoutIdentityMakesNoCall(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	_, err := c.CreateUser(context.Background(), domain.NewUser{
		Email:    "a@b.com",
		Role:     domain.RoleUser,
		Password: "x",
	})

	require.ErrorIs(t, err, domain.ErrValidationFailure)
	assert.Empty(t, api.calls())
}

func TestCreateUserRejectsInvalidFieldsLocally(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	_, err := c.CreateUser(context.Background(), domain.NewUser{
		Email:       "not-an-email",
		Role:        "owner",
		FirebaseUID: "fb-1",
	})

	require.ErrorIs(t, err, domain.ErrValidationFailure)
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Contains(t, err.Error(), "role must be one of: user admin")
	assert.Empty(t, api.calls())
}

func TestCreateUserNeverSendsPassword(t *testing.T) {
	api := &fakeAPI{}
	api.respond(http.StatusCreated, `{"status":"success","data":{"id":"7","email":"a@b.com","role":"user","isActive":true,"firebaseUid":"fb-1"}}`)
	c := newTestClient(t, api)

	record, err := c.CreateUser(context.Background(), domain.NewUser{
		Email:       "a@b.com",
		DisplayName: "A",
		Role:        domain.RoleUser,
		IsActive:    true,
		FirebaseUID: "fb-1",
		Password:    "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("7"), record.ID)

	calls := api.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/api/users/create", calls[0].path)
	assert.Equal(t, map[string]any{
		"email":       "a@b.com",
		"displayName": "A",
		"role":        "user",
		"isActive":    true,
		"firebaseUid": "fb-1",
	}, calls[0].body)
}

func TestUpdateUserPasswordHandling(t *testing.T) {
	api := &fakeAPI{}
	api.respond(http.StatusOK, `{"status":"success","data":{"id":"1","email":"a@b.com","role":"user","isActive":true}}`)
	c := newTestClient(t, api)

	empty, newPass := "", "newpass"
	_, err := c.UpdateUser(context.Background(), "1", domain.UserUpdate{Password: &empty})
	require.NoError(t, err)
	_, err = c.UpdateUser(context.Background(), "1", domain.UserUpdate{Password: &newPass})
	require.NoError(t, err)

	calls := api.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPut, calls[0].method)
	assert.Equal(t, "/api/users/1", calls[0].path)
	assert.NotContains(t, calls[0].body, "password")
	assert.Equal(t, "newpass", calls[1].body["password"])
}

func TestUpdateUserSendsOnlyProvidedFields(t *testing.T) {
	api := &fakeAPI{}
	api.respond(http.StatusOK, `{"status":"success","data":null}`)
	c := newTestClient(t, api)

	role := domain.RoleAdmin
	active := false
	record, err := c.UpdateUser(context.Background(), "1", domain.UserUpdate{Role: &role, IsActive: &active})
	require.NoError(t, err)
	assert.Nil(t, record)

	calls := api.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"role": "admin", "isActive": false}, calls[0].body)
}

// recordAPI is a tiny stateful user store used for round trips.
type recordAPI struct {
	mu    sync.Mutex
	users map[string]map[string]any
	next  int
}

func (a *recordAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/users/create":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.next++
		body["id"] = a.next
		body["createdAt"] = "2024-03-01T10:00:00Z"
		delete(body, "firebaseUid")
		a.users["/users/"+jsonNumber(a.next)] = body
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": body})
	case r.Method == http.MethodGet:
		user, ok := a.users[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"status":"error","message":"User not found"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": user})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func jsonNumber(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	c := newTestClient(t, &recordAPI{users: map[string]map[string]any{}})
	c.baseURL = strings.TrimSuffix(c.baseURL, "/api")

	in := domain.NewUser{
		Email:       "new@example.com",
		DisplayName: "New Person",
		Role:        domain.RoleAdmin,
		IsActive:    true,
		FirebaseUID: "fb-42",
		Password:    "hunter22",
	}
	created, err := c.CreateUser(context.Background(), in)
	require.NoError(t, err)

	got, err := c.GetUser(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("1"), got.ID)
	assert.Equal(t, in.Email, got.Email)
	assert.Equal(t, in.DisplayName, got.DisplayName)
	assert.Equal(t, in.Role, got.Role)
	assert.Equal(t, in.IsActive, got.IsActive)
	require.NotNil(t, got.CreatedAt)

	_, err = c.GetUser(context.Background(), "99")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "User not found")
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   error
		msg    string
	}{
		{http.StatusUnauthorized, `{"message":"token expired"}`, domain.ErrUnauthorized, "token expired"},
		{http.StatusForbidden, `{"error":"admins only"}`, domain.ErrUnauthorized, "admins only"},
		{http.StatusNotFound, ``, domain.ErrNotFound, "Not Found"},
		{http.StatusBadRequest, `{"error":{"message":"email taken"}}`, domain.ErrValidationFailure, "email taken"},
		{http.StatusConflict, `{}`, domain.ErrValidationFailure, "Conflict"},
		{http.StatusUnprocessableEntity, `{}`, domain.ErrValidationFailure, ""},
		{http.StatusInternalServerError, `{"status":"error","message":"boom"}`, domain.ErrServerError, "boom"},
		{http.StatusBadGateway, `<html>`, domain.ErrServerError, "Bad Gateway"},
	}

	for _, tc := range cases {
		api := &fakeAPI{}
		api.respond(tc.status, tc.body)
		c := newTestClient(t, api)

		_, err := c.GetUser(context.Background(), "1")
		require.ErrorIs(t, err, tc.kind, "status %d", tc.status)

		var apiErr *domain.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, tc.status, apiErr.StatusCode)
		if tc.msg != "" {
			assert.Equal(t, tc.msg, apiErr.Message)
		}
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Params{BaseURL: url, Timeout: time.Second})
	_, err := c.ListUsers(context.Background())
	require.ErrorIs(t, err, domain.ErrNetworkFailure)
}

func TestDeleteUserMessage(t *testing.T) {
	cases := map[string]string{
		`{"status":"success","data":"User 3 removed"}`:            "User 3 removed",
		`{"status":"success","data":{"message":"gone"}}`:          "gone",
		`{"status":"success","message":"deleted","data":null}`:    deletedMessage,
		`{"status":"success"}`:                                    deletedMessage,
		``:                                                        deletedMessage,
		`{"status":"success","data":"quote \"escaped\" message"}`: `quote "escaped" message`,
	}
	for body, want := range cases {
		api := &fakeAPI{}
		api.respond(http.StatusOK, body)
		c := newTestClient(t, api)

		got, err := c.DeleteUser(context.Background(), "3")
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)

		calls := api.calls()
		require.Len(t, calls, 1)
		assert.Equal(t, http.MethodDelete, calls[0].method)
		assert.Equal(t, "/api/users/3", calls[0].path)
	}
}

func TestGetUserSubscription(t *testing.T) {
	t.Run("not found defaults", func(t *testing.T) {
		api := &fakeAPI{}
		api.respond(http.StatusNotFound, `{"message":"no subscription"}`)
		c := newTestClient(t, api)

		info, err := c.GetUserSubscription(context.Background(), "5")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSubscription(), info)
		assert.Equal(t, "/api/billing/subscription/5", api.calls()[0].path)
	})

	t.Run("null defaults", func(t *testing.T) {
		api := &fakeAPI{}
		api.respond(http.StatusOK, `{"status":"success","data":null}`)
		c := newTestClient(t, api)

		info, err := c.GetUserSubscription(context.Background(), "5")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSubscription(), info)
	})

	t.Run("record", func(t *testing.T) {
		api := &fakeAPI{}
		api.respond(http.StatusOK, `{"status":"success","data":{"subscription":{"plan":"team","seats":5},"hasSubscription":true,"subscriptionTier":"TEAM"}}`)
		c := newTestClient(t, api)

		info, err := c.GetUserSubscription(context.Background(), "5")
		require.NoError(t, err)
		assert.True(t, info.HasSubscription)
		assert.Equal(t, domain.TierTeam, info.Tier)
		assert.JSONEq(t, `{"plan":"team","seats":5}`, string(info.Subscription))
	})

	t.Run("missing tier", func(t *testing.T) {
		api := &fakeAPI{}
		api.respond(http.StatusOK, `{"status":"success","data":{"subscription":null,"hasSubscription":false}}`)
		c := newTestClient(t, api)

		info, err := c.GetUserSubscription(context.Background(), "5")
		require.NoError(t, err)
		assert.Nil(t, info.Subscription)
		assert.Equal(t, domain.TierFree, info.Tier)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		api := &fakeAPI{}
		api.respond(http.StatusInternalServerError, `{}`)
		c := newTestClient(t, api)

		_, err := c.GetUserSubscription(context.Background(), "5")
		require.ErrorIs(t, err, domain.ErrServerError)
	})
}

func signedInContext(t *testing.T, dir *memory.Directory) context.Context {
	t.Helper()
	provider := dir.NewProvider()
	manager := session.NewManager(provider, nil)
	t.Cleanup(manager.Close)

	_, err := manager.Login(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return manager.Current() != nil }, time.Second, 5*time.Millisecond)
	return session.WithManager(context.Background(), manager)
}

func TestInterceptorAttachesFreshBearerToken(t *testing.T) {
	dir := memory.NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", true)
	ctx := signedInContext(t, dir)

	api := &fakeAPI{}
	api.respond(http.StatusOK, `[]`)
	c := newTestClient(t, api)

	_, err := c.ListUsers(ctx)
	require.NoError(t, err)
	_, err = c.ListUsers(ctx)
	require.NoError(t, err)

	calls := api.calls()
	require.Len(t, calls, 2)
	for _, call := range calls {
		auth := call.header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "Bearer "), auth)
		assert.Equal(t, "application/json", call.header.Get("Content-Type"))
		assert.Equal(t, "application/json", call.header.Get("Accept"))
		assert.NotEmpty(t, call.header.Get(correlation.HeaderName))
	}
}

func TestInterceptorWithoutSessionSendsUnauthenticated(t *testing.T) {
	api := &fakeAPI{}
	api.respond(http.StatusOK, `[]`)
	c := newTestClient(t, api)

	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-123")
	_, err := c.ListUsers(ctx)
	require.NoError(t, err)

	call := api.calls()[0]
	assert.Empty(t, call.header.Get("Authorization"))
	assert.Equal(t, "cid-123", call.header.Get(correlation.HeaderName))
}

func TestInterceptorDegradesOnTokenFailure(t *testing.T) {
	dir := memory.NewDirectory()
	dir.AddAccount("admin@example.com", "admin123", true)
	ctx := signedInContext(t, dir)
	dir.Disable("admin@example.com")

	api := &fakeAPI{}
	api.respond(http.StatusUnauthorized, `{"message":"missing token"}`)
	c := newTestClient(t, api)

	_, err := c.ListUsers(ctx)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	calls := api.calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].header.Get("Authorization"))
}

type countingObserver struct {
	calls  atomic.Int32
	failed atomic.Int32
}

func (o *countingObserver) ObserveRequest(_ context.Context, _ string, _ time.Duration, err error) {
	o.calls.Add(1)
	if err != nil {
		o.failed.Add(1)
	}
}

func TestObserverSeesEveryRequest(t *testing.T) {
	api := &fakeAPI{}
	api.respond(http.StatusOK, `[]`)
	srv := httptest.NewServer(api)
	defer srv.Close()

	observer := &countingObserver{}
	c := New(Params{BaseURL: srv.URL, HTTPClient: srv.Client(), Observer: observer})

	_, _ = c.ListUsers(context.Background())
	api.respond(http.StatusInternalServerError, `{}`)
	_, _ = c.ListUsers(context.Background())

	assert.Equal(t, int32(2), observer.calls.Load())
	assert.Equal(t, int32(1), observer.failed.Load())
}
