// Package client is the REST client for the user-management API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/logger"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/tracing"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20

	deletedMessage = "User deleted successfully"
)

const (
	OpListUsers       = "list_users"
	OpGetUser         = "get_user"
	OpCreateUser      = "create_user"
	OpUpdateUser      = "update_user"
	OpDeleteUser      = "delete_user"
	OpGetSubscription = "get_subscription"
)

// Observer records the outcome of each API call.
type Observer interface {
	ObserveRequest(ctx context.Context, op string, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(context.Context, string, time.Duration, error) {}

type Params struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default instrumented client. Its transport is
	// still wrapped with the bearer interceptor.
	HTTPClient *http.Client
	Logger     *zap.Logger
	Observer   Observer
}

// Client implements domain.Directory over HTTP.
type Client struct {
	baseURL  string
	http     *http.Client
	log      *zap.Logger
	observer Observer
}

var _ domain.Directory = (*Client)(nil)

func New(p Params) *Client {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("directory")

	observer := p.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	httpClient := p.HTTPClient
	if httpClient == nil {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = tracing.WrapHTTPClient(&http.Client{Timeout: timeout})
	}
	intercepted := *httpClient
	intercepted.Transport = &bearerTransport{base: httpClient.Transport, log: log}

	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(p.BaseURL), "/"),
		http:     &intercepted,
		log:      log,
		observer: observer,
	}
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.UserRecord, error) {
	payload, err := c.do(ctx, OpListUsers, http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}

	users := []domain.UserRecord{}
	items := findCollection(payload)
	if items == nil {
		return users, nil
	}
	if err := json.Unmarshal(items, &users); err != nil {
		return nil, decodeError(err)
	}
	for i := range users {
		users[i].Normalize()
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, id domain.UserID) (*domain.UserRecord, error) {
	payload, err := c.do(ctx, OpGetUser, http.MethodGet, userPath(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(payload)
}

// CreateUser registers a record for an already provisioned identity. The
// password never leaves the process.
func (c *Client) CreateUser(ctx context.Context, in domain.NewUser) (*domain.UserRecord, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FirebaseUID = strings.TrimSpace(in.FirebaseUID)
	in.Password = ""

	if err := in.Validate(); err != nil {
		return nil, err
	}

	payload, err := c.do(ctx, OpCreateUser, http.MethodPost, "/users/create", in)
	if err != nil {
		return nil, err
	}
	return decodeRecord(payload)
}

// UpdateUser sends only the fields set on in. A nil record with a nil error
// means the API acknowledged the update without echoing the record.
func (c *Client) UpdateUser(ctx context.Context, id domain.UserID, in domain.UserUpdate) (*domain.UserRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	payload, err := c.do(ctx, OpUpdateUser, http.MethodPut, userPath(id), in.Body())
	if err != nil {
		return nil, err
	}
	if isNull(payload) {
		return nil, nil
	}
	return decodeRecord(payload)
}

// DeleteUser returns the API's confirmation message.
func (c *Client) DeleteUser(ctx context.Context, id domain.UserID) (string, error) {
	payload, err := c.do(ctx, OpDeleteUser, http.MethodDelete, userPath(id), nil)
	if err != nil {
		return "", err
	}

	var message string
	if err := json.Unmarshal(payload, &message); err == nil && strings.TrimSpace(message) != "" {
		return message, nil
	}
	if msg := errorMessage(payload); msg != "" {
		return msg, nil
	}
	return deletedMessage, nil
}

// GetUserSubscription reports the free default when the API has no
// subscription on file.
func (c *Client) GetUserSubscription(ctx context.Context, id domain.UserID) (domain.SubscriptionInfo, error) {
	payload, err := c.do(ctx, OpGetSubscription, http.MethodGet, "/billing/subscription/"+url.PathEscape(id.String()), nil)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultSubscription(), nil
	}
	if err != nil {
		return domain.SubscriptionInfo{}, err
	}
	if isNull(payload) {
		return domain.DefaultSubscription(), nil
	}

	var info domain.SubscriptionInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return domain.SubscriptionInfo{}, decodeError(err)
	}
	if isNull(info.Subscription) {
		info.Subscription = nil
	}
	info.Tier = domain.NormalizeTier(string(info.Tier))
	return info, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (payload []byte, err error) {
	start := time.Now()
	defer func() {
		c.observer.ObserveRequest(ctx, op, time.Since(start), err)
		if err != nil {
			logger.WithContext(ctx, c.log).Warn("directory request failed",
				zap.String("op", op),
				zap.String("method", method),
				zap.Error(err),
			)
		}
	}()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, domain.NewAPIError(domain.ErrValidationFailure, 0, "invalid request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, domain.NewAPIError(domain.ErrNetworkFailure, 0, "invalid request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewAPIError(domain.ErrNetworkFailure, 0, "user service unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.NewAPIError(domain.ErrNetworkFailure, resp.StatusCode, "reading response failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := errorMessage(raw)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, domain.NewAPIError(domain.KindForStatus(resp.StatusCode), resp.StatusCode, message, nil)
	}
	return unwrapEnvelope(raw), nil
}

func userPath(id domain.UserID) string {
	return "/users/" + url.PathEscape(id.String())
}

func decodeRecord(payload []byte) (*domain.UserRecord, error) {
	if isNull(payload) {
		return nil, domain.NewAPIError(domain.ErrServerError, 0, "empty user payload", nil)
	}
	var record domain.UserRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, decodeError(err)
	}
	record.Normalize()
	return &record, nil
}

func decodeError(err error) error {
	return domain.NewAPIError(domain.ErrServerError, 0, "unexpected response shape", err)
}
