package session

import (
	"context"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/cache"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
)

// Store keeps provider credentials per browser so a signed-in browser
// survives eviction and restarts.
type Store interface {
	Load(ctx context.Context, sid string) (identity.Credentials, bool, error)
	Save(ctx context.Context, sid string, creds identity.Credentials, ttl time.Duration) error
	Delete(ctx context.Context, sid string) error
}

type memoryStore struct {
	entries cache.Cache[string, identity.Credentials]
}

func NewMemoryStore() Store {
	return &memoryStore{entries: cache.NewTTLCache[string, identity.Credentials]()}
}

func (s *memoryStore) Load(ctx context.Context, sid string) (identity.Credentials, bool, error) {
	creds, ok := s.entries.Get(sid)
	return creds, ok, nil
}

func (s *memoryStore) Save(ctx context.Context, sid string, creds identity.Credentials, ttl time.Duration) error {
	s.entries.Set(sid, creds, ttl)
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, sid string) error {
	s.entries.Delete(sid)
	return nil
}
