package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	redis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "ntadmin:session:"

type redisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) (Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &redisStore{client: client, keyPrefix: keyPrefix}, nil
}

func (s *redisStore) Load(ctx context.Context, sid string) (identity.Credentials, bool, error) {
	raw, err := s.client.Get(ctx, s.key(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return identity.Credentials{}, false, nil
	}
	if err != nil {
		return identity.Credentials{}, false, fmt.Errorf("load session %s: %w", sid, err)
	}

	var creds identity.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return identity.Credentials{}, false, fmt.Errorf("decode session %s: %w", sid, err)
	}
	return creds, true, nil
}

func (s *redisStore) Save(ctx context.Context, sid string, creds identity.Credentials, ttl time.Duration) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(sid), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sid, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", sid, err)
	}
	return nil
}

func (s *redisStore) key(sid string) string {
	return s.keyPrefix + sid
}
