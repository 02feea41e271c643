package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aryan0dhankhar/grievanceportal/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/grievanceportal/pkg/cache"
)

// ErrNoSession is returned when a session id has no live record
var ErrNoSession = errors.New("session not found")

const keyPrefix = "session:"

// Store keeps the server-side half of a session so logout can revoke a
// token before it expires.
type Store interface {
	Save(ctx context.Context, id string, userID int64, ttl time.Duration) error
	Lookup(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions as session:<id> -> user id
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, id string, userID int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+id, strconv.FormatInt(userID, 10), ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, id string) (int64, error) {
	val, err := s.client.Get(ctx, keyPrefix+id)
	if errors.Is(err, redis.ErrNil) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session record %q: %w", id, err)
	}
	return userID, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, keyPrefix+id)
}

// MemoryStore keeps sessions in a process-local TTL cache
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(c *cache.Cache) *MemoryStore {
	return &MemoryStore{cache: c}
}

func (s *MemoryStore) Save(_ context.Context, id string, userID int64, ttl time.Duration) error {
	s.cache.Set(keyPrefix+id, userID, ttl)
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, id string) (int64, error) {
	v, ok := s.cache.Get(keyPrefix + id)
	if !ok {
		return 0, ErrNoSession
	}
	return v.(int64), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(keyPrefix + id)
	return nil
}
