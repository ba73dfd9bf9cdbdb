package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carbonmarket/internal/domain"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session users in Redis.
const KeyPrefix = "session_user:"

// RedisStore keeps the session user under session_user:<sid> with a sliding TTL.
type RedisStore struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, sessionID string, ttl time.Duration) (*RedisStore, error) {
	if !safeID.MatchString(sessionID) {
		return nil, ErrBadSessionID
	}
	return &RedisStore{rdb: rdb, key: KeyPrefix + sessionID, ttl: ttl}, nil
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

func (s *RedisStore) Load(ctx context.Context) (*domain.SessionUser, error) {
	b, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u domain.SessionUser
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	if s.ttl > 0 {
		s.rdb.Expire(ctx, s.key, s.ttl)
	}
	return &u, nil
}

func (s *RedisStore) Save(ctx context.Context, u domain.SessionUser) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, b, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
