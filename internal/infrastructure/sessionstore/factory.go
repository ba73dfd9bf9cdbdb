package sessionstore

import (
	"context"
	"time"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// FileFactory stores sessions as JSON files under dir.
func FileFactory(dir string) coordinator.StoreFactory {
	return func(sessionID string) coordinator.SessionStore {
		s, err := NewFileStore(dir, sessionID)
		if err != nil {
			log.Warn().Err(err).Msg("session store: falling back to non-persistent session")
			return Discard{}
		}
		return s
	}
}

// RedisFactory stores sessions in Redis with the given TTL.
func RedisFactory(rdb redis.Cmdable, ttl time.Duration) coordinator.StoreFactory {
	return func(sessionID string) coordinator.SessionStore {
		s, err := NewRedisStore(rdb, sessionID, ttl)
		if err != nil {
			log.Warn().Err(err).Msg("session store: falling back to non-persistent session")
			return Discard{}
		}
		return s
	}
}

// Discard persists nothing; the session lives only as long as its coordinator.
type Discard struct{}

func (Discard) Load(context.Context) (*domain.SessionUser, error) { return nil, nil }
func (Discard) Save(context.Context, domain.SessionUser) error    { return nil }
func (Discard) Clear(context.Context) error                       { return nil }
