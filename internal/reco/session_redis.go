package reco

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"moovstream/recoservice/internal/domain"
)

const redisSessionPrefix = "moov:session:"

// RedisStore keeps sessions in Redis with JSON serialization. It is the
// best-effort durable backend: every failure is treated as a miss or a no-op.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, id string) (domain.Session, bool) {
	data, err := r.client.Get(ctx, redisSessionPrefix+id).Bytes()
	if err != nil {
		return domain.Session{}, false
	}
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, false
	}
	return session, true
}

func (r *RedisStore) Put(ctx context.Context, id string, session domain.Session) {
	if id == "" {
		return
	}
	data, err := json.Marshal(session)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, redisSessionPrefix+id, data, r.ttl).Err()
}
