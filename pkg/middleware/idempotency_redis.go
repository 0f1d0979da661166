package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"remoteassist/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	redisIdempotencyPrefix = "idempotency:"
	redisPendingValue      = "pending"
)

// releasePending deletes the key only while it still holds the pending
// marker, so a completed response is never dropped.
var releasePending = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisIdempotencyStore shares reservations and responses between replicas.
// Redis expires entries itself, so there is no cleanup goroutine.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (Reservation, *StoredResponse) {
	redisKey := redisIdempotencyPrefix + key

	claimed, err := s.client.SetNX(ctx, redisKey, redisPendingValue, s.ttl).Result()
	if err != nil {
		s.log.Warn("Idempotency reservation failed; running request unguarded", "error", err)
		return Reserved, nil
	}
	if claimed {
		return Reserved, nil
	}

	data, err := s.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Idempotency lookup failed", "error", err)
		}
		return Reserved, nil
	}
	if string(data) == redisPendingValue {
		return InProgress, nil
	}

	var cached StoredResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		s.log.Warn("Discarding corrupt idempotency entry", "error", err)
		return Reserved, nil
	}
	return Replay, &cached
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, response *StoredResponse) {
	response.StoredAt = time.Now()

	data, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("Failed to encode idempotency entry", "error", err)
		return
	}

	if err := s.client.Set(ctx, redisIdempotencyPrefix+key, data, s.ttl).Err(); err != nil {
		s.log.Warn("Failed to store idempotency entry", "error", err)
	}
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) {
	err := releasePending.Run(ctx, s.client, []string{redisIdempotencyPrefix + key}, redisPendingValue).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn("Failed to release idempotency key", "error", err)
	}
}

// Stop is a no-op; the client is owned and closed by the application.
func (s *RedisIdempotencyStore) Stop() {}
