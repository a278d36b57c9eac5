package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultLockKeyPrefix = "labflow:lock:"

// unlockScript deletes the key only while it still holds the caller's token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAdvisoryLock implements AdvisoryLock using Redis.
// Claims are shared by every process connected to the same Redis
type RedisAdvisoryLock struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisAdvisoryLock connects to Redis and verifies the connection
func NewRedisAdvisoryLock(cfg RedisConfig) (*RedisAdvisoryLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisAdvisoryLockWithClient(client, ""), nil
}

// NewRedisAdvisoryLockWithClient creates a lock store over an existing client
func NewRedisAdvisoryLockWithClient(client *redis.Client, keyPrefix string) *RedisAdvisoryLock {
	if keyPrefix == "" {
		keyPrefix = defaultLockKeyPrefix
	}
	return &RedisAdvisoryLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// TryLock claims key with SET NX PX, storing a fresh token as the value
func (l *RedisAdvisoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases key if token still owns it. An expired or stolen claim is left alone.
func (l *RedisAdvisoryLock) Unlock(ctx context.Context, key, token string) error {
	if err := unlockScript.Run(ctx, l.client, []string{l.keyPrefix + key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisAdvisoryLock) Close() error {
	return l.client.Close()
}

var _ shared.AdvisoryLock = (*RedisAdvisoryLock)(nil)
