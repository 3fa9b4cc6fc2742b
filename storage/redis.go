package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CreativeUnicorns/navsync"
)

// DefaultRedisNamespace prefixes every key written by RedisStorage.
const DefaultRedisNamespace = "navsync:"

// redisClient is the subset of *redis.Client used here.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// RedisStorage is a LocalStore kept in Redis under a key namespace.
type RedisStorage struct {
	client    redisClient
	namespace string
}

// NewRedisStorage connects to addr and verifies the connection with PING.
func NewRedisStorage(addr, password string, db int) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to connect to redis: %v", navsync.ErrStorageUnavailable, err)
	}

	return &RedisStorage{client: client, namespace: DefaultRedisNamespace}, nil
}

func (s *RedisStorage) key(k string) string {
	return s.namespace + k
}

// Get returns navsync.ErrKeyNotFound when key is absent.
func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", navsync.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return v, nil
}

// Set stores value without expiry.
func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return navsync.ErrInvalidInput
	}
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Delete returns navsync.ErrKeyNotFound when key is absent.
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if n == 0 {
		return navsync.ErrKeyNotFound
	}
	return nil
}

// Keys walks the keyspace with SCAN and strips the namespace.
func (s *RedisStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	match := globEscape(s.key(prefix)) + "*"
	keys := make([]string, 0)
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan redis keys: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, s.namespace))
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// Close closes the Redis connection.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
