package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/raysh454/phishlens/internal/logging"
)

// RedisKV stores values as plain redis strings under a key prefix, so
// several phishlens processes can share one state.
type RedisKV struct {
	client *redis.Client
	prefix string
	logger logging.Logger
}

// OpenRedis connects to cfg.RedisAddr and pings it.
func OpenRedis(cfg Config, logger logging.Logger) (*RedisKV, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return NewRedisKV(client, cfg.KeyPrefix, logger), nil
}

// NewRedisKV wraps an existing client.
func NewRedisKV(client *redis.Client, prefix string, logger logging.Logger) *RedisKV {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &RedisKV{
		client: client,
		prefix: prefix,
		logger: logger.With(logging.Field{Key: "component", Value: "redis-store"}),
	}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		r.logger.Warn("redis set failed",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err})
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// maxUpdateRetries bounds optimistic retries of one Update.
const maxUpdateRetries = 32

// ErrUpdateConflict is returned when an Update lost every optimistic retry.
var ErrUpdateConflict = errors.New("store: update conflict")

// Update watches the key and writes inside MULTI/EXEC, retrying when another
// client changed the key in between.
func (r *RedisKV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	k := r.prefix + key
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			cur = nil
		} else if err != nil {
			return fmt.Errorf("redis update %s: read: %w", key, err)
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, next, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := r.client.Watch(ctx, txf, k)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		r.logger.Debug("redis update retry",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "attempt", Value: attempt + 1})
	}
	return fmt.Errorf("%w: %s", ErrUpdateConflict, key)
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
