package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	// Client provides an existing Redis client. URL is ignored when set.
	Client *redis.Client
	// URL is a redis:// connection string.
	URL string
	// Prefix namespaces every key.
	Prefix string
}

// RedisAdapter implements Blob using Redis string values.
type RedisAdapter struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedis constructs a Redis adapter and verifies connectivity.
func NewRedis(ctx context.Context, opts RedisOptions) (*RedisAdapter, error) {
	client, owned := opts.Client, false
	if client == nil {
		opt, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("blob: parse redis url: %w", err)
		}
		client, owned = redis.NewClient(opt), true
	}

	if err := client.Ping(ctx).Err(); err != nil {
		if owned {
			_ = client.Close()
		}
		return nil, fmt.Errorf("blob: ping redis: %w", err)
	}

	return &RedisAdapter{client: client, prefix: opts.Prefix, owned: owned}, nil
}

// Write stores data under key. SET replaces the value atomically.
func (r *RedisAdapter) Write(ctx context.Context, key string, data []byte) error {
	k, err := cleanKey(r.prefix, key)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, k, data, 0).Err()
}

// Read returns the value stored under key.
func (r *RedisAdapter) Read(ctx context.Context, key string) ([]byte, error) {
	k, err := cleanKey(r.prefix, key)
	if err != nil {
		return nil, err
	}

	data, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Remove deletes the value stored under key.
func (r *RedisAdapter) Remove(ctx context.Context, key string) error {
	k, err := cleanKey(r.prefix, key)
	if err != nil {
		return err
	}
	return r.client.Del(ctx, k).Err()
}

// Close closes the client when the adapter created it.
func (r *RedisAdapter) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
