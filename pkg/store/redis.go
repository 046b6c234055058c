package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding conditions, one field per item ID.
const DefaultRedisKey = "menulogic:conditions"

// Redis stores conditions in a single Redis hash.
type Redis struct {
	client redis.UniversalClient
	key    string
	opts   options
}

// NewRedis connects to the Redis server at addr.
func NewRedis(addr, key string, opts ...Option) *Redis {
	return NewRedisWithClient(redis.NewClient(&redis.Options{Addr: addr}), key, opts...)
}

// NewRedisWithClient wraps an existing client. An empty key uses DefaultRedisKey.
func NewRedisWithClient(client redis.UniversalClient, key string, opts ...Option) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key, opts: newOptions(opts)}
}

func (r *Redis) Get(ctx context.Context, id string) (string, error) {
	c, err := r.client.HGet(ctx, r.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get %s: %w", id, err)
	}
	return c, nil
}

func (r *Redis) Set(ctx context.Context, id, condition string) error {
	remove, err := r.opts.check(id, condition)
	if err != nil {
		return err
	}
	if remove {
		return r.Delete(ctx, id)
	}
	if err := r.client.HSet(ctx, r.key, id, condition).Err(); err != nil {
		return fmt.Errorf("store: set %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.HDel(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return nil
}

func (r *Redis) All(ctx context.Context) (map[string]string, error) {
	conds, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("store: load conditions: %w", err)
	}
	return conds, nil
}

// Ready pings the Redis server.
func (r *Redis) Ready(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
