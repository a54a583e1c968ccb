// Package redisstore keeps the credential store in Redis so clients in
// different processes share one login, the way tabs share browser storage.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend stores each key as a Redis string.
type Backend struct {
	redis     redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// New returns a backend. namespace is prepended to every key; ttl, when
// positive, expires idle credentials.
func New(client redis.UniversalClient, namespace string, ttl time.Duration) *Backend {
	return &Backend{
		redis:     client,
		namespace: namespace,
		ttl:       ttl,
	}
}

func (b *Backend) key(k string) string {
	return b.namespace + k
}

func (b *Backend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := b.redis.Get(ctx, b.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *Backend) Set(ctx context.Context, key, value string) error {
	return b.redis.Set(ctx, b.key(key), value, b.ttl).Err()
}

func (b *Backend) Remove(ctx context.Context, key string) (bool, error) {
	n, err := b.redis.Del(ctx, b.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
