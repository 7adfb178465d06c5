package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisCASRetries = 4

// Redis is a Store backed by a Redis (or compatible) server. All keys are
// namespaced by prefix so several installs can share one database.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps client. An empty prefix defaults to "ac".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "ac"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + key
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// CompareAndSwap uses WATCH/MULTI so a concurrent writer on another process
// aborts the transaction instead of being overwritten.
func (r *Redis) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	full := r.key(key)

	for i := 0; i < redisCASRetries; i++ {
		swapped := false
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, full).Bytes()
			exists := true
			if errors.Is(err, redis.Nil) {
				exists = false
			} else if err != nil {
				return err
			}

			if prev == nil {
				if exists {
					return nil
				}
			} else if !exists || !bytes.Equal(cur, prev) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if next == nil {
					pipe.Del(ctx, full)
				} else {
					pipe.Set(ctx, full, next, 0)
				}
				return nil
			})
			if err != nil {
				return err
			}
			swapped = true
			return nil
		}, full)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return swapped, nil
	}

	return false, nil
}
