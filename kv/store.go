// Package kv defines the key-value persistence contract the auth core is
// written against, plus in-memory, Redis and SQLite backends and a two-tier
// (secure + fallback) composition with an explicit trust level.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable wraps backend I/O failures. Tiered falls back on it.
	ErrUnavailable = errors.New("kv backend unavailable")
	// ErrEmptyKey is returned for operations on "".
	ErrEmptyKey = errors.New("kv key must not be empty")
)

// Store is the storage collaborator. Get returns (nil, nil) for an absent key.
//
// CompareAndSwap replaces the value at key with next only if the current value
// equals prev. A nil prev means "key must be absent"; a nil next deletes the
// key. It reports whether the swap happened.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
