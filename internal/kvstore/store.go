// Package kvstore provides the typed key-value store with per-key change streams.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("key not found")

// Store persists raw values and notifies watchers of writes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Watch streams values written to key after the call. The channel
	// closes when ctx is done.
	Watch(ctx context.Context, key string) (<-chan []byte, error)
}

// Restore decodes the value stored under key.
func Restore[T any](ctx context.Context, s Store, key string) (T, error) {
	var out T
	raw, err := s.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// RestoreOrDefault returns def when key is absent.
func RestoreOrDefault[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	val, err := Restore[T](ctx, s, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return val, nil
}

// Persist encodes and stores val under key.
func Persist[T any](ctx context.Context, s Store, key string, val T) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, raw)
}

// Changes streams decoded values written to key. Undecodable writes are skipped.
func Changes[T any](ctx context.Context, s Store, key string) (<-chan T, error) {
	raw, err := s.Watch(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make(chan T)
	go func() {
		defer close(out)
		for payload := range raw {
			var val T
			if err := json.Unmarshal(payload, &val); err != nil {
				continue
			}
			select {
			case out <- val:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
