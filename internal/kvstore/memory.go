package kvstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used for tests and when Redis is not configured.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	watchers map[string]map[chan []byte]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string][]byte),
		watchers: make(map[string]map[chan []byte]struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	for ch := range s.watchers[key] {
		select {
		case ch <- append([]byte(nil), value...):
		default:
		}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)

	s.mu.Lock()
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[chan []byte]struct{})
	}
	s.watchers[key][ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers[key], ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}
