package sequence

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Store loads genome sequences by source path and keeps recently used ones
// in memory. Concurrent loads of the same source share one read.
type Store struct {
	mu       sync.Mutex
	cache    map[string][]byte
	order    []string // insertion order, oldest first
	capacity int
	group    singleflight.Group
	read     func(path string) ([]byte, error)
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithCacheSize sets how many sequences are kept in memory (0 disables caching)
func WithCacheSize(n int) StoreOption {
	return func(s *Store) {
		if n >= 0 {
			s.capacity = n
		}
	}
}

// WithReader replaces the function used to read a sequence from disk
func WithReader(fn func(path string) ([]byte, error)) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.read = fn
		}
	}
}

// NewStore creates a new Store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		cache:    make(map[string][]byte),
		capacity: 64,
		read:     ReadFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Content returns the sequence stored at source
func (s *Store) Content(ctx context.Context, source string) ([]byte, error) {
	if seq, ok := s.cached(source); ok {
		return seq, nil
	}

	ch := s.group.DoChan(source, func() (any, error) {
		seq, err := s.read(source)
		if err != nil {
			return nil, err
		}
		s.remember(source, seq)
		return seq, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Len returns the number of cached sequences
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func (s *Store) cached(source string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.cache[source]
	return seq, ok
}

func (s *Store) remember(source string, seq []byte) {
	if s.capacity == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[source]; ok {
		return
	}
	for len(s.order) >= s.capacity {
		delete(s.cache, s.order[0])
		s.order = s.order[1:]
	}
	s.cache[source] = seq
	s.order = append(s.order, source)
}
