// Package cache is a keyed, TTL-bounded in-memory store shared by concurrent
// requests. Expiry is checked on read; nothing sweeps in the background.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	now     func() time.Time
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func New[V any](opts ...Option) *Store[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[V]{
		entries: make(map[string]entry[V]),
		now:     o.now,
	}
}

// Get returns the value stored under key. An entry whose expiry is at or
// before the current time is absent and gets removed here.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if s.now().Before(e.expiresAt) {
		return e.value, true
	}

	s.mu.Lock()
	// a concurrent Put may have replaced the entry since the read lock
	if cur, ok := s.entries[key]; ok && !s.now().Before(cur.expiresAt) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return zero, false
}

// Put replaces the whole entry under key. A non-positive ttl stores nothing.
func (s *Store[V]) Put(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.entries[key] = entry[V]{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Purge drops every entry and reports how many were held.
func (s *Store[V]) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]entry[V])
	return n
}

// Len counts held entries, including expired ones not yet read.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
