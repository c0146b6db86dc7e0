package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestStore_PutGet(t *testing.T) {
	s := New[string]()

	s.Put("categories", "payload", time.Minute)

	v, ok := s.Get("categories")
	require.True(t, ok)
	assert.Equal(t, "payload", v)

	_, ok = s.Get("products?limit=20&offset=0")
	assert.False(t, ok)
}

func TestStore_ExpiredAtBoundaryIsAbsent(t *testing.T) {
	clock := newClock()
	s := New[int](WithClock(clock.Now))

	s.Put("k", 42, 10*time.Second)

	clock.Advance(10*time.Second - time.Nanosecond)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	clock.Advance(time.Nanosecond)
	_, ok = s.Get("k")
	assert.False(t, ok, "entry must be absent exactly at expiry")
	assert.Equal(t, 0, s.Len(), "expired entry is removed on read")
}

func TestStore_ExpiredEntriesStayUntilRead(t *testing.T) {
	clock := newClock()
	s := New[int](WithClock(clock.Now))

	s.Put("a", 1, time.Second)
	s.Put("b", 2, time.Hour)
	clock.Advance(time.Minute)

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStore_PutReplacesWholeEntry(t *testing.T) {
	clock := newClock()
	s := New[string](WithClock(clock.Now))

	s.Put("k", "old", time.Second)
	clock.Advance(500 * time.Millisecond)
	s.Put("k", "new", time.Minute)
	clock.Advance(time.Second)

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestStore_NonPositiveTTLStoresNothing(t *testing.T) {
	s := New[string]()

	s.Put("k", "v", 0)
	s.Put("j", "v", -time.Second)

	assert.Equal(t, 0, s.Len())
}

func TestStore_DeleteAndPurge(t *testing.T) {
	s := New[int]()
	s.Put("a", 1, time.Minute)
	s.Put("b", 2, time.Minute)
	s.Put("c", 3, time.Minute)

	s.Delete("a")
	_, ok := s.Get("a")
	assert.False(t, ok)

	assert.Equal(t, 2, s.Purge())
	assert.Equal(t, 0, s.Len())
}

type page struct {
	id    int
	items []int
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New[page]()
	var wg sync.WaitGroup
	var torn atomic.Int32

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", i%5)
				s.Put(key, page{id: i, items: []int{i, i, i}}, time.Minute)
				if p, ok := s.Get(key); ok {
					for _, v := range p.items {
						if v != p.id {
							torn.Add(1)
						}
					}
				}
				if i%97 == 0 {
					s.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Zero(t, torn.Load())
	assert.LessOrEqual(t, s.Len(), 5)
}
