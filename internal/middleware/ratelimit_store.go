package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/campusconnect/internal/cache"
)

const (
	defaultRateWindow = time.Minute
	memorySweepEvery  = time.Minute
)

// RateStore counts requests per key within a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

type rateWindow struct {
	hits int
	ends time.Time
}

// memoryRateStore keeps windows in process memory. Lapsed windows are swept
// at most once per memorySweepEvery.
type memoryRateStore struct {
	mu        sync.Mutex
	windows   map[string]*rateWindow
	clock     func() time.Time
	nextSweep time.Time
}

// NewMemoryRateStore returns a RateStore for a single API instance.
func NewMemoryRateStore() RateStore {
	return newMemoryRateStore(time.Now)
}

func newMemoryRateStore(clock func() time.Time) *memoryRateStore {
	return &memoryRateStore{windows: make(map[string]*rateWindow), clock: clock}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, length time.Duration) (int, time.Duration, error) {
	if length <= 0 {
		length = defaultRateWindow
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)

	w, ok := s.windows[key]
	if !ok || now.After(w.ends) {
		w = &rateWindow{ends: now.Add(length)}
		s.windows[key] = w
	}
	w.hits++
	return w.hits, w.ends.Sub(now), nil
}

func (s *memoryRateStore) sweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for key, w := range s.windows {
		if now.After(w.ends) {
			delete(s.windows, key)
		}
	}
	s.nextSweep = now.Add(memorySweepEvery)
}

// storeRateStore counts through a shared cache.Store, so all replicas
// enforce one limit.
type storeRateStore struct {
	store cache.Store
}

// NewStoreRateStore wraps store; a nil store yields nil.
func NewStoreRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return storeRateStore{store: store}
}

func (s storeRateStore) Increment(ctx context.Context, key string, length time.Duration) (int, time.Duration, error) {
	if length <= 0 {
		length = defaultRateWindow
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, length)
	return int(count), ttl, err
}
