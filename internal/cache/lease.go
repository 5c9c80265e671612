package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLeaseNotAcquired is returned when a lease could not be taken before the
// caller's context expired.
var ErrLeaseNotAcquired = errors.New("cache: lease not acquired")

const (
	leaseRetryMin = 10 * time.Millisecond
	leaseRetryMax = 200 * time.Millisecond
)

// Lease is a held exclusive claim on a key.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out per-key leases. Acquire waits until the lease is free or
// ctx is done; it never blocks past ctx.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// LocalLocker serialises holders within one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocalLocker constructs an in-process Locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (Lease, error) {
	for {
		l.mu.Lock()
		wait, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			return &localLease{locker: l, key: key, done: done}, nil
		}
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLeaseNotAcquired, key, ctx.Err())
		}
	}
}

type localLease struct {
	locker *LocalLocker
	key    string
	done   chan struct{}
	once   sync.Once
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() {
		l.locker.mu.Lock()
		if l.locker.held[l.key] == l.done {
			delete(l.locker.held, l.key)
		}
		l.locker.mu.Unlock()
		close(l.done)
	})
	return nil
}

// StoreLocker takes leases through a shared Store so holders in different
// processes exclude each other. A lease expires after its ttl even if the
// holder never releases it.
type StoreLocker struct {
	store  Store
	prefix string
}

// NewStoreLocker constructs a Locker over store.
func NewStoreLocker(store Store) *StoreLocker {
	return &StoreLocker{store: store, prefix: "lease:"}
}

func (l *StoreLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	storeKey := l.prefix + key
	token := []byte(uuid.NewString())
	backoff := leaseRetryMin

	for {
		ok, err := l.store.SetIfAbsent(ctx, storeKey, token, ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire lease %s: %w", key, err)
		}
		if ok {
			return &storeLease{store: l.store, key: storeKey, token: token}, nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %v", ErrLeaseNotAcquired, key, ctx.Err())
		}
		if backoff *= 2; backoff > leaseRetryMax {
			backoff = leaseRetryMax
		}
	}
}

type storeLease struct {
	store Store
	key   string
	token []byte
}

func (l *storeLease) Release(ctx context.Context) error {
	_, err := l.store.CompareAndDelete(ctx, l.key, l.token)
	return err
}
