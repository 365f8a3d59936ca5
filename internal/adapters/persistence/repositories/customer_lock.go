package repositories

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errLockTimeout = errors.New("timed out waiting for customer lock")

// customerLocks is a keyed mutex: one slot per customer ID, released entries
// are dropped once nobody waits on them
type customerLocks struct {
	mu      sync.Mutex
	entries map[uint]*lockEntry
}

type lockEntry struct {
	slot chan struct{}
	refs int
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{entries: make(map[uint]*lockEntry)}
}

// acquire blocks until the customer's slot is free, the timeout elapses or
// ctx is done. A non-positive timeout waits for ctx only.
func (l *customerLocks) acquire(ctx context.Context, customerID uint, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[customerID]
	if !ok {
		e = &lockEntry{slot: make(chan struct{}, 1)}
		l.entries[customerID] = e
	}
	e.refs++
	l.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case e.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.slot
				l.drop(customerID, e)
			})
		}, nil
	case <-expired:
		l.drop(customerID, e)
		return nil, errLockTimeout
	case <-ctx.Done():
		l.drop(customerID, e)
		return nil, ctx.Err()
	}
}

func (l *customerLocks) drop(customerID uint, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, customerID)
	}
}

// size reports how many customers currently hold or wait for a lock
func (l *customerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
