// Package locks provides the per-equipment exclusive lock used to serialize
// capacity decisions: an in-process keyed mutex and a Redis lease.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotAcquired = errors.New("lock not acquired within wait time")

// Keyed is a set of mutexes addressed by string key. Entries are dropped once
// nobody holds or waits for them.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]*slot)}
}

// Acquire blocks until key is free. wait <= 0 waits until ctx is done.
// The returned release func is idempotent.
func (k *Keyed) Acquire(ctx context.Context, key string, wait time.Duration) (release func(), err error) {
	k.mu.Lock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	var timeout <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				k.unref(key, s)
			})
		}, nil
	case <-timeout:
		k.unref(key, s)
		return nil, ErrNotAcquired
	case <-ctx.Done():
		k.unref(key, s)
		return nil, ctx.Err()
	}
}

// Len is the number of keys currently held or waited on.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

func (k *Keyed) unref(key string, s *slot) {
	k.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
	k.mu.Unlock()
}
