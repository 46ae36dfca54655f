package lock

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type localEntry struct {
	sem  chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. Entries are reference counted and
// dropped once no goroutine holds or waits on the key.
type LocalLocker struct {
	entries *xsync.MapOf[string, *localEntry]
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: xsync.NewMapOf[string, *localEntry]()}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	entry, _ := l.entries.Compute(key, func(old *localEntry, loaded bool) (*localEntry, bool) {
		if !loaded {
			old = &localEntry{sem: make(chan struct{}, 1)}
		}
		old.refs++
		return old, false
	})

	if err := ctx.Err(); err != nil {
		l.release(key)
		return nil, fmt.Errorf("%w %s: %v", ErrLockTimeout, key, err)
	}

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, fmt.Errorf("%w %s: %v", ErrLockTimeout, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(key)
		})
	}, nil
}

func (l *LocalLocker) release(key string) {
	l.entries.Compute(key, func(old *localEntry, loaded bool) (*localEntry, bool) {
		if !loaded {
			return old, true
		}
		old.refs--
		return old, old.refs <= 0
	})
}

// Len reports how many keys are currently held or awaited.
func (l *LocalLocker) Len() int {
	return l.entries.Size()
}
