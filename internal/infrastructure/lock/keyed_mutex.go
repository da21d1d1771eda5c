package lock

import (
	"context"
	"sync"
	"time"

	"github.com/flowbooks/docflow/internal/application/port"
)

// KeyedMutexLocker serializes document work within a single process. It is
// the default locker; multi-node deployments use RedisLocker instead.
type KeyedMutexLocker struct {
	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutexLocker creates a new in-process locker
func NewKeyedMutexLocker() *KeyedMutexLocker {
	return &KeyedMutexLocker{locks: make(map[string]*docLock)}
}

// Acquire blocks until the document's lock is free or the context ends.
// The ttl is ignored; in-process locks live until released.
func (l *KeyedMutexLocker) Acquire(ctx context.Context, documentID string, ttl time.Duration) (port.LockHandle, error) {
	l.mu.Lock()
	entry, ok := l.locks[documentID]
	if !ok {
		entry = &docLock{ch: make(chan struct{}, 1)}
		l.locks[documentID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return &keyedHandle{locker: l, documentID: documentID, entry: entry}, nil
	case <-ctx.Done():
		l.unref(documentID, entry)
		return nil, ctx.Err()
	}
}

func (l *KeyedMutexLocker) unref(documentID string, entry *docLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, documentID)
	}
	l.mu.Unlock()
}

type keyedHandle struct {
	locker     *KeyedMutexLocker
	documentID string
	entry      *docLock
	once       sync.Once
}

// Release frees the document's lock. Releasing twice is harmless.
func (h *keyedHandle) Release(ctx context.Context) error {
	h.once.Do(func() {
		<-h.entry.ch
		h.locker.unref(h.documentID, h.entry)
	})
	return nil
}

var _ port.DocumentLocker = (*KeyedMutexLocker)(nil)
