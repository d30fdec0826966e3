package stock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errLockWaitExceeded = errors.New("stock lock wait exceeded")

// lockTable is a keyed set of exclusive locks with a bounded wait. Entries
// are reference counted and dropped once nobody holds or waits on them.
type lockTable struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	token chan struct{}
	refs  int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[uuid.UUID]*lockEntry)}
}

func (t *lockTable) acquire(ctx context.Context, key uuid.UUID, wait time.Duration) error {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok {
		entry = &lockEntry{token: make(chan struct{}, 1)}
		t.entries[key] = entry
	}
	entry.refs++
	t.mu.Unlock()

	select {
	case entry.token <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case entry.token <- struct{}{}:
		return nil
	case <-timer.C:
		t.unref(key, entry)
		return errLockWaitExceeded
	case <-ctx.Done():
		t.unref(key, entry)
		return ctx.Err()
	}
}

func (t *lockTable) release(key uuid.UUID) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	t.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-entry.token:
	default:
		return
	}
	t.unref(key, entry)
}

func (t *lockTable) unref(key uuid.UUID, entry *lockEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry.refs--
	if entry.refs <= 0 {
		delete(t.entries, key)
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
