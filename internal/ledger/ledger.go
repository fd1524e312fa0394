// Package ledger holds the in-process mirror of every stored expense entry.
//
// The Ledger never persists anything. Callers mutate it only after the
// corresponding store operation has succeeded, so the store stays the single
// source of truth and the mirror trails it by at most one in-flight mutation.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"expenses/internal/core"
)

// ErrDuplicateID reports an attempt to mirror an id that is already present.
var ErrDuplicateID = errors.New("duplicate entry id")

type Ledger struct {
	mu      sync.RWMutex
	entries []core.Entry
	index   map[string]int
}

func New() *Ledger {
	return &Ledger{index: make(map[string]int)}
}

// ReplaceAll swaps the whole mirror, used once after loading the store.
// Later duplicates of an id are dropped.
func (l *Ledger) ReplaceAll(entries []core.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]core.Entry, 0, len(entries))
	l.index = make(map[string]int, len(entries))
	for _, e := range entries {
		if _, ok := l.index[e.ID]; ok {
			continue
		}
		l.index[e.ID] = len(l.entries)
		l.entries = append(l.entries, e)
	}
}

// Insert appends an entry that the store has already accepted.
func (l *Ledger) Insert(e core.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[e.ID]; ok {
		return fmt.Errorf("insert %s: %w", e.ID, ErrDuplicateID)
	}
	l.index[e.ID] = len(l.entries)
	l.entries = append(l.entries, e)
	return nil
}

// Remove drops the entry with id and reports whether it was present.
func (l *Ledger) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.entries); j++ {
		l.index[l.entries[j].ID] = j
	}
	return true
}

func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.index = make(map[string]int)
}

// Snapshot returns a copy of the entries in insertion order.
func (l *Ledger) Snapshot() []core.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Get returns the entry with id.
func (l *Ledger) Get(id string) (core.Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return core.Entry{}, false
	}
	return l.entries[i], true
}

