// Package memory is a process-lifetime storage.Store. It backs the degraded
// mode used when the durable collection cannot be opened, and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expenses/internal/core"
	"expenses/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	order []string
	items map[string]core.Entry
}

func New() *Store {
	return &Store{items: make(map[string]core.Entry)}
}

// LoadAll returns the entries in insertion order.
func (s *Store) LoadAll(_ context.Context) ([]core.Entry, error) {
	return s.filter(func(core.Entry) bool { return true }), nil
}

func (s *Store) Add(_ context.Context, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[e.ID]; ok {
		return fmt.Errorf("add expense %s: %w", e.ID, storage.ErrDuplicateKey)
	}
	s.items[e.ID] = e
	s.order = append(s.order, e.ID)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return nil
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]core.Entry)
	s.order = nil
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) ListByDate(_ context.Context, date string) ([]core.Entry, error) {
	return s.filter(func(e core.Entry) bool { return e.Date == date }), nil
}

func (s *Store) ListByCategory(_ context.Context, c core.Category) ([]core.Entry, error) {
	return s.filter(func(e core.Entry) bool { return e.Category == c }), nil
}

func (s *Store) ListByMonth(_ context.Context, month string) ([]core.Entry, error) {
	return s.filter(func(e core.Entry) bool { return e.Month == month }), nil
}

func (s *Store) filter(keep func(core.Entry) bool) []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Entry, 0, len(s.order))
	for _, id := range s.order {
		if e := s.items[id]; keep(e) {
			out = append(out, e)
		}
	}
	return out
}
