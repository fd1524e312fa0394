package storage

import (
	"context"

	"expenses/internal/core"
)

// Ports for the persistent entry collection.
type (
	// Store is the durable collection of entries keyed by id. Every method
	// either fully succeeds or leaves the affected entry untouched.
	Store interface {
		// LoadAll returns every stored entry in no particular order.
		LoadAll(ctx context.Context) ([]core.Entry, error)
		// Add persists a new entry. An existing id yields ErrDuplicateKey.
		Add(ctx context.Context, e core.Entry) error
		// Delete removes the entry with id. Absent ids are not an error.
		Delete(ctx context.Context, id string) error
		// Clear removes every entry.
		Clear(ctx context.Context) error
		Close() error
	}

	// IndexReader looks entries up through the secondary indexes.
	IndexReader interface {
		ListByDate(ctx context.Context, date string) ([]core.Entry, error)
		ListByCategory(ctx context.Context, c core.Category) ([]core.Entry, error)
		ListByMonth(ctx context.Context, month string) ([]core.Entry, error)
	}
)
