// Package legacy reads entries kept by the older flat-list storage so they can
// be migrated into the indexed collection once.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"expenses/internal/core"

	"github.com/shopspring/decimal"
)

// Source is a legacy flat list of entries.
type Source interface {
	// Load returns the raw legacy entries, nil when there are none.
	Load() ([]Record, error)
	// Clear discards the legacy list after a successful migration.
	Clear() error
}

// Record is one entry as written by the legacy format. Month and CreatedAt
// may be missing and are filled in by Normalize.
type Record struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Month       string          `json:"month,omitempty"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   string          `json:"createdAt,omitempty"`
}

// FileSource is a JSON array of records on disk.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Load() ([]Record, error) {
	if f.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read legacy file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse legacy file %s: %w", f.Path, err)
	}
	return records, nil
}

func (f *FileSource) Clear() error {
	if f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove legacy file: %w", err)
	}
	return nil
}

// Normalize turns a legacy record into a valid entry: the description is
// trimmed, the month is derived from the date, a missing id comes from newID
// and a missing or unreadable creation time becomes now.
func Normalize(r Record, now time.Time, newID func() string) (core.Entry, error) {
	amount, err := core.MoneyFromDecimal(r.Amount)
	if err != nil {
		return core.Entry{}, err
	}
	category, err := core.ParseCategory(r.Category)
	if err != nil {
		return core.Entry{}, err
	}

	e := core.Entry{
		ID:          strings.TrimSpace(r.ID),
		Date:        strings.TrimSpace(r.Date),
		Description: strings.TrimSpace(r.Description),
		Category:    category,
		Amount:      amount,
		CreatedAt:   now.UTC(),
	}
	if e.ID == "" {
		e.ID = newID()
	}
	e.Month = core.MonthKeyOf(e.Date)
	if r.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
			e.CreatedAt = t.UTC()
		}
	}

	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	return e, nil
}
