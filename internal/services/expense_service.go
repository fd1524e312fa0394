package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/ledger"
	"expenses/internal/legacy"
	"expenses/internal/log"
	"expenses/internal/query"
	"expenses/internal/storage"
)

// ErrEphemeralStore is returned by ImportLegacy when the store does not outlive
// the process. The legacy data is left untouched.
var ErrEphemeralStore = errors.New("legacy import needs a persistent store")

const (
	defaultViewCacheSize = 24
	defaultViewCacheTTL  = 10 * time.Minute
)

// ExpenseInput is a submission as typed by the user. Every field is raw text.
type ExpenseInput struct {
	Date        string
	Description string
	Category    string
	Amount      string
}

// Notifier receives a change event after every successful mutation.
type Notifier interface {
	Notify(ctx context.Context, ev *amqp.ChangeEvent) error
}

// ExpenseService orchestrates mutations across the store and the ledger and
// serves the derived views.
//
// Every mutation takes the single writer slot, persists to the store and only
// then updates the ledger. A failed store call leaves the ledger untouched.
type ExpenseService struct {
	store    storage.Store
	ledger   *ledger.Ledger
	writer   *semaphore.Weighted
	notifier Notifier
	logger   *log.Logger
	views    cache.Cache[core.MonthlyView]

	now       func() time.Time
	newID     func() string
	degraded  bool
	ephemeral bool
}

// Option configures an ExpenseService.
type Option func(*ExpenseService)

// WithNotifier publishes change events to n.
func WithNotifier(n Notifier) Option {
	return func(s *ExpenseService) { s.notifier = n }
}

// WithViewCache sizes the monthly view cache.
func WithViewCache(size int, ttl time.Duration) Option {
	return func(s *ExpenseService) { s.views = cache.NewLRUCache[core.MonthlyView](size, ttl) }
}

func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *ExpenseService) { s.newID = newID }
}

func WithLogger(l *log.Logger) Option {
	return func(s *ExpenseService) { s.logger = l }
}

// WithDegraded marks the store as an ephemeral fallback.
func WithDegraded(degraded bool) Option {
	return func(s *ExpenseService) { s.degraded = degraded }
}

// WithEphemeral marks a store that was chosen to live only in memory.
func WithEphemeral(ephemeral bool) Option {
	return func(s *ExpenseService) { s.ephemeral = ephemeral }
}

func NewExpenseService(store storage.Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store:  store,
		ledger: ledger.New(),
		writer: semaphore.NewWeighted(1),
		views:  cache.NewLRUCache[core.MonthlyView](defaultViewCacheSize, defaultViewCacheTTL),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default(log.ComponentExpense)
	}
	return s
}

// Degraded reports whether entries live only as long as the process.
func (s *ExpenseService) Degraded() bool {
	return s.degraded
}

// Persistent reports whether stored entries survive the process.
func (s *ExpenseService) Persistent() bool {
	return !s.degraded && !s.ephemeral
}

// Start loads every stored entry into the ledger. A read failure is logged and
// the service starts empty.
func (s *ExpenseService) Start(ctx context.Context) error {
	entries, err := s.store.LoadAll(ctx)
	switch {
	case errors.Is(err, storage.ErrStorageRead):
		s.logger.WarnContext(ctx, "Failed to load stored expenses, starting empty",
			log.FieldOperation, log.OpLoad,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		entries = nil
	case err != nil:
		return fmt.Errorf("load expenses: %w", err)
	}

	// Stores return entries in any order; creation time keeps same-day ties stable.
	slices.SortStableFunc(entries, func(a, b core.Entry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	s.ledger.ReplaceAll(entries)
	s.purgeViews()
	s.logger.InfoContext(ctx, "Expenses loaded",
		log.FieldCount, s.ledger.Len(),
		log.FieldDegraded, s.degraded)
	return nil
}

// SubmitNewExpense validates in, persists a new entry and mirrors it.
// Validation failures wrap core.ErrValidation and never reach the store.
func (s *ExpenseService) SubmitNewExpense(ctx context.Context, in ExpenseInput) (core.Entry, error) {
	e, err := s.newEntry(in)
	if err != nil {
		s.logger.DebugContext(ctx, "Expense rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err)
		return core.Entry{}, err
	}

	if err := s.writer.Acquire(ctx, 1); err != nil {
		return core.Entry{}, err
	}
	defer s.writer.Release(1)

	if err := s.store.Add(ctx, e); err != nil {
		s.logger.Op(ctx, log.OpCreate, err, log.FieldExpenseID, e.ID)
		return core.Entry{}, fmt.Errorf("save expense: %w", err)
	}
	if err := s.ledger.Insert(e); err != nil {
		// The store accepted the id, so the mirror already holds it.
		s.logger.ErrorContext(ctx, "Ledger out of step with store", log.FieldExpenseID, e.ID, log.FieldError, err)
	}
	s.purgeViews()

	s.logger.InfoContext(ctx, "Expense recorded",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithExpense(e.ID, e.Date, string(e.Category), e.Amount.Cents).
			ToSlice()...)
	s.notify(ctx, amqp.NewChangeEvent(amqp.ChangeAdded, e.ID, e.Month))
	return e, nil
}

// RequestDelete removes the entry with id. Deleting an unknown id succeeds.
func (s *ExpenseService) RequestDelete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: %w", core.ErrValidation, core.ErrEmptyID)
	}

	if err := s.writer.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writer.Release(1)

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Op(ctx, log.OpDelete, err, log.FieldExpenseID, id)
		return fmt.Errorf("delete expense %s: %w", id, err)
	}

	e, found := s.ledger.Get(id)
	s.ledger.Remove(id)
	if !found {
		return nil
	}
	s.purgeViews()

	s.logger.Op(ctx, log.OpDelete, nil, log.FieldExpenseID, id)
	s.notify(ctx, amqp.NewChangeEvent(amqp.ChangeDeleted, id, e.Month))
	return nil
}

// RequestClearAll removes every entry.
func (s *ExpenseService) RequestClearAll(ctx context.Context) error {
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writer.Release(1)

	if err := s.store.Clear(ctx); err != nil {
		s.logger.Op(ctx, log.OpClear, err)
		return fmt.Errorf("clear expenses: %w", err)
	}
	removed := s.ledger.Len()
	s.ledger.Clear()
	s.purgeViews()

	s.logger.Op(ctx, log.OpClear, nil, log.FieldCount, removed)
	s.notify(ctx, amqp.NewChangeEvent(amqp.ChangeCleared, "", ""))
	return nil
}

// GetFilteredView returns the entries matching category and date, newest
// first. Empty values and query.AllCategories disable a filter.
func (s *ExpenseService) GetFilteredView(category, date string) []core.Entry {
	return query.FilterBy(s.ledger.Snapshot(), query.Filter{
		Category: strings.ToLower(strings.TrimSpace(category)),
		Date:     strings.TrimSpace(date),
	})
}

// GetMonthlyView returns the aggregate for year and month (1-12). Views are
// memoised until the next mutation.
func (s *ExpenseService) GetMonthlyView(year, month int) core.MonthlyView {
	key := core.MonthKey(year, month)

	v := s.views.GetOrLoad(key, func() core.MonthlyView {
		return query.Monthly(s.ledger.Snapshot(), year, month)
	})
	v.Breakdown = slices.Clone(v.Breakdown)
	v.Entries = slices.Clone(v.Entries)
	return v
}

// Summary returns the list header totals relative to today (YYYY-MM-DD).
func (s *ExpenseService) Summary(today string) core.Summary {
	return query.Summarize(s.ledger.Snapshot(), today)
}

// Today returns the service clock's date.
func (s *ExpenseService) Today() string {
	return s.now().Format(core.DateLayout)
}

// ImportLegacy migrates src into an empty store through the normal add path
// and clears src once every entry is stored. On any failure the entries added
// so far are removed again and src is left in place. It returns the number of
// migrated entries. It refuses with ErrEphemeralStore unless the service is
// Persistent.
func (s *ExpenseService) ImportLegacy(ctx context.Context, src legacy.Source) (int, error) {
	if !s.Persistent() {
		s.logger.WarnContext(ctx, "Store is not persistent, keeping legacy data",
			log.FieldOperation, log.OpImport,
			log.FieldDegraded, s.degraded)
		return 0, ErrEphemeralStore
	}

	if err := s.writer.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer s.writer.Release(1)

	existing, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("check store before import: %w", err)
	}
	if len(existing) > 0 {
		s.logger.DebugContext(ctx, "Store not empty, skipping legacy import", log.FieldCount, len(existing))
		return 0, nil
	}

	records, err := src.Load()
	if err != nil {
		return 0, fmt.Errorf("load legacy entries: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	now := s.now()
	imported := make([]core.Entry, 0, len(records))
	for i, r := range records {
		e, err := legacy.Normalize(r, now, s.newID)
		if err == nil {
			err = s.store.Add(ctx, e)
		} else {
			err = fmt.Errorf("%w: %w", core.ErrValidation, err)
		}
		if err != nil {
			s.rollbackImport(ctx, imported)
			s.logger.Op(ctx, log.OpImport, err, log.FieldCount, i)
			return 0, fmt.Errorf("import legacy entry %d: %w", i, err)
		}
		imported = append(imported, e)
	}

	if err := src.Clear(); err != nil {
		s.rollbackImport(ctx, imported)
		return 0, fmt.Errorf("clear legacy entries: %w", err)
	}

	for _, e := range imported {
		if err := s.ledger.Insert(e); err != nil {
			s.logger.ErrorContext(ctx, "Ledger out of step with store", log.FieldExpenseID, e.ID, log.FieldError, err)
		}
	}
	s.purgeViews()

	s.logger.Op(ctx, log.OpImport, nil, log.FieldCount, len(imported))
	for _, e := range imported {
		s.notify(ctx, amqp.NewChangeEvent(amqp.ChangeAdded, e.ID, e.Month))
	}
	return len(imported), nil
}

func (s *ExpenseService) rollbackImport(ctx context.Context, added []core.Entry) {
	for _, e := range added {
		if err := s.store.Delete(ctx, e.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to roll back imported expense",
				log.FieldExpenseID, e.ID, log.FieldError, err)
		}
	}
}

// Close releases the store and the notifier.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}

func (s *ExpenseService) newEntry(in ExpenseInput) (core.Entry, error) {
	invalid := func(err error) (core.Entry, error) {
		return core.Entry{}, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}

	date := strings.TrimSpace(in.Date)
	if _, err := core.ParseDate(date); err != nil {
		return invalid(err)
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return invalid(core.ErrEmptyDescription)
	}
	category, err := core.ParseCategory(in.Category)
	if err != nil {
		return invalid(err)
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return invalid(err)
	}

	e := core.Entry{
		ID:          s.newID(),
		Date:        date,
		Month:       core.MonthKeyOf(date),
		Description: description,
		Category:    category,
		Amount:      amount,
		CreatedAt:   s.now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return invalid(err)
	}
	return e, nil
}

func (s *ExpenseService) purgeViews() {
	s.views.Purge()
}

func (s *ExpenseService) notify(ctx context.Context, ev *amqp.ChangeEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change event",
			log.FieldOperation, log.OpNotify,
			"kind", ev.Kind,
			log.FieldError, err)
	}
}
