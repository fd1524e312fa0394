// Package redis stores entries in Redis: one JSON value per entry keyed by id,
// a set of all ids, and one set per secondary index value (date, category and
// month).
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expenses/internal/core"
	"expenses/internal/storage"

	goredis "github.com/redis/go-redis/v9"
)

type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type Store struct {
	client *goredis.Client
	prefix string
}

type record struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Month       string    `json:"month"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewStore connects and pings Redis. Failures wrap storage.ErrStorageUnavailable.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping redis %s: %w", storage.ErrStorageUnavailable, opts.Addr, err)
	}
	return NewWithClient(client, opts.KeyPrefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "expenses"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) LoadAll(ctx context.Context) ([]core.Entry, error) {
	return s.fromSet(ctx, s.idsKey())
}

func (s *Store) Add(ctx context.Context, e core.Entry) error {
	body, err := json.Marshal(toRecord(e))
	if err != nil {
		return fmt.Errorf("%w: marshal expense: %w", storage.ErrStorageWrite, err)
	}

	ok, err := s.client.SetNX(ctx, s.entryKey(e.ID), body, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: set expense: %w", storage.ErrStorageWrite, err)
	}
	if !ok {
		return fmt.Errorf("add expense %s: %w", e.ID, storage.ErrDuplicateKey)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.SAdd(ctx, s.idsKey(), e.ID)
		for _, key := range s.indexKeys(e) {
			pipe.SAdd(ctx, key, e.ID)
		}
		return nil
	})
	if err != nil {
		// undo the value so the entry is either fully present or absent
		if delErr := s.client.Del(ctx, s.entryKey(e.ID)).Err(); delErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back expense value", "id", e.ID, "error", delErr)
		}
		return fmt.Errorf("%w: index expense: %w", storage.ErrStorageWrite, err)
	}

	slog.InfoContext(ctx, "Expense saved to Redis", "id", e.ID, "amount_cents", e.Amount.Cents)
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	e, err := s.get(ctx, id)
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read expense: %w", storage.ErrStorageWrite, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.entryKey(id))
		pipe.SRem(ctx, s.idsKey(), id)
		for _, key := range s.indexKeys(e) {
			pipe.SRem(ctx, key, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: delete expense: %w", storage.ErrStorageWrite, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	entries, err := s.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorageWrite, err)
	}

	keys := map[string]struct{}{s.idsKey(): {}}
	for _, e := range entries {
		keys[s.entryKey(e.ID)] = struct{}{}
		for _, k := range s.indexKeys(e) {
			keys[k] = struct{}{}
		}
	}
	list := make([]string, 0, len(keys))
	for k := range keys {
		list = append(list, k)
	}

	if err := s.client.Del(ctx, list...).Err(); err != nil {
		return fmt.Errorf("%w: clear expenses: %w", storage.ErrStorageWrite, err)
	}
	slog.InfoContext(ctx, "All expenses cleared from Redis", "removed", len(entries))
	return nil
}

func (s *Store) ListByDate(ctx context.Context, date string) ([]core.Entry, error) {
	return s.fromSet(ctx, s.indexKey("date", date))
}

func (s *Store) ListByCategory(ctx context.Context, c core.Category) ([]core.Entry, error) {
	return s.fromSet(ctx, s.indexKey("category", string(c)))
}

func (s *Store) ListByMonth(ctx context.Context, month string) ([]core.Entry, error) {
	return s.fromSet(ctx, s.indexKey("month", month))
}

func (s *Store) fromSet(ctx context.Context, setKey string) ([]core.Entry, error) {
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list ids: %w", storage.ErrStorageRead, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.entryKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load expenses: %w", storage.ErrStorageRead, err)
	}

	out := make([]core.Entry, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// indexed id without a value
			slog.WarnContext(ctx, "Dangling expense id in Redis index", "id", ids[i], "set", setKey)
			continue
		}
		e, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: expense %s: %w", storage.ErrStorageRead, ids[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) get(ctx context.Context, id string) (core.Entry, error) {
	raw, err := s.client.Get(ctx, s.entryKey(id)).Result()
	if err != nil {
		return core.Entry{}, err
	}
	return decode(raw)
}

func (s *Store) idsKey() string            { return s.prefix + ":ids" }
func (s *Store) entryKey(id string) string { return s.prefix + ":expense:" + id }

func (s *Store) indexKey(field, value string) string {
	return s.prefix + ":idx:" + field + ":" + value
}

func (s *Store) indexKeys(e core.Entry) []string {
	return []string{
		s.indexKey("date", e.Date),
		s.indexKey("category", string(e.Category)),
		s.indexKey("month", e.Month),
	}
}

func toRecord(e core.Entry) record {
	return record{
		ID:          e.ID,
		Date:        e.Date,
		Month:       e.Month,
		Description: e.Description,
		Category:    string(e.Category),
		AmountCents: e.Amount.Cents,
		CreatedAt:   e.CreatedAt.UTC(),
	}
}

func decode(raw string) (core.Entry, error) {
	var r record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return core.Entry{}, err
	}
	e := core.Entry{
		ID:          r.ID,
		Date:        r.Date,
		Month:       r.Month,
		Description: r.Description,
		Category:    core.Category(r.Category),
		Amount:      core.Money{Cents: r.AmountCents},
		CreatedAt:   r.CreatedAt,
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	return e, nil
}
