package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expenses/internal/core"

	_ "modernc.org/sqlite"
)

const selectColumns = `SELECT id, date, month, description, category, amount_cents, created_at FROM expenses`

type SQLiteRepository struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteRepository opens (creating on first use) the expense collection at
// dbPath and migrates it. Any failure wraps ErrStorageUnavailable.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %w", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %w", ErrStorageUnavailable, err)
	}
	// One writer at a time keeps SQLite from reporting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", ErrStorageUnavailable, err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return &SQLiteRepository{db: db, dbPath: dbPath}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadAll implements Store.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]core.Entry, error) {
	return r.list(ctx, selectColumns)
}

// Add implements Store.
func (r *SQLiteRepository) Add(ctx context.Context, e core.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrStorageWrite, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM expenses WHERE id = ?`, e.ID).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("add expense %s: %w", e.ID, ErrDuplicateKey)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: check expense id: %w", ErrStorageWrite, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, date, month, description, category, amount_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date, e.Month, e.Description, string(e.Category), e.Amount.Cents,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: insert expense: %w", ErrStorageWrite, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit expense: %w", ErrStorageWrite, err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"date", e.Date,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)
	return nil
}

// Delete implements Store.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete expense: %w", ErrStorageWrite, err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", id, "found", n > 0)
	return nil
}

// Clear implements Store.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses`)
	if err != nil {
		return fmt.Errorf("%w: clear expenses: %w", ErrStorageWrite, err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "All expenses cleared from SQLite", "removed", n)
	return nil
}

// ListByDate implements IndexReader.
func (r *SQLiteRepository) ListByDate(ctx context.Context, date string) ([]core.Entry, error) {
	return r.list(ctx, selectColumns+` WHERE date = ?`, date)
}

// ListByCategory implements IndexReader.
func (r *SQLiteRepository) ListByCategory(ctx context.Context, c core.Category) ([]core.Entry, error) {
	return r.list(ctx, selectColumns+` WHERE category = ?`, string(c))
}

// ListByMonth implements IndexReader.
func (r *SQLiteRepository) ListByMonth(ctx context.Context, month string) ([]core.Entry, error) {
	return r.list(ctx, selectColumns+` WHERE month = ?`, month)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query expenses: %w", ErrStorageRead, err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var (
			e         core.Entry
			category  string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.Month, &e.Description, &category, &e.Amount.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan expense: %w", ErrStorageRead, err)
		}
		e.Category = core.Category(category)
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: expense %s created_at: %w", ErrStorageRead, e.ID, err)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: expense %s: %w", ErrStorageRead, e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate expenses: %w", ErrStorageRead, err)
	}
	return out, nil
}
