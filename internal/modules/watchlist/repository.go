// Package watchlist manages instruments followed without holding them.
package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles watchlist rows in ledger.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  ledgerDB,
		log: log.With().Str("repo", "watchlist").Logger(),
	}
}

// Upsert adds an entry, or replaces the target of an existing one.
// added_at of an existing entry is kept. Reports whether a row was created.
func (r *Repository) Upsert(ctx context.Context, entry domain.WatchEntry) (domain.WatchEntry, bool, error) {
	existing, err := r.Get(ctx, entry.Symbol)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.WatchEntry{}, false, err
	}
	created := existing == nil

	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	entry.AddedAt = entry.AddedAt.Truncate(time.Second)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO watchlist (symbol, target_price, added_at) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET target_price = excluded.target_price
	`, entry.Symbol, nullFloat(entry.TargetPrice), entry.AddedAt.Unix())
	if err != nil {
		return domain.WatchEntry{}, false, fmt.Errorf("failed to upsert watch entry: %w", err)
	}

	if !created {
		entry.AddedAt = existing.AddedAt
	}
	return entry, created, nil
}

// Get returns one entry or a NotFound error
func (r *Repository) Get(ctx context.Context, symbol string) (*domain.WatchEntry, error) {
	row := r.db.QueryRowContext(ctx, "SELECT symbol, target_price, added_at FROM watchlist WHERE symbol = ?", symbol)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("get_watch_entry", "%s is not on the watchlist", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch entry: %w", err)
	}
	return &e, nil
}

// Delete removes an entry; NotFound when absent
func (r *Repository) Delete(ctx context.Context, symbol string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM watchlist WHERE symbol = ?", symbol)
	if err != nil {
		return fmt.Errorf("failed to delete watch entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("delete_watch_entry", "%s is not on the watchlist", symbol)
	}
	return nil
}

// List returns every entry, oldest first
func (r *Repository) List(ctx context.Context) ([]domain.WatchEntry, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT symbol, target_price, added_at FROM watchlist ORDER BY added_at, symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.WatchEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (domain.WatchEntry, error) {
	var (
		e       domain.WatchEntry
		target  sql.NullFloat64
		addedAt int64
	)
	if err := row.Scan(&e.Symbol, &target, &addedAt); err != nil {
		return e, err
	}
	if target.Valid {
		v := target.Float64
		e.TargetPrice = &v
	}
	e.AddedAt = time.Unix(addedAt, 0).UTC()
	return e, nil
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
