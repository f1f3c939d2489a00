package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/holdfast/holdfast/internal/database"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/rs/zerolog"
)

const positionColumns = `symbol, broker, category, quantity, avg_price, target_price, updated_at`

// PositionFilter narrows a position listing. Empty fields match everything.
type PositionFilter struct {
	Symbol   string
	Broker   string
	Category string
}

// PositionRepository stores the derived positions table in ledger.db.
// Rows exist only while quantity > 0.
type PositionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(ledgerDB *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "position").Logger(),
	}
}

// DB returns the connection used when no transaction is supplied
func (r *PositionRepository) DB() *sql.DB {
	return r.ledgerDB
}

// Get returns the position of key, or nil when none is held
func (r *PositionRepository) Get(ctx context.Context, q database.Querier, key domain.PositionKey) (*domain.Position, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+positionColumns+" FROM positions WHERE symbol = ? AND broker = ?",
		key.Symbol, key.Broker,
	)
	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s: %w", key, err)
	}
	return &pos, nil
}

// Upsert writes a position, replacing any existing row for its key
func (r *PositionRepository) Upsert(ctx context.Context, q database.Querier, pos domain.Position) error {
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO positions (symbol, broker, category, quantity, avg_price, target_price, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, broker) DO UPDATE SET
			category = excluded.category,
			quantity = excluded.quantity,
			avg_price = excluded.avg_price,
			target_price = excluded.target_price,
			updated_at = excluded.updated_at
	`,
		pos.Symbol,
		pos.Broker,
		pos.Category,
		pos.Quantity,
		pos.AvgPrice,
		nullFloat64Ptr(pos.TargetPrice),
		pos.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position %s: %w", pos.Key(), err)
	}
	return nil
}

// Delete removes the position of key. Missing rows are not an error.
func (r *PositionRepository) Delete(ctx context.Context, q database.Querier, key domain.PositionKey) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM positions WHERE symbol = ? AND broker = ?", key.Symbol, key.Broker); err != nil {
		return fmt.Errorf("failed to delete position %s: %w", key, err)
	}
	return nil
}

// DeleteBySymbol removes every position of a symbol and returns how many went
func (r *PositionRepository) DeleteBySymbol(ctx context.Context, q database.Querier, symbol string) (int64, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM positions WHERE symbol = ?", symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to delete positions of %s: %w", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// SetTarget sets (or clears, when target is nil) the target of every
// position of symbol and returns the number of rows updated
func (r *PositionRepository) SetTarget(ctx context.Context, q database.Querier, symbol string, target *float64) (int64, error) {
	res, err := q.ExecContext(ctx,
		"UPDATE positions SET target_price = ?, updated_at = ? WHERE symbol = ?",
		nullFloat64Ptr(target), time.Now().Unix(), symbol,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to set target of %s: %w", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// List returns positions matching filter ordered by symbol then broker
func (r *PositionRepository) List(ctx context.Context, q database.Querier, filter PositionFilter) ([]domain.Position, error) {
	query := "SELECT " + positionColumns + " FROM positions WHERE 1=1"
	var args []interface{}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Broker != "" {
		query += " AND broker = ?"
		args = append(args, filter.Broker)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	query += " ORDER BY symbol, broker"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

func scanPosition(row rowScanner) (domain.Position, error) {
	var (
		pos       domain.Position
		target    sql.NullFloat64
		updatedAt int64
	)
	err := row.Scan(
		&pos.Symbol,
		&pos.Broker,
		&pos.Category,
		&pos.Quantity,
		&pos.AvgPrice,
		&target,
		&updatedAt,
	)
	if err != nil {
		return pos, err
	}
	if target.Valid {
		v := target.Float64
		pos.TargetPrice = &v
	}
	pos.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return pos, nil
}

// nullFloat64Ptr converts an optional float for storage
func nullFloat64Ptr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
