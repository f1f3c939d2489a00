package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/holdfast/holdfast/internal/database"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/rs/zerolog"
)

// transactionColumns is the column list shared by every SELECT.
// Order must match scanTransaction.
const transactionColumns = `id, executed_at, symbol, kind, quantity, price, broker, category, created_at`

// TransactionFilter narrows a transaction listing. Empty fields match everything.
type TransactionFilter struct {
	Symbol string
	Broker string
}

// TransactionRepository stores the append/delete transaction log in ledger.db.
// Methods take a database.Querier so they can join a caller's transaction.
type TransactionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(ledgerDB *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "transaction").Logger(),
	}
}

// DB returns the connection used when no transaction is supplied
func (r *TransactionRepository) DB() *sql.DB {
	return r.ledgerDB
}

// Insert appends a transaction and returns it with its assigned id.
// Execution time is stored with second precision.
func (r *TransactionRepository) Insert(ctx context.Context, q database.Querier, tx domain.Transaction) (domain.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return tx, err
	}

	now := time.Now().UTC()
	tx.ExecutedAt = time.Unix(tx.ExecutedAt.Unix(), 0).UTC()
	tx.CreatedAt = time.Unix(now.Unix(), 0).UTC()

	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions
		(executed_at, symbol, kind, quantity, price, broker, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ExecutedAt.Unix(),
		tx.Symbol,
		string(tx.Kind),
		tx.Quantity,
		tx.Price,
		tx.Broker,
		tx.Category,
		tx.CreatedAt.Unix(),
	)
	if err != nil {
		return tx, fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return tx, fmt.Errorf("failed to read transaction id: %w", err)
	}
	tx.ID = id

	r.log.Debug().Int64("id", id).Str("symbol", tx.Symbol).Msg("Transaction inserted")
	return tx, nil
}

// Get returns one transaction, or a not found error
func (r *TransactionRepository) Get(ctx context.Context, q database.Querier, id int64) (domain.Transaction, error) {
	row := q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tx, domain.NewNotFoundError("get_transaction", "transaction %d not found", id)
	}
	if err != nil {
		return tx, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return tx, nil
}

// Delete removes one transaction. It reports a not found error when no row matched.
func (r *TransactionRepository) Delete(ctx context.Context, q database.Querier, id int64) error {
	res, err := q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("delete_transaction", "transaction %d not found", id)
	}
	return nil
}

// DeleteBySymbol removes every transaction of a symbol across brokers
func (r *TransactionRepository) DeleteBySymbol(ctx context.Context, q database.Querier, symbol string) (int64, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM transactions WHERE symbol = ?", symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions of %s: %w", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// ForKey returns the ordered history of one (symbol, broker) key
func (r *TransactionRepository) ForKey(ctx context.Context, q database.Querier, key domain.PositionKey) ([]domain.Transaction, error) {
	return r.query(ctx, q, TransactionFilter{Symbol: key.Symbol, Broker: key.Broker})
}

// List returns transactions matching filter ordered by (executed_at, id)
func (r *TransactionRepository) List(ctx context.Context, q database.Querier, filter TransactionFilter) ([]domain.Transaction, error) {
	return r.query(ctx, q, filter)
}

// LatestExecutedAt returns the execution time of the last transaction of key.
// ok is false when the key has no history.
func (r *TransactionRepository) LatestExecutedAt(ctx context.Context, q database.Querier, key domain.PositionKey) (time.Time, bool, error) {
	var latest sql.NullInt64
	err := q.QueryRowContext(ctx,
		"SELECT MAX(executed_at) FROM transactions WHERE symbol = ? AND broker = ?",
		key.Symbol, key.Broker,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read latest transaction of %s: %w", key, err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(latest.Int64, 0).UTC(), true, nil
}

// Keys returns every (symbol, broker) pair with at least one transaction
func (r *TransactionRepository) Keys(ctx context.Context, q database.Querier) ([]domain.PositionKey, error) {
	rows, err := q.QueryContext(ctx, "SELECT DISTINCT symbol, broker FROM transactions ORDER BY symbol, broker")
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.PositionKey
	for rows.Next() {
		var k domain.PositionKey
		if err := rows.Scan(&k.Symbol, &k.Broker); err != nil {
			return nil, fmt.Errorf("failed to scan transaction key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction keys: %w", err)
	}
	return keys, nil
}

func (r *TransactionRepository) query(ctx context.Context, q database.Querier, filter TransactionFilter) ([]domain.Transaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if filter.Broker != "" {
		where = append(where, "broker = ?")
		args = append(args, filter.Broker)
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY executed_at ASC, id ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		tx         domain.Transaction
		kind       string
		executedAt int64
		createdAt  int64
	)
	err := row.Scan(
		&tx.ID,
		&executedAt,
		&tx.Symbol,
		&kind,
		&tx.Quantity,
		&tx.Price,
		&tx.Broker,
		&tx.Category,
		&createdAt,
	)
	if err != nil {
		return tx, err
	}
	tx.Kind = domain.OperationKind(kind)
	tx.ExecutedAt = time.Unix(executedAt, 0).UTC()
	tx.CreatedAt = time.Unix(createdAt, 0).UTC()
	return tx, nil
}
