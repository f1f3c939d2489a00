package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/holdfast/holdfast/internal/database"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/events"
)

// TransactionStore is the persistence contract of the transaction log
type TransactionStore interface {
	DB() *sql.DB
	Insert(ctx context.Context, q database.Querier, tx domain.Transaction) (domain.Transaction, error)
	Get(ctx context.Context, q database.Querier, id int64) (domain.Transaction, error)
	Delete(ctx context.Context, q database.Querier, id int64) error
	DeleteBySymbol(ctx context.Context, q database.Querier, symbol string) (int64, error)
	ForKey(ctx context.Context, q database.Querier, key domain.PositionKey) ([]domain.Transaction, error)
	List(ctx context.Context, q database.Querier, filter TransactionFilter) ([]domain.Transaction, error)
	LatestExecutedAt(ctx context.Context, q database.Querier, key domain.PositionKey) (time.Time, bool, error)
	Keys(ctx context.Context, q database.Querier) ([]domain.PositionKey, error)
}

// PositionStore is the persistence contract of the derived positions
type PositionStore interface {
	Get(ctx context.Context, q database.Querier, key domain.PositionKey) (*domain.Position, error)
	Upsert(ctx context.Context, q database.Querier, pos domain.Position) error
	Delete(ctx context.Context, q database.Querier, key domain.PositionKey) error
	DeleteBySymbol(ctx context.Context, q database.Querier, symbol string) (int64, error)
	SetTarget(ctx context.Context, q database.Querier, symbol string, target *float64) (int64, error)
	List(ctx context.Context, q database.Querier, filter PositionFilter) ([]domain.Position, error)
}

// SymbolVerifier confirms an instrument exists before it is recorded
type SymbolVerifier interface {
	Quote(ctx context.Context, symbol string) domain.Quote
}

// EventEmitter is implemented by events.Manager
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

var (
	_ TransactionStore = (*TransactionRepository)(nil)
	_ PositionStore    = (*PositionRepository)(nil)
)
