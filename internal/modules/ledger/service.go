package ledger

import (
	"context"
	"database/sql"
	"iter"
	"math"
	"time"

	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/database"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/events"
	"github.com/holdfast/holdfast/internal/metrics"
	"github.com/rs/zerolog"
)

const moduleName = "ledger"

// RecordInput is a caller supplied transaction before normalization.
// Market selects the symbol suffix rules; empty keeps the symbol as typed.
type RecordInput struct {
	ExecutedAt time.Time
	Symbol     string
	Market     string
	Kind       domain.OperationKind
	Broker     string
	Category   string
	Quantity   float64
	Price      float64
}

// RecordResult is the outcome of recording a transaction
type RecordResult struct {
	Transaction domain.Transaction `json:"transaction"`
	Position    *domain.Position   `json:"position"` // nil when the position closed
	Replayed    bool               `json:"replayed"`
}

// DeleteResult is the outcome of deleting a transaction
type DeleteResult struct {
	Transaction domain.Transaction `json:"transaction"`
	Position    *domain.Position   `json:"position"`
}

// RemoveResult counts what removeInstrument deleted
type RemoveResult struct {
	Symbol       string `json:"symbol"`
	Positions    int64  `json:"positions"`
	Transactions int64  `json:"transactions"`
}

// Discrepancy is a stored position that differs from its replayed history
type Discrepancy struct {
	Key      domain.PositionKey `json:"key"`
	Stored   *domain.Position   `json:"stored"`
	Replayed *domain.Position   `json:"replayed"`
	Error    string             `json:"error,omitempty"`
}

// Service is the position ledger. Every mutation updates the transaction
// log and the derived positions in one database transaction, serialized
// per instrument symbol.
type Service struct {
	transactions TransactionStore
	positions    PositionStore
	catalog      *config.Catalog
	verifier     SymbolVerifier
	events       EventEmitter
	metrics      *metrics.Registry
	locks        keyLocks
	log          zerolog.Logger
}

// NewService creates a new ledger service
func NewService(
	transactions TransactionStore,
	positions PositionStore,
	catalog *config.Catalog,
	log zerolog.Logger,
) *Service {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	return &Service{
		transactions: transactions,
		positions:    positions,
		catalog:      catalog,
		log:          log.With().Str("service", "ledger").Logger(),
	}
}

// SetVerifier enables symbol verification on record
func (s *Service) SetVerifier(v SymbolVerifier) {
	s.verifier = v
}

// SetEventEmitter wires change notifications
func (s *Service) SetEventEmitter(e EventEmitter) {
	s.events = e
}

// SetMetrics wires Prometheus counters
func (s *Service) SetMetrics(m *metrics.Registry) {
	s.metrics = m
}

func (s *Service) db() *sql.DB {
	return s.transactions.DB()
}

// RecordTransaction appends a transaction and updates its position.
// An append at or after the latest transaction of the key is applied
// incrementally; a backdated one triggers a full replay of the key.
func (s *Service) RecordTransaction(ctx context.Context, in RecordInput) (*RecordResult, error) {
	const op = "record_transaction"

	if in.ExecutedAt.IsZero() {
		in.ExecutedAt = time.Now().UTC()
	}
	tx, err := s.catalog.NormalizeTransaction(domain.Transaction{
		ExecutedAt: in.ExecutedAt,
		Symbol:     in.Symbol,
		Kind:       in.Kind,
		Quantity:   in.Quantity,
		Price:      in.Price,
		Broker:     in.Broker,
		Category:   in.Category,
	}, in.Market)
	if err != nil {
		return nil, s.reject(op, err)
	}

	if err := s.verifySymbol(ctx, tx.Symbol); err != nil {
		return nil, s.reject(op, err)
	}

	unlock := s.locks.lock(tx.Symbol)
	defer unlock()

	result := &RecordResult{}
	err = database.WithTransactionContext(ctx, s.db(), func(sqlTx *sql.Tx) error {
		key := domain.PositionKey{Symbol: tx.Symbol, Broker: tx.Broker}

		latest, hasHistory, err := s.transactions.LatestExecutedAt(ctx, sqlTx, key)
		if err != nil {
			return err
		}

		current, err := s.positions.Get(ctx, sqlTx, key)
		if err != nil {
			return err
		}

		inserted, err := s.transactions.Insert(ctx, sqlTx, tx)
		if err != nil {
			return err
		}
		result.Transaction = inserted

		var next *domain.Position
		if hasHistory && inserted.ExecutedAt.Before(latest) {
			result.Replayed = true
			next, err = s.replayKey(ctx, sqlTx, key, current)
		} else {
			next, err = Apply(current, inserted)
		}
		if err != nil {
			return err
		}

		result.Position = next
		return s.persist(ctx, sqlTx, key, next)
	})
	if err != nil {
		return nil, s.reject(op, err)
	}

	s.metrics.RecordMutation("record")
	if result.Replayed {
		s.metrics.RecordReplay()
	}

	logEvent := s.log.Info().
		Int64("id", result.Transaction.ID).
		Str("symbol", tx.Symbol).
		Str("broker", tx.Broker).
		Str("kind", string(tx.Kind)).
		Float64("quantity", tx.Quantity).
		Float64("price", tx.Price).
		Bool("replayed", result.Replayed)
	if result.Position != nil {
		logEvent = logEvent.Float64("new_quantity", result.Position.Quantity).Float64("new_avg_price", result.Position.AvgPrice)
	}
	logEvent.Msg("Transaction recorded")

	data := &events.TransactionRecordedData{
		Symbol:   tx.Symbol,
		Broker:   tx.Broker,
		Kind:     string(tx.Kind),
		ID:       result.Transaction.ID,
		Quantity: tx.Quantity,
		Price:    tx.Price,
		Replayed: result.Replayed,
	}
	if result.Position != nil {
		data.NewQuantity = result.Position.Quantity
		data.NewAvgPrice = result.Position.AvgPrice
	}
	s.emit(data)

	return result, nil
}

// DeleteTransaction removes one transaction and rebuilds its key from the
// remaining history. If the remaining history is no longer consistent
// (a sell would oversell) nothing is deleted.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) (*DeleteResult, error) {
	const op = "delete_transaction"

	// The symbol is needed to take the lock; re-read under the lock below.
	existing, err := s.transactions.Get(ctx, s.db(), id)
	if err != nil {
		return nil, s.reject(op, err)
	}

	unlock := s.locks.lock(existing.Symbol)
	defer unlock()

	result := &DeleteResult{}
	err = database.WithTransactionContext(ctx, s.db(), func(sqlTx *sql.Tx) error {
		tx, err := s.transactions.Get(ctx, sqlTx, id)
		if err != nil {
			return err
		}
		result.Transaction = tx
		key := domain.PositionKey{Symbol: tx.Symbol, Broker: tx.Broker}

		current, err := s.positions.Get(ctx, sqlTx, key)
		if err != nil {
			return err
		}

		if err := s.transactions.Delete(ctx, sqlTx, id); err != nil {
			return err
		}

		next, err := s.replayKey(ctx, sqlTx, key, current)
		if err != nil {
			return err
		}
		result.Position = next
		return s.persist(ctx, sqlTx, key, next)
	})
	if err != nil {
		return nil, s.reject(op, err)
	}

	s.metrics.RecordMutation("delete")
	s.metrics.RecordReplay()

	s.log.Info().
		Int64("id", id).
		Str("symbol", result.Transaction.Symbol).
		Str("broker", result.Transaction.Broker).
		Str("kind", string(result.Transaction.Kind)).
		Float64("quantity", result.Transaction.Quantity).
		Bool("position_closed", result.Position == nil).
		Msg("Transaction deleted")

	s.emit(&events.TransactionDeletedData{
		Symbol:         result.Transaction.Symbol,
		Broker:         result.Transaction.Broker,
		ID:             id,
		PositionClosed: result.Position == nil,
	})

	return result, nil
}

// ListTransactions returns a lazy sequence ordered by (executed_at, id).
// Each iteration takes a fresh snapshot, so the sequence can be ranged
// over more than once. A storage failure is yielded once as the error.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) iter.Seq2[domain.Transaction, error] {
	filter.Symbol = domain.NormalizeSymbol(filter.Symbol)
	return func(yield func(domain.Transaction, error) bool) {
		txs, err := s.transactions.List(ctx, s.db(), filter)
		if err != nil {
			yield(domain.Transaction{}, domain.NewPersistenceError("list_transactions", err))
			return
		}
		for _, tx := range txs {
			if !yield(tx, nil) {
				return
			}
		}
	}
}

// Transactions collects ListTransactions into a slice
func (s *Service) Transactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0)
	for tx, err := range s.ListTransactions(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// ListPositions returns the current positions
func (s *Service) ListPositions(ctx context.Context, filter PositionFilter) ([]domain.Position, error) {
	filter.Symbol = domain.NormalizeSymbol(filter.Symbol)
	positions, err := s.positions.List(ctx, s.db(), filter)
	if err != nil {
		return nil, domain.NewPersistenceError("list_positions", err)
	}
	return positions, nil
}

// RemoveInstrument deletes every position and transaction of a symbol
func (s *Service) RemoveInstrument(ctx context.Context, symbol string) (*RemoveResult, error) {
	const op = "remove_instrument"

	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, s.reject(op, domain.NewValidationError(op, "symbol is required"))
	}

	unlock := s.locks.lock(symbol)
	defer unlock()

	result := &RemoveResult{Symbol: symbol}
	err := database.WithTransactionContext(ctx, s.db(), func(sqlTx *sql.Tx) error {
		var err error
		if result.Positions, err = s.positions.DeleteBySymbol(ctx, sqlTx, symbol); err != nil {
			return err
		}
		result.Transactions, err = s.transactions.DeleteBySymbol(ctx, sqlTx, symbol)
		return err
	})
	if err != nil {
		return nil, s.reject(op, err)
	}

	s.metrics.RecordMutation("remove_instrument")
	s.log.Info().
		Str("symbol", symbol).
		Int64("positions", result.Positions).
		Int64("transactions", result.Transactions).
		Msg("Instrument removed")

	s.emit(&events.InstrumentRemovedData{
		Symbol:       symbol,
		Positions:    result.Positions,
		Transactions: result.Transactions,
	})
	return result, nil
}

// SetTarget sets or clears (target == nil) the target price of every
// position of symbol and returns how many were updated
func (s *Service) SetTarget(ctx context.Context, symbol string, target *float64) (int64, error) {
	const op = "set_target"

	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return 0, s.reject(op, domain.NewValidationError(op, "symbol is required"))
	}
	if target != nil && (!(*target > 0) || math.IsInf(*target, 0)) {
		return 0, s.reject(op, domain.NewValidationError(op, "target price must be a positive number"))
	}

	unlock := s.locks.lock(symbol)
	defer unlock()

	var updated int64
	err := database.WithTransactionContext(ctx, s.db(), func(sqlTx *sql.Tx) error {
		var err error
		updated, err = s.positions.SetTarget(ctx, sqlTx, symbol, target)
		if err != nil {
			return err
		}
		if updated == 0 {
			return domain.NewNotFoundError(op, "no position held for %s", symbol)
		}
		return nil
	})
	if err != nil {
		return 0, s.reject(op, err)
	}

	s.metrics.RecordMutation("set_target")
	ev := s.log.Info().Str("symbol", symbol).Int64("updated", updated)
	if target != nil {
		ev = ev.Float64("target_price", *target)
	}
	ev.Msg("Target price updated")

	s.emit(&events.TargetChangedData{Symbol: symbol, TargetPrice: target, Updated: updated})
	return updated, nil
}

// Verify replays every key and reports stored positions that differ.
// All reads share one database transaction, so a concurrent mutation is
// seen either entirely or not at all.
func (s *Service) Verify(ctx context.Context) ([]Discrepancy, error) {
	var out []Discrepancy
	err := database.WithTransactionContext(ctx, s.db(), func(sqlTx *sql.Tx) error {
		keys, err := s.allKeys(ctx, sqlTx)
		if err != nil {
			return err
		}
		for _, key := range keys {
			stored, err := s.positions.Get(ctx, sqlTx, key)
			if err != nil {
				return err
			}
			history, err := s.transactions.ForKey(ctx, sqlTx, key)
			if err != nil {
				return err
			}
			replayed, err := Replay(history)
			if err != nil {
				out = append(out, Discrepancy{Key: key, Stored: stored, Error: err.Error()})
				continue
			}
			if !samePosition(stored, replayed) {
				out = append(out, Discrepancy{Key: key, Stored: stored, Replayed: replayed})
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewPersistenceError("verify", err)
	}
	return out, nil
}

// Rebuild replays every key from the log and rewrites the positions table.
// Targets survive for keys that still hold a position. It holds every
// symbol lock, so no mutation runs while it does.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	const op = "rebuild"

	unlock := s.locks.lockAll()
	defer unlock()

	rebuilt := 0
	err := database.WithTransactionContext(ctx, s.db(), func(sqlTx *sql.Tx) error {
		keys, err := s.allKeys(ctx, sqlTx)
		if err != nil {
			return err
		}
		for _, key := range keys {
			current, err := s.positions.Get(ctx, sqlTx, key)
			if err != nil {
				return err
			}
			next, err := s.replayKey(ctx, sqlTx, key, current)
			if err != nil {
				return err
			}
			if err := s.persist(ctx, sqlTx, key, next); err != nil {
				return err
			}
			rebuilt++
		}
		return nil
	})
	if err != nil {
		return 0, s.reject(op, err)
	}

	s.log.Info().Int("keys", rebuilt).Msg("Positions rebuilt from transaction log")
	s.emitPositionsChanged()
	return rebuilt, nil
}

// replayKey rebuilds key from its stored history, carrying the target
// of the current position over when something is still held
func (s *Service) replayKey(ctx context.Context, q database.Querier, key domain.PositionKey, current *domain.Position) (*domain.Position, error) {
	history, err := s.transactions.ForKey(ctx, q, key)
	if err != nil {
		return nil, err
	}
	next, err := Replay(history)
	if err != nil {
		return nil, err
	}
	if next != nil && current != nil {
		next.TargetPrice = current.TargetPrice
	}
	return next, nil
}

func (s *Service) persist(ctx context.Context, q database.Querier, key domain.PositionKey, next *domain.Position) error {
	if next == nil {
		return s.positions.Delete(ctx, q, key)
	}
	next.UpdatedAt = time.Now().UTC()
	return s.positions.Upsert(ctx, q, *next)
}

func (s *Service) allKeys(ctx context.Context, q database.Querier) ([]domain.PositionKey, error) {
	keys, err := s.transactions.Keys(ctx, q)
	if err != nil {
		return nil, err
	}
	positions, err := s.positions.List(ctx, q, PositionFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[domain.PositionKey]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, p := range positions {
		if !seen[p.Key()] {
			seen[p.Key()] = true
			keys = append(keys, p.Key())
		}
	}
	return keys, nil
}

// verifySymbol rejects only a definitive "no such symbol" from the feed
func (s *Service) verifySymbol(ctx context.Context, symbol string) error {
	if s.verifier == nil {
		return nil
	}
	q := s.verifier.Quote(ctx, symbol)
	switch q.Status {
	case domain.QuoteAbsent:
		return domain.NewValidationError("verify_symbol", "no market data found for %s", symbol)
	case domain.QuoteUnavailable:
		s.log.Warn().Str("symbol", symbol).Msg("Price feed unavailable, recording without verification")
	}
	return nil
}

// reject types untyped failures as persistence errors and counts them
func (s *Service) reject(op string, err error) error {
	err = domain.NewPersistenceError(op, err)
	kind := "persistence"
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		kind = "validation"
	case domain.ErrNotFound:
		kind = "not_found"
	case domain.ErrInvalidOperation:
		kind = "invalid_operation"
	}
	s.metrics.RecordRejected(op, kind)
	s.log.Debug().Err(err).Str("operation", op).Msg("Ledger operation rejected")
	return err
}

func (s *Service) emit(data events.EventData) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped(moduleName, data)
	s.emitPositionsChanged()
}

func (s *Service) emitPositionsChanged() {
	if s.events == nil {
		return
	}
	s.events.EmitTyped(moduleName, positionsChanged{})
}

// positionsChanged is emitted after every mutation so subscribers can refresh
type positionsChanged struct{}

func (positionsChanged) EventType() events.EventType {
	return events.PositionsChanged
}
