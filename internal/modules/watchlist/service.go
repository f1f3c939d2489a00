package watchlist

import (
	"context"
	"math"

	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/events"
	"github.com/rs/zerolog"
)

// Verifier confirms a symbol exists in the price feed
type Verifier interface {
	Quote(ctx context.Context, symbol string) domain.Quote
}

// EventEmitter is implemented by events.Manager
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Service manages watch entries
type Service struct {
	repo     *Repository
	catalog  *config.Catalog
	verifier Verifier
	events   EventEmitter
	log      zerolog.Logger
}

// NewService creates a new watchlist service
func NewService(repo *Repository, catalog *config.Catalog, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		log:     log.With().Str("service", "watchlist").Logger(),
	}
}

// SetVerifier enables symbol verification on Add
func (s *Service) SetVerifier(v Verifier) {
	s.verifier = v
}

// SetEventEmitter wires change notifications
func (s *Service) SetEventEmitter(e EventEmitter) {
	s.events = e
}

// Add puts symbol on the watchlist. Adding an existing symbol updates its target.
func (s *Service) Add(ctx context.Context, symbol, market string, target *float64) (domain.WatchEntry, error) {
	sym, err := s.catalog.NormalizeSymbol(symbol, market)
	if err != nil {
		return domain.WatchEntry{}, err
	}
	if err := validateTarget("add_watch_entry", target); err != nil {
		return domain.WatchEntry{}, err
	}

	if s.verifier != nil {
		q := s.verifier.Quote(ctx, sym)
		switch q.Status {
		case domain.QuoteAbsent:
			return domain.WatchEntry{}, domain.NewValidationError("add_watch_entry", "no market data found for %s", sym)
		case domain.QuoteUnavailable:
			s.log.Warn().Str("symbol", sym).Msg("Price feed unavailable, adding without verification")
		}
	}

	entry, created, err := s.repo.Upsert(ctx, domain.WatchEntry{Symbol: sym, TargetPrice: target})
	if err != nil {
		return domain.WatchEntry{}, domain.NewPersistenceError("add_watch_entry", err)
	}

	action := "updated"
	if created {
		action = "added"
	}
	s.log.Info().Str("symbol", sym).Str("action", action).Msg("Watchlist entry saved")
	s.emit(action, sym)
	return entry, nil
}

// SetTarget sets or clears the target of an existing entry
func (s *Service) SetTarget(ctx context.Context, symbol string, target *float64) (domain.WatchEntry, error) {
	sym := domain.NormalizeSymbol(symbol)
	if err := validateTarget("set_watch_target", target); err != nil {
		return domain.WatchEntry{}, err
	}
	if _, err := s.repo.Get(ctx, sym); err != nil {
		return domain.WatchEntry{}, domain.NewPersistenceError("set_watch_target", err)
	}

	entry, _, err := s.repo.Upsert(ctx, domain.WatchEntry{Symbol: sym, TargetPrice: target})
	if err != nil {
		return domain.WatchEntry{}, domain.NewPersistenceError("set_watch_target", err)
	}
	s.emit("updated", sym)
	return entry, nil
}

// Remove deletes an entry
func (s *Service) Remove(ctx context.Context, symbol string) error {
	sym := domain.NormalizeSymbol(symbol)
	if err := s.repo.Delete(ctx, sym); err != nil {
		return domain.NewPersistenceError("remove_watch_entry", err)
	}
	s.log.Info().Str("symbol", sym).Msg("Watchlist entry removed")
	s.emit("removed", sym)
	return nil
}

// List returns every entry
func (s *Service) List(ctx context.Context) ([]domain.WatchEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.NewPersistenceError("list_watchlist", err)
	}
	return entries, nil
}

// ListWatchEntries lets the alert evaluator read the watchlist
func (s *Service) ListWatchEntries(ctx context.Context) ([]domain.WatchEntry, error) {
	return s.List(ctx)
}

func (s *Service) emit(action, symbol string) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped("watchlist", &events.CollectionChangedData{
		Type:   events.WatchlistChanged,
		Action: action,
		Key:    symbol,
	})
}

func validateTarget(op string, target *float64) error {
	if target != nil && (!(*target > 0) || math.IsInf(*target, 0)) {
		return domain.NewValidationError(op, "target price must be a positive number")
	}
	return nil
}
