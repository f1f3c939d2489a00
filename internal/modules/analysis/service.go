package analysis

import (
	"context"
	"sort"
	"sync"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/events"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/rs/zerolog"
)

const maxConcurrentAnalyses = 4

// PositionLister is the part of the ledger the analysis reads
type PositionLister interface {
	ListPositions(ctx context.Context, filter ledger.PositionFilter) ([]domain.Position, error)
}

// WatchLister is the part of the watchlist the analysis reads
type WatchLister interface {
	ListWatchEntries(ctx context.Context) ([]domain.WatchEntry, error)
}

// MarketData is implemented by services.PriceService
type MarketData interface {
	Quotes(ctx context.Context, symbols []string) map[string]domain.Quote
	Bars(ctx context.Context, symbol string, period domain.Period) ([]domain.Bar, error)
	ClearCache(ctx context.Context) (int64, error)
}

// EventEmitter is implemented by events.Manager
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Service runs opportunity analysis and serves market data
type Service struct {
	positions PositionLister
	watchlist WatchLister
	market    MarketData
	events    EventEmitter
	log       zerolog.Logger
}

// NewService creates a new analysis service. watchlist may be nil.
func NewService(positions PositionLister, watchlist WatchLister, market MarketData, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		watchlist: watchlist,
		market:    market,
		log:       log.With().Str("service", "analysis").Logger(),
	}
}

// SetEventEmitter wires PRICE_CACHE_CLEARED notifications
func (s *Service) SetEventEmitter(e EventEmitter) {
	s.events = e
}

// Opportunities analyzes every held symbol and watch entry, sorted by symbol.
// A symbol whose history cannot be fetched is reported unavailable.
func (s *Service) Opportunities(ctx context.Context) ([]Analysis, error) {
	sources, err := s.symbols(ctx)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(sources))
	for sym := range sources {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	quotes := s.market.Quotes(ctx, symbols)

	out := make([]Analysis, len(symbols))
	sem := make(chan struct{}, maxConcurrentAnalyses)
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out[i] = s.analyze(ctx, sym, quotes[sym])
			out[i].Sources = sources[sym]
		}(i, sym)
	}
	wg.Wait()

	return out, nil
}

func (s *Service) analyze(ctx context.Context, symbol string, q domain.Quote) Analysis {
	bars, err := s.market.Bars(ctx, symbol, domain.Period1Y)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("History unavailable for analysis")
		return Analysis{Symbol: symbol, Status: StatusUnavailable, Reason: err.Error(), Signals: []Signal{}}
	}

	price := 0.0
	if q.Known() {
		price = q.Price
	}
	return Analyze(symbol, price, bars)
}

func (s *Service) symbols(ctx context.Context) (map[string][]string, error) {
	positions, err := s.positions.ListPositions(ctx, ledger.PositionFilter{})
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string)
	add := func(sym, source string) {
		for _, existing := range out[sym] {
			if existing == source {
				return
			}
		}
		out[sym] = append(out[sym], source)
	}

	for _, p := range positions {
		add(p.Symbol, "position")
	}
	if s.watchlist != nil {
		entries, err := s.watchlist.ListWatchEntries(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			add(e.Symbol, "watchlist")
		}
	}
	return out, nil
}

// Bars returns the price history of symbol for period
func (s *Service) Bars(ctx context.Context, symbol string, period domain.Period) ([]domain.Bar, error) {
	if !period.Valid() {
		return nil, domain.NewValidationError("bars", "unsupported period %q", period)
	}
	return s.market.Bars(ctx, symbol, period)
}

// ClearCache drops cached quotes and bars
func (s *Service) ClearCache(ctx context.Context) (int64, error) {
	n, err := s.market.ClearCache(ctx)
	if err != nil {
		return 0, err
	}
	if s.events != nil {
		s.events.EmitTyped("analysis", &events.PriceCacheClearedData{Removed: n})
	}
	return n, nil
}
