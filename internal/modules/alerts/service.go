package alerts

import (
	"context"
	"sort"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/events"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/holdfast/holdfast/internal/session"
	"github.com/rs/zerolog"
)

// PositionLister is the part of the ledger the evaluator reads
type PositionLister interface {
	ListPositions(ctx context.Context, filter ledger.PositionFilter) ([]domain.Position, error)
}

// WatchLister is the part of the watchlist the evaluator reads
type WatchLister interface {
	ListWatchEntries(ctx context.Context) ([]domain.WatchEntry, error)
}

// EventEmitter is implemented by events.Manager
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Alert is one evaluated target
type Alert struct {
	Result
	Symbol       string             `json:"symbol"`
	Source       string             `json:"source"`
	TargetPrice  *float64           `json:"target_price,omitempty"`
	CurrentPrice float64            `json:"current_price"`
	PriceStatus  domain.QuoteStatus `json:"price_status,omitempty"`
}

// Options narrow an evaluation
type Options struct {
	OnlyWithTarget bool // skip NO_TARGET entries
}

// Service evaluates every position and watch entry
type Service struct {
	positions PositionLister
	watchlist WatchLister
	quotes    domain.QuoteProvider
	events    EventEmitter
	log       zerolog.Logger
}

// NewService creates a new alert service. watchlist may be nil.
func NewService(positions PositionLister, watchlist WatchLister, quotes domain.QuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		watchlist: watchlist,
		quotes:    quotes,
		log:       log.With().Str("service", "alerts").Logger(),
	}
}

// SetEventEmitter wires ALERT_REACHED notifications
func (s *Service) SetEventEmitter(e EventEmitter) {
	s.events = e
}

type candidate struct {
	symbol string
	source string
	target *float64
}

// EvaluateAlerts classifies the target of every held symbol (once per
// symbol, since the target is per symbol) and every watch entry.
// Previous prices for crossing detection come from the session.
func (s *Service) EvaluateAlerts(ctx context.Context, opts Options) ([]Alert, error) {
	candidates, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.target != nil {
			symbols = append(symbols, c.symbol)
		}
	}
	quotes := s.quotes.Quotes(ctx, symbols)
	sc := session.FromContext(ctx)

	alerts := make([]Alert, 0, len(candidates))
	for _, c := range candidates {
		if c.target == nil && opts.OnlyWithTarget {
			continue
		}

		q := quotes[c.symbol]
		var prev *float64
		if p, ok := sc.PreviousPrice(c.symbol); ok {
			prev = &p
		}

		a := Alert{
			Result:      Evaluate(c.target, q, prev),
			Symbol:      c.symbol,
			Source:      c.source,
			TargetPrice: c.target,
			PriceStatus: q.Status,
		}
		if q.Known() {
			a.CurrentPrice = q.Price
		}
		alerts = append(alerts, a)

		if a.State == StateReached {
			s.log.Info().Str("symbol", a.Symbol).Str("source", a.Source).Float64("target", *a.TargetPrice).Float64("price", a.CurrentPrice).Msg("Target reached")
			s.emitReached(a)
		}
	}

	return alerts, nil
}

func (s *Service) candidates(ctx context.Context) ([]candidate, error) {
	positions, err := s.positions.ListPositions(ctx, ledger.PositionFilter{})
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string]int)
	out := make([]candidate, 0, len(positions))
	for _, p := range positions {
		if i, seen := bySymbol[p.Symbol]; seen {
			if out[i].target == nil {
				out[i].target = p.TargetPrice
			}
			continue
		}
		bySymbol[p.Symbol] = len(out)
		out = append(out, candidate{symbol: p.Symbol, source: SourcePosition, target: p.TargetPrice})
	}

	if s.watchlist != nil {
		entries, err := s.watchlist.ListWatchEntries(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			out = append(out, candidate{symbol: e.Symbol, source: SourceWatchlist, target: e.TargetPrice})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].source != out[j].source {
			return out[i].source == SourcePosition
		}
		return out[i].symbol < out[j].symbol
	})
	return out, nil
}

func (s *Service) emitReached(a Alert) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped("alerts", &events.AlertReachedData{
		Symbol: a.Symbol,
		Source: a.Source,
		Target: *a.TargetPrice,
		Price:  a.CurrentPrice,
	})
}
