package valuation

import (
	"context"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/holdfast/holdfast/internal/session"
	"github.com/rs/zerolog"
)

// PositionLister is the part of the ledger the valuation reads
type PositionLister interface {
	ListPositions(ctx context.Context, filter ledger.PositionFilter) ([]domain.Position, error)
}

// Service values positions on demand. It holds no state between calls.
type Service struct {
	positions PositionLister
	quotes    domain.QuoteProvider
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a new valuation service
func NewService(positions PositionLister, quotes domain.QuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		quotes:    quotes,
		now:       time.Now,
		log:       log.With().Str("service", "valuation").Logger(),
	}
}

// Valuate prices every position matching filter. Quote failures never
// fail the call; they show up as PriceStatus on the affected rows.
func (s *Service) Valuate(ctx context.Context, filter ledger.PositionFilter) (*Valuation, error) {
	positions, err := s.positions.ListPositions(ctx, filter)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	quotes := s.quotes.Quotes(ctx, symbols)

	values := make([]PositionValue, 0, len(positions))
	for _, p := range positions {
		q, ok := quotes[p.Symbol]
		if !ok {
			q = domain.Quote{Symbol: p.Symbol, Status: domain.QuoteUnavailable}
		}
		values = append(values, Value(p, q))
	}

	totals := ComputeTotals(values)
	if totals.Unpriced > 0 {
		s.log.Warn().Int("unpriced", totals.Unpriced).Int("positions", len(values)).Msg("Valuation has positions without a price")
	}

	now := s.now()
	sc := session.FromContext(ctx)
	policy := session.RefreshPolicy{Interval: sc.RefreshInterval}

	return &Valuation{
		GeneratedAt:   now.UTC(),
		Positions:     values,
		Totals:        totals,
		NextRefreshIn: policy.Countdown(oldestFetch(quotes, now), now).Seconds(),
	}, nil
}

// oldestFetch returns when the stalest known price of the pass was
// fetched, or now when no quote carries a fetch time
func oldestFetch(quotes map[string]domain.Quote, now time.Time) time.Time {
	oldest := now
	for _, q := range quotes {
		if q.Known() && !q.FetchedAt.IsZero() && q.FetchedAt.Before(oldest) {
			oldest = q.FetchedAt
		}
	}
	return oldest
}

// SummaryByCategory sums invested capital per category from stored positions
func (s *Service) SummaryByCategory(ctx context.Context) ([]CategorySummary, error) {
	positions, err := s.positions.ListPositions(ctx, ledger.PositionFilter{})
	if err != nil {
		return nil, err
	}
	return SummarizeByCategory(positions), nil
}
