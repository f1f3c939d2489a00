// Package services holds application services that combine clients and caches.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/holdfast/holdfast/internal/clientdata"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/metrics"
	"github.com/holdfast/holdfast/internal/session"
	"github.com/rs/zerolog"
)

// MaxConcurrentLookups bounds the fan-out of a multi symbol lookup
const MaxConcurrentLookups = 8

// PriceService resolves quotes cache-first and never fails: feed errors
// become QuoteUnavailable. It implements domain.QuoteProvider.
type PriceService struct {
	feed     domain.PriceFeed
	cache    domain.PriceCache // optional
	barCache domain.BarCache   // optional
	ttl      time.Duration
	metrics  *metrics.Registry
	now      func() time.Time
	log      zerolog.Logger
}

// NewPriceService creates a price service. cache may be nil.
// When the cache also stores bars it is used for history lookups.
func NewPriceService(feed domain.PriceFeed, cache domain.PriceCache, ttl time.Duration, log zerolog.Logger) *PriceService {
	if ttl <= 0 {
		ttl = clientdata.TTLPriceQuote
	}
	s := &PriceService{
		feed:  feed,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
		log:   log.With().Str("service", "prices").Logger(),
	}
	if bc, ok := cache.(domain.BarCache); ok {
		s.barCache = bc
	}
	return s
}

// SetMetrics attaches quote and cache metrics
func (s *PriceService) SetMetrics(m *metrics.Registry) {
	s.metrics = m
}

// Quote returns the current quote for one symbol. A cached quote older
// than the session's refresh interval is fetched again.
func (s *PriceService) Quote(ctx context.Context, symbol string) domain.Quote {
	symbol = domain.NormalizeSymbol(symbol)
	sc := session.FromContext(ctx)

	if !sc.ForceRefresh {
		policy := session.RefreshPolicy{Interval: sc.RefreshInterval}
		if q, ok := s.cached(ctx, symbol); ok && !policy.ShouldRefresh(q.FetchedAt, s.now()) {
			s.metrics.RecordQuote(string(q.Status))
			return q
		}
	}

	q := s.fetch(ctx, symbol, sc.PriceTimeout)
	s.metrics.RecordQuote(string(q.Status))
	return q
}

// Quotes looks up several symbols concurrently. Duplicates are fetched once.
func (s *PriceService) Quotes(ctx context.Context, symbols []string) map[string]domain.Quote {
	out := make(map[string]domain.Quote, len(symbols))
	seen := make(map[string]bool, len(symbols))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, MaxConcurrentLookups)
	)

	for _, raw := range symbols {
		symbol := domain.NormalizeSymbol(raw)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				out[symbol] = domain.Quote{Symbol: symbol, Status: domain.QuoteUnavailable}
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			q := s.Quote(ctx, symbol)
			mu.Lock()
			out[symbol] = q
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return out
}

// Bars returns historical bars, cached per (symbol, period)
func (s *PriceService) Bars(ctx context.Context, symbol string, period domain.Period) ([]domain.Bar, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.NewValidationError("bars", "symbol is required")
	}
	sc := session.FromContext(ctx)

	if s.barCache != nil && !sc.ForceRefresh {
		bars, ok, err := s.barCache.GetBars(ctx, symbol, period)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Bar cache read failed")
		}
		s.metrics.RecordCache("bars", ok)
		if ok {
			return bars, nil
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, sc.PriceTimeout)
	defer cancel()

	bars, err := s.feed.HistoricalBars(fetchCtx, symbol, period)
	if err != nil {
		if domain.KindOf(err) == nil {
			err = domain.NewUnavailableError("bars", err)
		}
		return nil, err
	}

	if s.barCache != nil && len(bars) > 0 {
		if err := s.barCache.SetBars(ctx, symbol, period, bars, clientdata.TTLPriceHistory); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache bars")
		}
	}
	return bars, nil
}

// ClearCache drops every cached price and bar series
func (s *PriceService) ClearCache(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	n, err := s.cache.Clear(ctx)
	if err != nil {
		return n, domain.NewPersistenceError("clear_price_cache", err)
	}
	s.log.Info().Int64("entries", n).Msg("Price cache cleared")
	return n, nil
}

func (s *PriceService) cached(ctx context.Context, symbol string) (domain.Quote, bool) {
	if s.cache == nil {
		return domain.Quote{}, false
	}

	price, fetchedAt, ok, err := s.cache.Get(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Price cache read failed")
	}
	s.metrics.RecordCache("quote", ok)
	if !ok {
		return domain.Quote{}, false
	}

	return domain.Quote{
		FetchedAt: fetchedAt,
		Symbol:    symbol,
		Status:    domain.QuoteOK,
		Price:     price,
		Cached:    true,
	}, true
}

func (s *PriceService) fetch(ctx context.Context, symbol string, timeout time.Duration) domain.Quote {
	q := domain.Quote{Symbol: symbol, FetchedAt: s.now().UTC()}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	price, found, err := s.feed.CurrentPrice(fetchCtx, symbol)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Price lookup failed")
		q.Status = domain.QuoteUnavailable
		return q
	case !found || price <= 0:
		q.Status = domain.QuoteAbsent
		return q
	}

	q.Status = domain.QuoteOK
	q.Price = price

	if s.cache != nil {
		if err := s.cache.Set(ctx, symbol, price, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache price")
		}
	}
	return q
}

var _ domain.QuoteProvider = (*PriceService)(nil)
