package testing

import (
	"context"
	"sync"

	"github.com/holdfast/holdfast/internal/domain"
)

// MockPriceFeed is an in-memory domain.PriceFeed.
// Symbols without a price report found=false; symbols in failing return an error.
type MockPriceFeed struct {
	mu      sync.RWMutex
	prices  map[string]float64
	bars    map[string][]domain.Bar
	failing map[string]error
	calls   map[string]int
}

// NewMockPriceFeed creates an empty feed
func NewMockPriceFeed() *MockPriceFeed {
	return &MockPriceFeed{
		prices:  make(map[string]float64),
		bars:    make(map[string][]domain.Bar),
		failing: make(map[string]error),
		calls:   make(map[string]int),
	}
}

// SetPrice sets the current price for a symbol
func (m *MockPriceFeed) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

// SetBars sets the history returned for a symbol
func (m *MockPriceFeed) SetBars(symbol string, bars []domain.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[symbol] = bars
}

// SetError makes every lookup of symbol fail with err
func (m *MockPriceFeed) SetError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[symbol] = err
}

// Calls returns how many current price lookups symbol received
func (m *MockPriceFeed) Calls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[symbol]
}

// CurrentPrice implements domain.PriceFeed
func (m *MockPriceFeed) CurrentPrice(ctx context.Context, symbol string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[symbol]++
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if err, ok := m.failing[symbol]; ok {
		return 0, false, err
	}
	price, ok := m.prices[symbol]
	return price, ok, nil
}

// HistoricalBars implements domain.PriceFeed
func (m *MockPriceFeed) HistoricalBars(ctx context.Context, symbol string, period domain.Period) ([]domain.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.failing[symbol]; ok {
		return nil, err
	}
	return m.bars[symbol], nil
}

// StaticQuotes is a domain.QuoteProvider backed by fixed quotes.
// Unknown symbols are reported absent.
type StaticQuotes map[string]domain.Quote

// Quote implements domain.QuoteProvider
func (s StaticQuotes) Quote(ctx context.Context, symbol string) domain.Quote {
	if q, ok := s[symbol]; ok {
		q.Symbol = symbol
		return q
	}
	return domain.Quote{Symbol: symbol, Status: domain.QuoteAbsent}
}

// Quotes implements domain.QuoteProvider
func (s StaticQuotes) Quotes(ctx context.Context, symbols []string) map[string]domain.Quote {
	out := make(map[string]domain.Quote, len(symbols))
	for _, sym := range symbols {
		out[sym] = s.Quote(ctx, sym)
	}
	return out
}

// PriceQuotes builds StaticQuotes with status ok from a price map
func PriceQuotes(prices map[string]float64) StaticQuotes {
	out := make(StaticQuotes, len(prices))
	for sym, p := range prices {
		out[sym] = domain.Quote{Symbol: sym, Price: p, Status: domain.QuoteOK}
	}
	return out
}
