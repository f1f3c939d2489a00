package domain

import (
	"context"
	"time"
)

// PriceFeed is the market data collaborator.
// CurrentPrice must not fail on an unknown symbol: it reports found=false.
// A non-nil error means the feed itself could not answer.
type PriceFeed interface {
	CurrentPrice(ctx context.Context, symbol string) (price float64, found bool, err error)
	HistoricalBars(ctx context.Context, symbol string, period Period) ([]Bar, error)
}

// QuoteProvider resolves quotes without ever failing; feed errors are
// folded into QuoteUnavailable.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) Quote
	Quotes(ctx context.Context, symbols []string) map[string]Quote
}

// PriceCache stores recently fetched prices. It is advisory only.
type PriceCache interface {
	Get(ctx context.Context, symbol string) (price float64, fetchedAt time.Time, ok bool, err error)
	Set(ctx context.Context, symbol string, price float64, ttl time.Duration) error
	Clear(ctx context.Context) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// BarCache stores historical bars per (symbol, period).
type BarCache interface {
	GetBars(ctx context.Context, symbol string, period Period) ([]Bar, bool, error)
	SetBars(ctx context.Context, symbol string, period Period, bars []Bar, ttl time.Duration) error
}
