package clientdata

import (
	"context"
	"strings"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
)

// priceEntry is the msgpack payload of a cached quote
type priceEntry struct {
	Price     float64   `msgpack:"p"`
	FetchedAt time.Time `msgpack:"t"`
}

func quoteKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func historyKey(symbol string, period domain.Period) string {
	return quoteKey(symbol) + "|" + string(period)
}

// SQLiteCache is the client_data.db backed price cache.
type SQLiteCache struct {
	repo *Repository
}

// NewSQLiteCache creates a price cache over the client data repository
func NewSQLiteCache(repo *Repository) *SQLiteCache {
	return &SQLiteCache{repo: repo}
}

// Get returns a fresh cached price
func (c *SQLiteCache) Get(ctx context.Context, symbol string) (float64, time.Time, bool, error) {
	var e priceEntry
	ok, err := c.repo.GetIfFresh(ctx, TableQuotes, quoteKey(symbol), &e)
	if err != nil || !ok {
		return 0, time.Time{}, false, err
	}
	return e.Price, e.FetchedAt, true, nil
}

// Set caches a price for ttl
func (c *SQLiteCache) Set(ctx context.Context, symbol string, price float64, ttl time.Duration) error {
	return c.repo.Store(ctx, TableQuotes, quoteKey(symbol), priceEntry{Price: price, FetchedAt: c.repo.now().UTC()}, ttl)
}

// GetBars returns fresh cached bars
func (c *SQLiteCache) GetBars(ctx context.Context, symbol string, period domain.Period) ([]domain.Bar, bool, error) {
	var bars []domain.Bar
	ok, err := c.repo.GetIfFresh(ctx, TableHistory, historyKey(symbol, period), &bars)
	if err != nil || !ok {
		return nil, false, err
	}
	return bars, true, nil
}

// SetBars caches bars for ttl
func (c *SQLiteCache) SetBars(ctx context.Context, symbol string, period domain.Period, bars []domain.Bar, ttl time.Duration) error {
	return c.repo.Store(ctx, TableHistory, historyKey(symbol, period), bars, ttl)
}

// Clear drops every cached quote and bar series
func (c *SQLiteCache) Clear(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range AllTables {
		n, err := c.repo.Truncate(ctx, table)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DeleteExpired removes stale entries from every table
func (c *SQLiteCache) DeleteExpired(ctx context.Context) (int64, error) {
	results, err := c.repo.DeleteAllExpired(ctx)
	var total int64
	for _, n := range results {
		total += n
	}
	return total, err
}

var (
	_ domain.PriceCache = (*SQLiteCache)(nil)
	_ domain.BarCache   = (*SQLiteCache)(nil)
)
