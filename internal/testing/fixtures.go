package testing

import (
	"time"

	"github.com/holdfast/holdfast/internal/domain"
)

// Day returns midnight UTC of the given date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Buy builds a buy transaction for tests
func Buy(symbol, broker string, qty, price float64, at time.Time) domain.Transaction {
	return domain.Transaction{
		ExecutedAt: at,
		Symbol:     symbol,
		Kind:       domain.OperationBuy,
		Quantity:   qty,
		Price:      price,
		Broker:     broker,
		Category:   "Stocks",
	}
}

// Sell builds a sell transaction for tests
func Sell(symbol, broker string, qty, price float64, at time.Time) domain.Transaction {
	tx := Buy(symbol, broker, qty, price, at)
	tx.Kind = domain.OperationSell
	return tx
}

// NewBarFixtures returns n daily bars ending at end, closing on a straight
// line from start to stop.
func NewBarFixtures(n int, start, stop float64, end time.Time) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := 0; i < n; i++ {
		c := start
		if n > 1 {
			c = start + (stop-start)*float64(i)/float64(n-1)
		}
		bars[i] = domain.Bar{
			Time:   end.AddDate(0, 0, i-n+1),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
