// Package valuation joins ledger positions with live quotes.
package valuation

import (
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/pkg/formulas"
)

// PositionValue is one position priced at its current quote.
// With no known price CurrentPrice is 0 and PriceStatus says why.
type PositionValue struct {
	domain.Position
	PriceStatus     domain.QuoteStatus `json:"price_status"`
	CurrentPrice    float64            `json:"current_price"`
	MarketValue     float64            `json:"market_value"`
	InvestedCapital float64            `json:"invested_capital"`
	GainLossAbs     float64            `json:"gain_loss_abs"`
	GainLossPct     float64            `json:"gain_loss_pct"`
	PriceCached     bool               `json:"price_cached"`
}

// Totals aggregates the positions whose price is known
type Totals struct {
	MarketValue     float64 `json:"market_value"`
	InvestedCapital float64 `json:"invested_capital"`
	GainLossAbs     float64 `json:"gain_loss_abs"`
	GainLossPct     float64 `json:"gain_loss_pct"`
	Priced          int     `json:"priced"`
	Unpriced        int     `json:"unpriced"`
}

// Valuation is the result of one valuation pass
type Valuation struct {
	GeneratedAt   time.Time       `json:"generated_at"`
	Positions     []PositionValue `json:"positions"`
	Totals        Totals          `json:"totals"`
	NextRefreshIn float64         `json:"next_refresh_in"` // seconds, 0 when auto refresh is off
}

// CategorySummary is the invested capital of one category
type CategorySummary struct {
	Category        string  `json:"category"`
	InvestedCapital float64 `json:"invested_capital"`
	SharePct        float64 `json:"share_pct"`
	Positions       int     `json:"positions"`
}

// Rounded returns a copy with money fields rounded to cents for display
func (v PositionValue) Rounded() PositionValue {
	v.MarketValue = formulas.Round2(v.MarketValue)
	v.InvestedCapital = formulas.Round2(v.InvestedCapital)
	v.GainLossAbs = formulas.Round2(v.GainLossAbs)
	v.GainLossPct = formulas.Round2(v.GainLossPct)
	return v
}

// Rounded returns a copy with money fields rounded to cents for display
func (t Totals) Rounded() Totals {
	t.MarketValue = formulas.Round2(t.MarketValue)
	t.InvestedCapital = formulas.Round2(t.InvestedCapital)
	t.GainLossAbs = formulas.Round2(t.GainLossAbs)
	t.GainLossPct = formulas.Round2(t.GainLossPct)
	return t
}
