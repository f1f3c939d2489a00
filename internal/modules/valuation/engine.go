package valuation

import (
	"sort"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/pkg/formulas"
)

// Value prices one position:
//
//	marketValue     = qty * price
//	investedCapital = qty * avg
//	gainLossAbs     = marketValue - investedCapital
//	gainLossPct     = (price - avg) / avg * 100, 0 when avg is 0
func Value(pos domain.Position, q domain.Quote) PositionValue {
	price := 0.0
	if q.Known() {
		price = q.Price
	}
	status := q.Status
	if status == "" {
		status = domain.QuoteUnavailable
	}

	mv := pos.Quantity * price
	ic := pos.InvestedCapital()

	return PositionValue{
		Position:        pos,
		PriceStatus:     status,
		CurrentPrice:    price,
		MarketValue:     mv,
		InvestedCapital: ic,
		GainLossAbs:     mv - ic,
		GainLossPct:     formulas.PercentChange(pos.AvgPrice, price),
		PriceCached:     q.Cached,
	}
}

// ComputeTotals sums the positions with a known price. Unpriced positions
// are only counted.
func ComputeTotals(values []PositionValue) Totals {
	var t Totals
	for _, v := range values {
		if v.PriceStatus != domain.QuoteOK {
			t.Unpriced++
			continue
		}
		t.Priced++
		t.MarketValue += v.MarketValue
		t.InvestedCapital += v.InvestedCapital
	}
	t.GainLossAbs = t.MarketValue - t.InvestedCapital
	if t.InvestedCapital > 0 {
		t.GainLossPct = t.GainLossAbs / t.InvestedCapital * 100
	}
	return t
}

// SummarizeByCategory sums invested capital per category, largest first.
// It needs no prices.
func SummarizeByCategory(positions []domain.Position) []CategorySummary {
	byCategory := make(map[string]*CategorySummary)
	var total float64

	for _, p := range positions {
		s, ok := byCategory[p.Category]
		if !ok {
			s = &CategorySummary{Category: p.Category}
			byCategory[p.Category] = s
		}
		ic := p.InvestedCapital()
		s.InvestedCapital += ic
		s.Positions++
		total += ic
	}

	out := make([]CategorySummary, 0, len(byCategory))
	for _, s := range byCategory {
		if total > 0 {
			s.SharePct = s.InvestedCapital / total * 100
		}
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].InvestedCapital != out[j].InvestedCapital {
			return out[i].InvestedCapital > out[j].InvestedCapital
		}
		return out[i].Category < out[j].Category
	})
	return out
}
