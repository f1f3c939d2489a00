// Package analysis flags held and watched instruments trading near their
// yearly extremes or on either side of the 200 day moving average.
package analysis

import (
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/pkg/formulas"
)

// Signal is one observation about a price
type Signal string

const (
	SignalNearLow     Signal = "NEAR_52W_LOW"
	SignalNearHigh    Signal = "NEAR_52W_HIGH"
	SignalBelowMA200  Signal = "BELOW_MA200"
	SignalAboveMA200  Signal = "ABOVE_MA200"
	nearExtremeMargin        = 0.05
)

// Status of an analysis
const (
	StatusOK          = "ok"
	StatusNoData      = "no_data"
	StatusUnavailable = "unavailable"
)

// Analysis is the opportunity report for one symbol
type Analysis struct {
	Symbol       string   `json:"symbol"`
	Sources      []string `json:"sources"`
	Status       string   `json:"status"`
	Reason       string   `json:"reason,omitempty"`
	CurrentPrice float64  `json:"current_price,omitempty"`
	High52W      float64  `json:"high_52w,omitempty"`
	Low52W       float64  `json:"low_52w,omitempty"`
	MA50         *float64 `json:"ma_50,omitempty"`
	MA200        *float64 `json:"ma_200,omitempty"`
	// MA200DistancePct is how far the price sits from MA200, negative below it
	MA200DistancePct *float64 `json:"ma_200_distance_pct,omitempty"`
	AvgVolume        float64  `json:"avg_volume,omitempty"`
	Signals          []Signal `json:"signals"`
}

// Analyze computes the report from one year of bars. price <= 0 falls back
// to the last close.
func Analyze(symbol string, price float64, bars []domain.Bar) Analysis {
	a := Analysis{Symbol: symbol, Signals: []Signal{}}

	closes := make([]float64, 0, len(bars))
	volumes := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			closes = append(closes, b.Close)
			volumes = append(volumes, float64(b.Volume))
		}
	}
	if len(closes) == 0 {
		a.Status = StatusNoData
		a.Reason = "no historical data"
		return a
	}

	if price <= 0 {
		price = closes[len(closes)-1]
	}
	a.Status = StatusOK
	a.CurrentPrice = formulas.Round2(price)
	a.High52W, a.Low52W = formulas.HighLow(closes)
	a.MA50 = round(formulas.CalculateSMA(closes, 50))
	a.MA200 = round(formulas.CalculateSMA(closes, 200))
	a.AvgVolume = formulas.Round2(formulas.Mean(volumes))
	if d := formulas.CalculateDistance(price, a.MA200); d != nil {
		pct := formulas.Round2(*d * 100)
		a.MA200DistancePct = &pct
	}

	switch {
	case price <= a.Low52W*(1+nearExtremeMargin):
		a.Signals = append(a.Signals, SignalNearLow)
	case price >= a.High52W*(1-nearExtremeMargin):
		a.Signals = append(a.Signals, SignalNearHigh)
	}

	if a.MA200 != nil {
		if price < *a.MA200 {
			a.Signals = append(a.Signals, SignalBelowMA200)
		} else {
			a.Signals = append(a.Signals, SignalAboveMA200)
		}
	}
	return a
}

func round(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := formulas.Round2(*v)
	return &r
}
