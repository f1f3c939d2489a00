// Package formulas provides the numeric helpers used by valuation and analysis.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateSMA calculates the Simple Moving Average of the last length closes.
// Returns nil when there is not enough data.
func CalculateSMA(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length {
		return nil
	}

	sma := talib.Sma(closes, length)
	if len(sma) > 0 && !math.IsNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}

	return nil
}

// CalculateDistance returns (price - reference) / reference, or nil when
// the reference is missing or zero. Positive means price is above.
func CalculateDistance(price float64, reference *float64) *float64 {
	if reference == nil || *reference == 0 {
		return nil
	}
	d := (price - *reference) / *reference
	return &d
}
