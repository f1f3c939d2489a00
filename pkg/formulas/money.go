package formulas

import "github.com/shopspring/decimal"

// Round2 rounds a money amount half away from zero to two decimals
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// PercentChange returns (to - from) / from * 100, or 0 when from is not positive
func PercentChange(from, to float64) float64 {
	if from <= 0 {
		return 0
	}
	return (to - from) / from * 100
}
