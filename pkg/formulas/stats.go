package formulas

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// HighLow returns the maximum and minimum of data, zeros when empty
func HighLow(data []float64) (high, low float64) {
	if len(data) == 0 {
		return 0, 0
	}
	return floats.Max(data), floats.Min(data)
}
