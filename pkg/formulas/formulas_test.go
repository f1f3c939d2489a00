package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		length   int
		expected *float64
	}{
		{name: "insufficient data", closes: series(10, 1, 1), length: 50, expected: nil},
		{name: "zero length", closes: series(10, 1, 1), length: 0, expected: nil},
		{name: "exact window", closes: []float64{1, 2, 3, 4}, length: 4, expected: ptr(2.5)},
		{name: "last window only", closes: []float64{100, 1, 2, 3}, length: 3, expected: ptr(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSMA(tt.closes, tt.length)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 1e-9)
		})
	}
}

func TestCalculateDistance(t *testing.T) {
	assert.Nil(t, CalculateDistance(10, nil))
	assert.Nil(t, CalculateDistance(10, ptr(0)))

	d := CalculateDistance(90, ptr(100))
	require.NotNil(t, d)
	assert.InDelta(t, -0.1, *d, 1e-12)
}

func TestHighLowAndMean(t *testing.T) {
	high, low := HighLow([]float64{3, 9, 1, 4})
	assert.Equal(t, 9.0, high)
	assert.Equal(t, 1.0, low)

	high, low = HighLow(nil)
	assert.Zero(t, high)
	assert.Zero(t, low)

	assert.Equal(t, 2.5, Mean([]float64{1, 2, 3, 4}))
	assert.Zero(t, Mean(nil))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, 1500.0, Round2(1500.0000001))
	assert.Equal(t, -2.35, Round2(-2.345))
	assert.Equal(t, 0.3, Round2(0.1+0.2))
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 50.0, PercentChange(100, 150))
	assert.InDelta(t, -10.0, PercentChange(100, 90), 1e-9)
	assert.Zero(t, PercentChange(0, 90))
}

func ptr(v float64) *float64 { return &v }
