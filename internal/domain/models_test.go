package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperationKind(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected OperationKind
		wantErr  bool
	}{
		{name: "buy upper", input: "BUY", expected: OperationBuy},
		{name: "sell lower", input: "sell", expected: OperationSell},
		{name: "padded", input: "  Buy ", expected: OperationBuy},
		{name: "unknown", input: "HOLD", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := ParseOperationKind(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{Symbol: "AAPL", Broker: "IBKR", Kind: OperationBuy, Quantity: 10, Price: 100}
	require.NoError(t, valid.Validate())
	assert.Equal(t, 1000.0, valid.Total())

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"zero quantity", func(tx *Transaction) { tx.Quantity = 0 }},
		{"negative quantity", func(tx *Transaction) { tx.Quantity = -1 }},
		{"zero price", func(tx *Transaction) { tx.Price = 0 }},
		{"negative price", func(tx *Transaction) { tx.Price = -5 }},
		{"infinite price", func(tx *Transaction) { tx.Price = math.Inf(1) }},
		{"infinite quantity", func(tx *Transaction) { tx.Quantity = math.Inf(1) }},
		{"missing symbol", func(tx *Transaction) { tx.Symbol = " " }},
		{"missing broker", func(tx *Transaction) { tx.Broker = "" }},
		{"bad kind", func(tx *Transaction) { tx.Kind = "HOLD" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestPosition_KeyAndInvested(t *testing.T) {
	p := Position{Symbol: "GGAL.BA", Broker: "Balanz", Quantity: 15, AvgPrice: 150}
	assert.Equal(t, PositionKey{Symbol: "GGAL.BA", Broker: "Balanz"}, p.Key())
	assert.Equal(t, "GGAL.BA@Balanz", p.Key().String())
	assert.Equal(t, 2250.0, p.InvestedCapital())
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeSymbol("  aapl "))
	assert.Equal(t, "", NormalizeSymbol("   "))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, Period1Y, p)

	p, err = ParsePeriod("5Y")
	require.NoError(t, err)
	assert.Equal(t, Period5Y, p)

	_, err = ParsePeriod("10y")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQuote_Known(t *testing.T) {
	assert.True(t, Quote{Status: QuoteOK, Price: 1}.Known())
	assert.False(t, Quote{Status: QuoteAbsent}.Known())
	assert.False(t, Quote{Status: QuoteUnavailable}.Known())
}
