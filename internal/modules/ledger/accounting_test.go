package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	testingpkg "github.com/holdfast/holdfast/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return t0.AddDate(0, 0, n)
}

func withID(tx domain.Transaction, id int64) domain.Transaction {
	tx.ID = id
	return tx
}

func TestApply_BuyWeightedMean(t *testing.T) {
	pos, err := Apply(nil, testingpkg.Buy("AAPL", "Eco", 10, 100, day(0)))
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 10.0, pos.Quantity)
	assert.Equal(t, 100.0, pos.AvgPrice)
	assert.Equal(t, "Stocks", pos.Category)

	pos, err = Apply(pos, testingpkg.Buy("AAPL", "Eco", 10, 200, day(1)))
	require.NoError(t, err)
	assert.Equal(t, 20.0, pos.Quantity)
	assert.InDelta(t, 150.0, pos.AvgPrice, 1e-12)
}

func TestApply_SellKeepsAverage(t *testing.T) {
	pos := &domain.Position{Symbol: "AAPL", Broker: "Eco", Quantity: 20, AvgPrice: 150}

	next, err := Apply(pos, testingpkg.Sell("AAPL", "Eco", 5, 300, day(2)))
	require.NoError(t, err)
	assert.Equal(t, 15.0, next.Quantity)
	assert.Equal(t, 150.0, next.AvgPrice)

	// input untouched
	assert.Equal(t, 20.0, pos.Quantity)
}

func TestApply_SellEverythingCloses(t *testing.T) {
	pos := &domain.Position{Symbol: "AAPL", Broker: "Eco", Quantity: 0.3, AvgPrice: 10}

	next, err := Apply(pos, testingpkg.Sell("AAPL", "Eco", 0.1+0.2, 12, day(1)))
	require.NoError(t, err)
	assert.Nil(t, next, "residual within epsilon closes the position")
}

func TestApply_Oversell(t *testing.T) {
	_, err := Apply(nil, testingpkg.Sell("AAPL", "Eco", 1, 100, day(0)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidOperation))
	assert.Contains(t, err.Error(), "no position to sell from")

	pos := &domain.Position{Symbol: "AAPL", Broker: "Eco", Quantity: 5, AvgPrice: 100}
	_, err = Apply(pos, testingpkg.Sell("AAPL", "Eco", 6, 100, day(0)))
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestApply_ReopenTakesNewCategory(t *testing.T) {
	first := testingpkg.Buy("BTC-USD", "Binance", 1, 100, day(0))
	first.Category = "Crypto"
	pos, err := Apply(nil, first)
	require.NoError(t, err)

	more := testingpkg.Buy("BTC-USD", "Binance", 1, 300, day(1))
	more.Category = "Funds"
	pos, err = Apply(pos, more)
	require.NoError(t, err)
	assert.Equal(t, "Crypto", pos.Category, "category comes from the opening buy")
}

func TestReplay_Scenario(t *testing.T) {
	history := []domain.Transaction{
		withID(testingpkg.Sell("X", "Eco", 5, 300, day(2)), 3),
		withID(testingpkg.Buy("X", "Eco", 10, 100, day(0)), 1),
		withID(testingpkg.Buy("X", "Eco", 10, 200, day(1)), 2),
	}

	pos, err := Replay(history)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.InDelta(t, 15.0, pos.Quantity, 1e-12)
	assert.InDelta(t, 150.0, pos.AvgPrice, 1e-12)
}

func TestReplay_DeleteMiddle(t *testing.T) {
	history := []domain.Transaction{
		withID(testingpkg.Buy("X", "Eco", 10, 100, day(0)), 1),
		withID(testingpkg.Sell("X", "Eco", 5, 300, day(2)), 3),
	}

	pos, err := Replay(history)
	require.NoError(t, err)
	assert.Equal(t, 5.0, pos.Quantity)
	assert.Equal(t, 100.0, pos.AvgPrice)
}

func TestReplay_TiesBrokenByID(t *testing.T) {
	// same timestamp: the buy (lower id) must come first
	history := []domain.Transaction{
		withID(testingpkg.Sell("X", "Eco", 10, 120, day(0)), 2),
		withID(testingpkg.Buy("X", "Eco", 10, 100, day(0)), 1),
	}
	pos, err := Replay(history)
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestReplay_Inconsistent(t *testing.T) {
	history := []domain.Transaction{
		withID(testingpkg.Sell("X", "Eco", 5, 300, day(2)), 3),
	}
	_, err := Replay(history)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestReplay_Empty(t *testing.T) {
	pos, err := Replay(nil)
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestReplay_IncrementalAgreement(t *testing.T) {
	history := []domain.Transaction{
		withID(testingpkg.Buy("X", "Eco", 3, 10, day(0)), 1),
		withID(testingpkg.Buy("X", "Eco", 7, 13.5, day(1)), 2),
		withID(testingpkg.Sell("X", "Eco", 4, 20, day(2)), 3),
		withID(testingpkg.Buy("X", "Eco", 2.5, 9.75, day(3)), 4),
		withID(testingpkg.Sell("X", "Eco", 8.5, 30, day(4)), 5),
		withID(testingpkg.Buy("X", "Eco", 1, 50, day(5)), 6),
	}

	var incremental *domain.Position
	for _, tx := range history {
		var err error
		incremental, err = Apply(incremental, tx)
		require.NoError(t, err)
	}

	replayed, err := Replay(history)
	require.NoError(t, err)
	assert.True(t, samePosition(incremental, replayed))
	assert.Equal(t, 1.0, replayed.Quantity)
	assert.Equal(t, 50.0, replayed.AvgPrice)
}

func TestSamePosition(t *testing.T) {
	a := &domain.Position{Symbol: "X", Broker: "Eco", Quantity: 1, AvgPrice: 100}
	b := *a
	b.AvgPrice = 100 + 1e-12
	assert.True(t, samePosition(a, &b))
	b.AvgPrice = 101
	assert.False(t, samePosition(a, &b))
	assert.True(t, samePosition(nil, nil))
	assert.False(t, samePosition(a, nil))
}
