package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/events"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	testingpkg "github.com/holdfast/holdfast/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type positions []domain.Position

func (p positions) ListPositions(ctx context.Context, filter ledger.PositionFilter) ([]domain.Position, error) {
	return p, nil
}

type watch []domain.WatchEntry

func (w watch) ListWatchEntries(ctx context.Context) ([]domain.WatchEntry, error) {
	return w, nil
}

type fakeMarket struct {
	testingpkg.StaticQuotes
	bars    map[string][]domain.Bar
	errs    map[string]error
	cleared int64
}

func (m *fakeMarket) Bars(ctx context.Context, symbol string, period domain.Period) ([]domain.Bar, error) {
	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	return m.bars[symbol], nil
}

func (m *fakeMarket) ClearCache(ctx context.Context) (int64, error) {
	return m.cleared, nil
}

type recorder struct {
	data []events.EventData
}

func (r *recorder) EmitTyped(module string, data events.EventData) {
	r.data = append(r.data, data)
}

func TestService_Opportunities(t *testing.T) {
	market := &fakeMarket{
		StaticQuotes: testingpkg.PriceQuotes(map[string]float64{"AAPL": 200}),
		bars: map[string][]domain.Bar{
			"AAPL": testingpkg.NewBarFixtures(250, 100, 200, end),
			"MSFT": testingpkg.NewBarFixtures(250, 200, 100, end),
		},
		errs: map[string]error{"YPF.BA": domain.NewUnavailableError("bars", errors.New("timeout"))},
	}
	held := positions{
		{Symbol: "AAPL", Broker: "Eco"},
		{Symbol: "AAPL", Broker: "PPI"},
		{Symbol: "YPF.BA", Broker: "Eco"},
	}
	watched := watch{{Symbol: "AAPL"}, {Symbol: "MSFT"}, {Symbol: "TSLA"}}

	svc := NewService(held, watched, market, zerolog.Nop())
	result, err := svc.Opportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 4)

	assert.Equal(t, "AAPL", result[0].Symbol)
	assert.Equal(t, []string{"position", "watchlist"}, result[0].Sources)
	assert.Contains(t, result[0].Signals, SignalNearHigh)

	assert.Equal(t, "MSFT", result[1].Symbol)
	assert.Equal(t, 100.0, result[1].CurrentPrice, "no quote falls back to last close")
	assert.Contains(t, result[1].Signals, SignalNearLow)

	assert.Equal(t, "TSLA", result[2].Symbol)
	assert.Equal(t, StatusNoData, result[2].Status)

	assert.Equal(t, "YPF.BA", result[3].Symbol)
	assert.Equal(t, StatusUnavailable, result[3].Status)
}

func TestService_BarsRejectsPeriod(t *testing.T) {
	svc := NewService(positions{}, nil, &fakeMarket{}, zerolog.Nop())

	_, err := svc.Bars(context.Background(), "AAPL", domain.Period("3d"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_ClearCacheEmits(t *testing.T) {
	rec := &recorder{}
	svc := NewService(positions{}, nil, &fakeMarket{cleared: 7}, zerolog.Nop())
	svc.SetEventEmitter(rec)

	n, err := svc.ClearCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	require.Len(t, rec.data, 1)
	assert.Equal(t, events.PriceCacheCleared, rec.data[0].EventType())
}
