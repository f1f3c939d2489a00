package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/holdfast/holdfast/internal/session"
	testingpkg "github.com/holdfast/holdfast/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	positions []domain.Position
	err       error
	filter    ledger.PositionFilter
}

func (f *fakeLister) ListPositions(ctx context.Context, filter ledger.PositionFilter) ([]domain.Position, error) {
	f.filter = filter
	return f.positions, f.err
}

func TestService_Valuate(t *testing.T) {
	lister := &fakeLister{positions: []domain.Position{
		pos("AAPL", "Stocks", 10, 100),
		pos("GGAL.BA", "Stocks", 5, 2000),
	}}
	quotes := testingpkg.PriceQuotes(map[string]float64{"AAPL": 150})
	svc := NewService(lister, quotes, zerolog.Nop())

	result, err := svc.Valuate(context.Background(), ledger.PositionFilter{Broker: "Eco"})
	require.NoError(t, err)
	assert.Equal(t, "Eco", lister.filter.Broker)

	require.Len(t, result.Positions, 2)
	assert.Equal(t, 1500.0, result.Positions[0].MarketValue)
	assert.Equal(t, domain.QuoteAbsent, result.Positions[1].PriceStatus)
	assert.Zero(t, result.Positions[1].CurrentPrice)

	assert.Equal(t, 1, result.Totals.Priced)
	assert.Equal(t, 1, result.Totals.Unpriced)
	assert.Equal(t, 500.0, result.Totals.GainLossAbs)
	assert.Zero(t, result.NextRefreshIn)
}

func TestService_ValuateReportsNextRefresh(t *testing.T) {
	lister := &fakeLister{}
	svc := NewService(lister, testingpkg.StaticQuotes{}, zerolog.Nop())

	sc := session.New(time.Second)
	sc.RefreshInterval = 60 * time.Second
	result, err := svc.Valuate(session.WithContext(context.Background(), sc), ledger.PositionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.NextRefreshIn)
	assert.Empty(t, result.Positions)
}

func TestService_ValuateCountsDownFromOldestQuote(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{positions: []domain.Position{
		pos("AAPL", "Stocks", 10, 100),
		pos("MSFT", "Stocks", 1, 300),
		pos("YPF", "Energy", 1, 20),
	}}
	quotes := testingpkg.StaticQuotes{
		"AAPL": {Price: 150, Status: domain.QuoteOK, FetchedAt: now.Add(-5 * time.Second)},
		"MSFT": {Price: 310, Status: domain.QuoteOK, FetchedAt: now.Add(-20 * time.Second), Cached: true},
		"YPF":  {Status: domain.QuoteUnavailable, FetchedAt: now.Add(-50 * time.Second)},
	}
	svc := NewService(lister, quotes, zerolog.Nop())
	svc.now = func() time.Time { return now }

	sc := session.New(time.Second)
	sc.RefreshInterval = 60 * time.Second
	result, err := svc.Valuate(session.WithContext(context.Background(), sc), ledger.PositionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 40.0, result.NextRefreshIn)

	sc.RefreshInterval = 0
	result, err = svc.Valuate(session.WithContext(context.Background(), sc), ledger.PositionFilter{})
	require.NoError(t, err)
	assert.Zero(t, result.NextRefreshIn)
}

func TestService_ValuateLedgerError(t *testing.T) {
	lister := &fakeLister{err: domain.NewPersistenceError("list_positions", errors.New("disk I/O error"))}
	svc := NewService(lister, testingpkg.StaticQuotes{}, zerolog.Nop())

	_, err := svc.Valuate(context.Background(), ledger.PositionFilter{})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	_, err = svc.SummaryByCategory(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestService_SummaryByCategory(t *testing.T) {
	lister := &fakeLister{positions: []domain.Position{
		pos("A", "Stocks", 10, 100),
		pos("B", "Bonds", 1, 100),
	}}
	svc := NewService(lister, testingpkg.StaticQuotes{}, zerolog.Nop())

	summary, err := svc.SummaryByCategory(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Stocks", summary[0].Category)
	assert.Equal(t, 1000.0, summary[0].InvestedCapital)
}
