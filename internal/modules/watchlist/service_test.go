package watchlist

import (
	"context"
	"testing"

	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/events"
	testingpkg "github.com/holdfast/holdfast/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []*events.CollectionChangedData
}

func (r *recorder) EmitTyped(module string, data events.EventData) {
	if d, ok := data.(*events.CollectionChangedData); ok {
		r.events = append(r.events, d)
	}
}

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	db, _ := testingpkg.NewTestDB(t, "ledger")
	svc := NewService(NewRepository(db.Conn(), zerolog.Nop()), config.DefaultCatalog(), zerolog.Nop())
	rec := &recorder{}
	svc.SetEventEmitter(rec)
	return svc, rec
}

func TestService_AddListRemove(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, "ggal", "AR", testingpkg.Ptr(3000.0))
	require.NoError(t, err)
	assert.Equal(t, "GGAL.BA", entry.Symbol)
	require.NotNil(t, entry.TargetPrice)
	assert.Equal(t, 3000.0, *entry.TargetPrice)

	_, err = svc.Add(ctx, "aapl", "US", nil)
	require.NoError(t, err)

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, svc.Remove(ctx, "ggal.ba"))
	entries, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "AAPL", entries[0].Symbol)
	assert.Nil(t, entries[0].TargetPrice)

	require.Len(t, rec.events, 3)
	assert.Equal(t, "added", rec.events[0].Action)
	assert.Equal(t, "removed", rec.events[2].Action)
	assert.Equal(t, events.WatchlistChanged, rec.events[2].EventType())
}

func TestService_AddExistingUpdatesTarget(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, "AAPL", "", testingpkg.Ptr(150.0))
	require.NoError(t, err)

	second, err := svc.Add(ctx, "AAPL", "", testingpkg.Ptr(160.0))
	require.NoError(t, err)
	assert.True(t, first.AddedAt.Equal(second.AddedAt))
	assert.Equal(t, 160.0, *second.TargetPrice)
	assert.Equal(t, "updated", rec.events[1].Action)

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestService_SetTarget(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetTarget(ctx, "AAPL", testingpkg.Ptr(10.0))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Add(ctx, "AAPL", "", testingpkg.Ptr(10.0))
	require.NoError(t, err)

	entry, err := svc.SetTarget(ctx, "aapl", nil)
	require.NoError(t, err)
	assert.Nil(t, entry.TargetPrice)

	_, err = svc.SetTarget(ctx, "AAPL", testingpkg.Ptr(-1.0))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "", "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Add(ctx, "AAPL", "", testingpkg.Ptr(0.0))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Add(ctx, "GGAL.BA", "US", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.ErrorIs(t, svc.Remove(ctx, "NOPE"), domain.ErrNotFound)
}

func TestService_Verification(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetVerifier(testingpkg.StaticQuotes{
		"AAPL": {Status: domain.QuoteOK, Price: 1},
		"DOWN": {Status: domain.QuoteUnavailable},
	})
	ctx := context.Background()

	_, err := svc.Add(ctx, "AAPL", "", nil)
	require.NoError(t, err)

	_, err = svc.Add(ctx, "DOWN", "", nil)
	require.NoError(t, err, "feed outages never block")

	_, err = svc.Add(ctx, "ZZZZ", "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
