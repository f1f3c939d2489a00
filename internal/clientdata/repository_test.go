package clientdata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/holdfast/holdfast/internal/database"
	"github.com/holdfast/holdfast/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db, database.NameClientData))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fixedClock returns a repository whose clock can be moved by the test
func fixedClock(t *testing.T) (*Repository, *time.Time) {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRepository(setupTestDB(t))
	repo.now = func() time.Time { return now }
	return repo, &now
}

func TestRepository_InvalidTable(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	err := repo.Store(ctx, "users; DROP TABLE x", "k", 1, time.Minute)
	assert.Error(t, err)

	_, err = repo.GetIfFresh(ctx, "nope", "k", new(int))
	assert.Error(t, err)

	_, err = repo.DeleteExpired(ctx, "nope")
	assert.Error(t, err)
}

func TestRepository_StoreAndFreshness(t *testing.T) {
	repo, now := fixedClock(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableQuotes, "AAPL", priceEntry{Price: 180}, time.Minute))

	var e priceEntry
	ok, err := repo.GetIfFresh(ctx, TableQuotes, "AAPL", &e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 180.0, e.Price)

	*now = now.Add(2 * time.Minute)

	ok, err = repo.GetIfFresh(ctx, TableQuotes, "AAPL", &e)
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are not fresh")

	var stale priceEntry
	ok, err = repo.Get(ctx, TableQuotes, "AAPL", &stale)
	require.NoError(t, err)
	assert.True(t, ok, "Get ignores expiry")
	assert.Equal(t, 180.0, stale.Price)

	ok, err = repo.Get(ctx, TableQuotes, "MSFT", &stale)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_DeleteAllExpired(t *testing.T) {
	repo, now := fixedClock(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableQuotes, "OLD", 1, time.Second))
	require.NoError(t, repo.Store(ctx, TableQuotes, "NEW", 1, time.Hour))
	require.NoError(t, repo.Store(ctx, TableHistory, "OLD|1y", []int{1}, time.Second))

	*now = now.Add(time.Minute)

	results, err := repo.DeleteAllExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TableQuotes])
	assert.Equal(t, int64(1), results[TableHistory])

	var v int
	ok, err := repo.GetIfFresh(ctx, TableQuotes, "NEW", &v)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableQuotes, "AAPL", 1, time.Hour))
	require.NoError(t, repo.Delete(ctx, TableQuotes, "AAPL"))

	var v int
	ok, err := repo.Get(ctx, TableQuotes, "AAPL", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCache_PriceRoundTrip(t *testing.T) {
	repo, now := fixedClock(t)
	cache := NewSQLiteCache(repo)
	ctx := context.Background()

	_, _, ok, err := cache.Get(ctx, "aapl")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "aapl", 181.5, 30*time.Second))

	price, fetchedAt, ok, err := cache.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 181.5, price)
	assert.Equal(t, now.Unix(), fetchedAt.Unix())

	*now = now.Add(31 * time.Second)
	_, _, ok, err = cache.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCache_BarsAndClear(t *testing.T) {
	repo, _ := fixedClock(t)
	cache := NewSQLiteCache(repo)
	ctx := context.Background()

	bars := []domain.Bar{
		{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Time: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
	}
	require.NoError(t, cache.SetBars(ctx, "GGAL.BA", domain.Period1Y, bars, time.Hour))
	require.NoError(t, cache.Set(ctx, "GGAL.BA", 2, time.Hour))

	got, ok, err := cache.GetBars(ctx, "ggal.ba", domain.Period1Y)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[1].Close)
	assert.Equal(t, int64(200), got[1].Volume)
	assert.Equal(t, bars[0].Time.Unix(), got[0].Time.Unix())

	_, ok, err = cache.GetBars(ctx, "GGAL.BA", domain.Period5Y)
	require.NoError(t, err)
	assert.False(t, ok, "periods are cached separately")

	cleared, err := cache.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)

	_, ok, err = cache.GetBars(ctx, "GGAL.BA", domain.Period1Y)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCleanupJob(t *testing.T) {
	repo, now := fixedClock(t)
	cache := NewSQLiteCache(repo)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "A", 1, time.Second))
	require.NoError(t, cache.Set(ctx, "B", 1, time.Hour))
	*now = now.Add(time.Minute)

	job := NewCleanupJob(cache, zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
	require.NoError(t, job.Run())

	var count int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM price_quotes").Scan(&count))
	assert.Equal(t, 1, count)

	// running again on a clean table is fine
	require.NoError(t, job.Run())
}
