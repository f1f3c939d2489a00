package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/modules/alerts"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/holdfast/holdfast/internal/modules/valuation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:        t.TempDir(),
		LogLevel:       "error",
		Port:           8001,
		YahooURL:       "http://127.0.0.1:1",
		PriceTimeout:   time.Second,
		PriceCacheTTL:  30 * time.Second,
		PriceRateLimit: 5,
		Schedules: config.ScheduleConfig{
			CacheCleanup: "0 */10 * * * *",
			AlertSweep:   "0 */15 * * * *",
		},
		Catalog: config.DefaultCatalog(),
	}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	a.loadConfig = func() (*config.Config, error) { return cfg, nil }
	defer a.close()

	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func runJSON(t *testing.T, cfg *config.Config, v any, args ...string) {
	t.Helper()
	out, err := run(t, cfg, append(args, "--json")...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestLedgerCommands(t *testing.T) {
	cfg := testConfig(t)

	_, err := run(t, cfg, "record", "buy", "AAPL", "10", "100", "--broker", "Eco", "--date", "2024-01-01")
	require.NoError(t, err)
	_, err = run(t, cfg, "record", "buy", "AAPL", "10", "200", "--broker", "Eco", "--date", "2024-01-02")
	require.NoError(t, err)

	var sold ledger.RecordResult
	runJSON(t, cfg, &sold, "record", "sell", "AAPL", "5", "300", "--broker", "Eco", "--date", "2024-01-03")
	require.NotNil(t, sold.Position)
	assert.InDelta(t, 15, sold.Position.Quantity, 1e-9)
	assert.InDelta(t, 150, sold.Position.AvgPrice, 1e-9)

	var txs []domain.Transaction
	runJSON(t, cfg, &txs, "list", "--symbol", "AAPL")
	require.Len(t, txs, 3)

	// dropping the 200 buy leaves 10@100 minus 5
	var second domain.Transaction
	for _, tx := range txs {
		if tx.Price == 200 {
			second = tx
		}
	}
	var deleted ledger.DeleteResult
	runJSON(t, cfg, &deleted, "delete", "2")
	assert.Equal(t, second.ID, deleted.Transaction.ID)
	require.NotNil(t, deleted.Position)
	assert.InDelta(t, 5, deleted.Position.Quantity, 1e-9)
	assert.InDelta(t, 100, deleted.Position.AvgPrice, 1e-9)

	var positions []domain.Position
	runJSON(t, cfg, &positions, "positions")
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Symbol)

	out, err := run(t, cfg, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger consistent")

	out, err = run(t, cfg, "rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "rebuilt 1 positions")

	out, err = run(t, cfg, "target", "aapl", "90")
	require.NoError(t, err)
	assert.Contains(t, out, "target of AAPL set to 90.00 on 1 positions")

	var removed ledger.RemoveResult
	runJSON(t, cfg, &removed, "remove", "AAPL")
	assert.EqualValues(t, 1, removed.Positions)
	assert.EqualValues(t, 2, removed.Transactions)
}

func TestRecordValidation(t *testing.T) {
	cfg := testConfig(t)

	_, err := run(t, cfg, "record", "hold", "AAPL", "1", "1", "--broker", "Eco")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = run(t, cfg, "record", "buy", "AAPL", "ten", "1", "--broker", "Eco")
	assert.Error(t, err)

	_, err = run(t, cfg, "record", "buy", "AAPL", "1", "Inf", "--broker", "Eco")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = run(t, cfg, "record", "buy", "AAPL", "1", "1", "--broker", "Eco", "--date", "yesterday")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// overselling leaves nothing behind
	_, err = run(t, cfg, "record", "sell", "AAPL", "1", "1", "--broker", "Eco")
	assert.Error(t, err)

	var txs []domain.Transaction
	runJSON(t, cfg, &txs, "list")
	assert.Empty(t, txs)
}

func TestValuationWithoutPrices(t *testing.T) {
	cfg := testConfig(t)
	_, err := run(t, cfg, "record", "buy", "AAPL", "10", "100", "--broker", "Eco")
	require.NoError(t, err)
	_, err = run(t, cfg, "target", "AAPL", "90")
	require.NoError(t, err)

	var v valuation.Valuation
	runJSON(t, cfg, &v, "valuate")
	require.Len(t, v.Positions, 1)
	assert.Equal(t, domain.QuoteUnavailable, v.Positions[0].PriceStatus)
	assert.Equal(t, 1, v.Totals.Unpriced)

	var list []alerts.Alert
	runJSON(t, cfg, &list, "alerts")
	require.Len(t, list, 1)
	assert.Equal(t, alerts.StateNoPrice, list[0].State)

	var cats []valuation.CategorySummary
	runJSON(t, cfg, &cats, "valuate", "--summary")
	require.Len(t, cats, 1)
	assert.InDelta(t, 1000, cats[0].InvestedCapital, 1e-9)

	runJSON(t, cfg, &v, "valuate", "--interval", "30s")
	assert.InDelta(t, 30, v.NextRefreshIn, 1)

	_, err = run(t, cfg, "valuate", "--interval", "7s")
	assert.ErrorIs(t, err, domain.ErrValidation)

	out, err := run(t, cfg, "valuate")
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "0 priced, 1 unpriced")
}

func TestWatchlistCommands(t *testing.T) {
	cfg := testConfig(t)

	var entry domain.WatchEntry
	runJSON(t, cfg, &entry, "watchlist", "add", "msft", "--target", "300")
	assert.Equal(t, "MSFT", entry.Symbol)
	require.NotNil(t, entry.TargetPrice)
	assert.InDelta(t, 300, *entry.TargetPrice, 1e-9)

	runJSON(t, cfg, &entry, "watch", "target", "MSFT", "none")
	assert.Nil(t, entry.TargetPrice)

	var entries []domain.WatchEntry
	runJSON(t, cfg, &entries, "watchlist", "list")
	require.Len(t, entries, 1)

	_, err := run(t, cfg, "watchlist", "remove", "MSFT")
	require.NoError(t, err)
	_, err = run(t, cfg, "watchlist", "remove", "MSFT")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBibliographyCommands(t *testing.T) {
	cfg := testConfig(t)

	var item domain.BibliographyItem
	runJSON(t, cfg, &item, "bib", "add", "The Intelligent Investor", "Benjamin Graham", "--year", "1949")
	require.NotNil(t, item.Year)
	assert.Equal(t, 1949, *item.Year)

	var items []domain.BibliographyItem
	runJSON(t, cfg, &items, "bibliography", "list")
	require.Len(t, items, 1)

	_, err := run(t, cfg, "bibliography", "delete", "abc")
	assert.Error(t, err)

	out, err := run(t, cfg, "bibliography", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted #1")
}

func TestDBCommands(t *testing.T) {
	cfg := testConfig(t)

	var paths map[string]string
	runJSON(t, cfg, &paths, "db", "init")
	assert.Equal(t, cfg.LedgerDBPath(), paths["ledger"])
	assert.Equal(t, cfg.ClientDataDBPath(), paths["client_data"])

	_, err := run(t, cfg, "db", "backup")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	_, err = run(t, cfg, "bars", "AAPL", "--period", "10y")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCatalogCommand(t *testing.T) {
	cfg := testConfig(t)

	var c config.Catalog
	runJSON(t, cfg, &c, "catalog")
	assert.Contains(t, c.Brokers, "Eco")
	assert.Equal(t, "Stocks", c.DefaultCategory)
}

func TestParseTarget(t *testing.T) {
	v, err := parseTarget("none")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = parseTarget("12.5")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, *v, 1e-9)

	_, err = parseTarget("abc")
	assert.Error(t, err)
}
