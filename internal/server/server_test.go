package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/di"
	"github.com/holdfast/holdfast/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func setupServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()
	cfg := &config.Config{
		DataDir:        t.TempDir(),
		Port:           8001,
		YahooURL:       "http://127.0.0.1:1",
		PriceTimeout:   200 * time.Millisecond,
		PriceCacheTTL:  30 * time.Second,
		PriceRateLimit: 50,
		Schedules: config.ScheduleConfig{
			CacheCleanup: "0 */10 * * * *",
			AlertSweep:   "0 */15 * * * *",
		},
		Catalog: config.DefaultCatalog(),
	}
	c, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return New(Config{Log: zerolog.Nop(), Port: cfg.Port, DevMode: true, Container: c}), c
}

func request(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := setupServer(t)

	rec := request(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	rec = request(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "holdfast_http_request_duration_seconds")
}

func TestModuleRoutesMounted(t *testing.T) {
	s, _ := setupServer(t)

	rec := request(t, s, http.MethodPost, "/api/ledger/transactions", map[string]interface{}{
		"executed_at": "2024-01-01",
		"symbol":      "AAPL",
		"market":      "US",
		"kind":        "BUY",
		"broker":      "Eco",
		"quantity":    10,
		"price":       100,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	for _, path := range []string{
		"/api/ledger/positions",
		"/api/watchlist",
		"/api/bibliography",
		"/api/alerts",
	} {
		rec := request(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	// the feed is unreachable: the position is still valued, without a price
	rec = request(t, s, http.MethodGet, "/api/valuation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price_status":"unavailable"`)
}

func TestSystemRoutes(t *testing.T) {
	s, _ := setupServer(t)

	rec := request(t, s, http.MethodGet, "/api/system/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data SystemStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sqlite", body.Data.PriceCache)
	assert.Contains(t, body.Data.Databases, "ledger")
	assert.Contains(t, body.Data.Jobs, "alert_sweep")
	assert.False(t, body.Data.BackupEnabled)

	rec = request(t, s, http.MethodPost, "/api/system/backup", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = request(t, s, http.MethodPost, "/api/system/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = request(t, s, http.MethodPost, "/api/system/jobs/wal_checkpoint", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestEventStream(t *testing.T) {
	s, c := setupServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream?types=alert_reached", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() wireEvent {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var ev wireEvent
				require.NoError(t, json.Unmarshal([]byte(data), &ev))
				return ev
			}
		}
	}

	assert.Equal(t, "connected", next().Type)

	c.EventBus.Emit(events.WatchlistChanged, "watchlist", nil)
	c.EventBus.Emit(events.AlertReached, "alerts", map[string]interface{}{"symbol": "AAPL"})

	ev := next()
	assert.Equal(t, string(events.AlertReached), ev.Type, "filtered types are skipped")
	assert.Equal(t, "AAPL", ev.Data["symbol"])
}

func TestEventSocket(t *testing.T) {
	s, c := setupServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() wireEvent {
		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, websocket.MessageText, typ)
		var ev wireEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	}

	assert.Equal(t, "connected", read().Type)

	c.EventBus.Emit(events.PriceCacheCleared, "analysis", map[string]interface{}{"removed": 3})
	ev := read()
	assert.Equal(t, string(events.PriceCacheCleared), ev.Type)
	assert.Equal(t, "analysis", ev.Module)
}
