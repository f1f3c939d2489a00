package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/modules/alerts"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/holdfast/holdfast/internal/session"
	testingpkg "github.com/holdfast/holdfast/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type positions []domain.Position

func (p positions) ListPositions(ctx context.Context, filter ledger.PositionFilter) ([]domain.Position, error) {
	return p, nil
}

func setupRouter() http.Handler {
	target := 95.0
	held := positions{
		{Symbol: "AAPL", Broker: "Eco", Quantity: 1, AvgPrice: 100, TargetPrice: &target},
		{Symbol: "MSFT", Broker: "Eco", Quantity: 1, AvgPrice: 100},
	}
	svc := alerts.NewService(held, nil, testingpkg.PriceQuotes(map[string]float64{"AAPL": 90, "MSFT": 300}), zerolog.Nop())

	r := chi.NewRouter()
	r.Use(session.Middleware(time.Second))
	r.Route("/api", NewHandler(svc, zerolog.Nop()).RegisterRoutes)
	return r
}

type response struct {
	Data struct {
		Alerts  []alerts.Alert `json:"alerts"`
		Reached int            `json:"reached"`
	} `json:"data"`
}

func get(t *testing.T, router http.Handler, path string) response {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleEvaluate(t *testing.T) {
	router := setupRouter()

	body := get(t, router, "/api/alerts")
	require.Len(t, body.Data.Alerts, 1, "entries without target are hidden by default")
	assert.Equal(t, alerts.StatePendingAbove, body.Data.Alerts[0].State)
	assert.Zero(t, body.Data.Reached)

	body = get(t, router, "/api/alerts?all=true")
	assert.Len(t, body.Data.Alerts, 2)
}

func TestHandleEvaluate_PreviousPrices(t *testing.T) {
	router := setupRouter()

	body := get(t, router, "/api/alerts?prev=AAPL:100")
	require.Len(t, body.Data.Alerts, 1)
	assert.Equal(t, alerts.StateReached, body.Data.Alerts[0].State)
	assert.Equal(t, 1, body.Data.Reached)
}
