// Package handlers provides HTTP handlers for portfolio valuation.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holdfast/holdfast/internal/httpapi"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/holdfast/holdfast/internal/modules/valuation"
	"github.com/rs/zerolog"
)

// ValuationService is what the handlers need from valuation.Service
type ValuationService interface {
	Valuate(ctx context.Context, filter ledger.PositionFilter) (*valuation.Valuation, error)
	SummaryByCategory(ctx context.Context) ([]valuation.CategorySummary, error)
}

// Handler handles valuation HTTP requests
type Handler struct {
	service ValuationService
	log     zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(service ValuationService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "valuation").Logger(),
	}
}

// RegisterRoutes registers valuation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/valuation", func(r chi.Router) {
		r.Get("/", h.HandleValuate)
		r.Get("/summary", h.HandleSummary)
	})
}

// HandleValuate handles GET /api/valuation
func (h *Handler) HandleValuate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.Valuate(r.Context(), ledger.PositionFilter{
		Symbol:   q.Get("symbol"),
		Broker:   q.Get("broker"),
		Category: q.Get("category"),
	})
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	for i := range result.Positions {
		result.Positions[i] = result.Positions[i].Rounded()
	}
	result.Totals = result.Totals.Rounded()

	httpapi.WriteData(w, r, h.log, http.StatusOK, result)
}

// HandleSummary handles GET /api/valuation/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.SummaryByCategory(r.Context())
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]interface{}{
		"categories": summary,
	})
}
