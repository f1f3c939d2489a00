// Package handlers provides HTTP handlers for opportunity analysis and market data.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/httpapi"
	"github.com/holdfast/holdfast/internal/modules/analysis"
	"github.com/rs/zerolog"
)

// AnalysisService is what the handlers need from analysis.Service
type AnalysisService interface {
	Opportunities(ctx context.Context) ([]analysis.Analysis, error)
	Bars(ctx context.Context, symbol string, period domain.Period) ([]domain.Bar, error)
	ClearCache(ctx context.Context) (int64, error)
}

// Handler handles analysis and market HTTP requests
type Handler struct {
	service AnalysisService
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service AnalysisService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// RegisterRoutes registers analysis and market routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/analysis/opportunities", h.HandleOpportunities)
	r.Route("/market", func(r chi.Router) {
		r.Get("/{symbol}/bars", h.HandleBars)
		r.Post("/cache/clear", h.HandleClearCache)
	})
}

// HandleOpportunities handles GET /api/analysis/opportunities
func (h *Handler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Opportunities(r.Context())
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, result)
}

// HandleBars handles GET /api/market/{symbol}/bars?period=1y
func (h *Handler) HandleBars(w http.ResponseWriter, r *http.Request) {
	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	symbol := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))

	bars, err := h.service.Bars(r.Context(), symbol, period)
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	if bars == nil {
		bars = []domain.Bar{}
	}

	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"period": period,
		"bars":   bars,
	})
}

// HandleClearCache handles POST /api/market/cache/clear
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ClearCache(r.Context())
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]int64{"removed": n})
}
