// Package handlers provides HTTP handlers for the watchlist.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/httpapi"
	"github.com/rs/zerolog"
)

// WatchlistService is what the handlers need from watchlist.Service
type WatchlistService interface {
	Add(ctx context.Context, symbol, market string, target *float64) (domain.WatchEntry, error)
	SetTarget(ctx context.Context, symbol string, target *float64) (domain.WatchEntry, error)
	Remove(ctx context.Context, symbol string) error
	List(ctx context.Context) ([]domain.WatchEntry, error)
}

// Handler handles watchlist HTTP requests
type Handler struct {
	service WatchlistService
	log     zerolog.Logger
}

// NewHandler creates a new watchlist handler
func NewHandler(service WatchlistService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "watchlist").Logger(),
	}
}

// RegisterRoutes registers watchlist routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/watchlist", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleAdd)
		r.Delete("/{symbol}", h.HandleRemove)
		r.Put("/{symbol}/target", h.HandleSetTarget)
	})
}

type addRequest struct {
	Symbol      string   `json:"symbol"`
	Market      string   `json:"market"`
	TargetPrice *float64 `json:"target_price"`
}

type targetRequest struct {
	TargetPrice *float64 `json:"target_price"`
}

// HandleList handles GET /api/watchlist
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// HandleAdd handles POST /api/watchlist
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	entry, err := h.service.Add(r.Context(), req.Symbol, req.Market, req.TargetPrice)
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusCreated, entry)
}

// HandleSetTarget handles PUT /api/watchlist/{symbol}/target
func (h *Handler) HandleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	entry, err := h.service.SetTarget(r.Context(), chi.URLParam(r, "symbol"), req.TargetPrice)
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, entry)
}

// HandleRemove handles DELETE /api/watchlist/{symbol}
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "symbol")); err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
