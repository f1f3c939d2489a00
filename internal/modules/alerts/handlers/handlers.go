// Package handlers provides HTTP handlers for target alerts.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holdfast/holdfast/internal/httpapi"
	"github.com/holdfast/holdfast/internal/modules/alerts"
	"github.com/rs/zerolog"
)

// AlertService is what the handlers need from alerts.Service
type AlertService interface {
	EvaluateAlerts(ctx context.Context, opts alerts.Options) ([]alerts.Alert, error)
}

// Handler handles alert HTTP requests
type Handler struct {
	service AlertService
	log     zerolog.Logger
}

// NewHandler creates a new alert handler
func NewHandler(service AlertService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "alerts").Logger(),
	}
}

// RegisterRoutes registers alert routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/alerts", h.HandleEvaluate)
}

// HandleEvaluate handles GET /api/alerts. Pass ?prev=SYM:price,... with the
// prices of the previous call to detect targets crossed in between.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	opts := alerts.Options{OnlyWithTarget: r.URL.Query().Get("all") != "true"}

	result, err := h.service.EvaluateAlerts(r.Context(), opts)
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	reached := 0
	for _, a := range result {
		if a.State == alerts.StateReached {
			reached++
		}
	}

	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]interface{}{
		"alerts":  result,
		"reached": reached,
	})
}
