// Package handlers provides HTTP handlers for the bibliography.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/httpapi"
	"github.com/rs/zerolog"
)

// BibliographyService is what the handlers need from bibliography.Service
type BibliographyService interface {
	Add(ctx context.Context, item domain.BibliographyItem) (domain.BibliographyItem, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (domain.BibliographyItem, error)
	List(ctx context.Context, category string) ([]domain.BibliographyItem, error)
}

// Handler handles bibliography HTTP requests
type Handler struct {
	service BibliographyService
	log     zerolog.Logger
}

// NewHandler creates a new bibliography handler
func NewHandler(service BibliographyService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "bibliography").Logger(),
	}
}

// RegisterRoutes registers bibliography routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bibliography", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleAdd)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
	})
}

type addRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Year        *int   `json:"year"`
	Category    string `json:"category"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// HandleList handles GET /api/bibliography
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// HandleAdd handles POST /api/bibliography
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	item, err := h.service.Add(r.Context(), domain.BibliographyItem{
		Title:       req.Title,
		Author:      req.Author,
		Year:        req.Year,
		Category:    req.Category,
		Link:        req.Link,
		Description: req.Description,
	})
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusCreated, item)
}

// HandleGet handles GET /api/bibliography/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, item)
}

// HandleDelete handles DELETE /api/bibliography/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpapi.WriteBadRequest(w, h.log, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
