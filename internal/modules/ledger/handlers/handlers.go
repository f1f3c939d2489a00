// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"context"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holdfast/holdfast/internal/config"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/httpapi"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// LedgerService is the subset of ledger.Service the handlers need
type LedgerService interface {
	RecordTransaction(ctx context.Context, in ledger.RecordInput) (*ledger.RecordResult, error)
	DeleteTransaction(ctx context.Context, id int64) (*ledger.DeleteResult, error)
	ListTransactions(ctx context.Context, filter ledger.TransactionFilter) iter.Seq2[domain.Transaction, error]
	ListPositions(ctx context.Context, filter ledger.PositionFilter) ([]domain.Position, error)
	RemoveInstrument(ctx context.Context, symbol string) (*ledger.RemoveResult, error)
	SetTarget(ctx context.Context, symbol string, target *float64) (int64, error)
	Verify(ctx context.Context) ([]ledger.Discrepancy, error)
	Rebuild(ctx context.Context) (int, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	service LedgerService
	catalog *config.Catalog
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service LedgerService, catalog *config.Catalog, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		catalog: catalog,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// recordRequest is the body of POST /api/ledger/transactions
type recordRequest struct {
	ExecutedAt string  `json:"executed_at"` // RFC3339 or YYYY-MM-DD; empty means now
	Symbol     string  `json:"symbol"`
	Market     string  `json:"market"`
	Kind       string  `json:"kind"`
	Broker     string  `json:"broker"`
	Category   string  `json:"category"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
}

// transactionView adds the derived total to a transaction
type transactionView struct {
	domain.Transaction
	Total float64 `json:"total"`
}

// HandleRecordTransaction handles POST /api/ledger/transactions
func (h *Handler) HandleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	kind, err := domain.ParseOperationKind(req.Kind)
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	executedAt, err := parseDate(req.ExecutedAt)
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	result, err := h.service.RecordTransaction(r.Context(), ledger.RecordInput{
		ExecutedAt: executedAt,
		Symbol:     req.Symbol,
		Market:     req.Market,
		Kind:       kind,
		Broker:     req.Broker,
		Category:   req.Category,
		Quantity:   req.Quantity,
		Price:      req.Price,
	})
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	httpapi.WriteData(w, r, h.log, http.StatusCreated, result)
}

// HandleListTransactions handles GET /api/ledger/transactions
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := ledger.TransactionFilter{
		Symbol: r.URL.Query().Get("symbol"),
		Broker: r.URL.Query().Get("broker"),
	}

	views := make([]transactionView, 0)
	for tx, err := range h.service.ListTransactions(r.Context(), filter) {
		if err != nil {
			httpapi.WriteError(w, h.log, err)
			return
		}
		views = append(views, transactionView{Transaction: tx, Total: tx.Total()})
	}

	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]interface{}{
		"transactions": views,
		"count":        len(views),
	})
}

// HandleDeleteTransaction handles DELETE /api/ledger/transactions/{id}
func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpapi.WriteBadRequest(w, h.log, "transaction id must be a positive integer")
		return
	}

	result, err := h.service.DeleteTransaction(r.Context(), id)
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	httpapi.WriteData(w, r, h.log, http.StatusOK, result)
}

// HandleListPositions handles GET /api/ledger/positions
func (h *Handler) HandleListPositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	positions, err := h.service.ListPositions(r.Context(), ledger.PositionFilter{
		Symbol:   q.Get("symbol"),
		Broker:   q.Get("broker"),
		Category: q.Get("category"),
	})
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	})
}

// HandleRemoveInstrument handles DELETE /api/ledger/instruments/{symbol}
func (h *Handler) HandleRemoveInstrument(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RemoveInstrument(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, result)
}

// targetRequest is the body of PUT /api/ledger/instruments/{symbol}/target.
// A null or missing target_price clears the target.
type targetRequest struct {
	TargetPrice *float64 `json:"target_price"`
}

// HandleSetTarget handles PUT /api/ledger/instruments/{symbol}/target
func (h *Handler) HandleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	symbol := chi.URLParam(r, "symbol")
	updated, err := h.service.SetTarget(r.Context(), symbol, req.TargetPrice)
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}

	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]interface{}{
		"symbol":       domain.NormalizeSymbol(symbol),
		"target_price": req.TargetPrice,
		"updated":      updated,
	})
}

// HandleVerify handles GET /api/ledger/verify
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := h.service.Verify(r.Context())
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	if discrepancies == nil {
		discrepancies = []ledger.Discrepancy{}
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]interface{}{
		"consistent":    len(discrepancies) == 0,
		"discrepancies": discrepancies,
	})
}

// HandleRebuild handles POST /api/ledger/rebuild
func (h *Handler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Rebuild(r.Context())
	if err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]int{"rebuilt": n})
}

// HandleGetCatalog handles GET /api/ledger/catalog
func (h *Handler) HandleGetCatalog(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteData(w, r, h.log, http.StatusOK, h.catalog)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, domain.NewValidationError("parse_date", "executed_at must be RFC3339 or YYYY-MM-DD, got %q", s)
}
