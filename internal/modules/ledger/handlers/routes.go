package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/catalog", h.HandleGetCatalog)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.HandleListTransactions)
			r.Post("/", h.HandleRecordTransaction)
			r.Delete("/{id}", h.HandleDeleteTransaction)
		})

		r.Get("/positions", h.HandleListPositions)

		r.Route("/instruments/{symbol}", func(r chi.Router) {
			r.Delete("/", h.HandleRemoveInstrument)
			r.Put("/target", h.HandleSetTarget)
		})

		r.Get("/verify", h.HandleVerify)
		r.Post("/rebuild", h.HandleRebuild)
	})
}
