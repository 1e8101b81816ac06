package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulator routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulator", func(r chi.Router) {
		r.Post("/step", h.HandleStep)
		r.Post("/collapse", h.HandleCollapse)
		r.Get("/domains", h.HandleListDomains)
		r.Get("/density-matrix", h.HandleGetDensityMatrix)
	})
}
