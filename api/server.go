/*
server.go - HTTP router for the compliance engine

PURPOSE:
  Assembles the chi router: standard middleware (request IDs, logging,
  panic recovery, CORS for the intranet frontend) plus the route table
  for all engine consumers and officer mutations.

USAGE:
  handler := api.NewHandler(evaluator, coordinator, store)
  router := api.NewRouter(handler)
  http.ListenAndServe(":8080", router)
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the HTTP router with middleware and all routes.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/orgs/{org}", func(r chi.Router) {
		// Engine consumers. All of these resolve through the shared
		// evaluator, so the numbers agree across views.
		r.Get("/compliance-matrix", h.ComplianceMatrix)
		r.Get("/competency-matrix", h.CompetencyMatrix)
		r.Get("/reports/training", h.TrainingReport)

		r.Route("/members/{user}", func(r chi.Router) {
			r.Get("/dashboard", h.Dashboard)
			r.Get("/programs/{req}/progress", h.ProgramProgress)
			r.Get("/attendance", h.Attendance)
			r.Get("/election-eligibility", h.ElectionEligibility)
		})

		// Officer mutations.
		r.Route("/leaves", func(r chi.Router) {
			r.Get("/", h.ListLeaves)
			r.Post("/", h.CreateLeave)
			r.Put("/{id}/dates", h.UpdateLeaveDates)
			r.Put("/{id}/exempt", h.SetExempt)
			r.Delete("/{id}", h.DeactivateLeave)
		})

		r.Route("/waivers", func(r chi.Router) {
			r.Get("/", h.ListWaivers)
			r.Post("/", h.CreateWaiver)
		})
	})

	return r
}
