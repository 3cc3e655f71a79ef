// internal/app/features/reports/routes.go
package reports

import (
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the scoped report counts (typically at "/api/reports").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/summary", h.ServeReportSummary)
	})
	return r
}

// SummaryRoutes mounts the member dashboard (typically at "/api/summary").
func SummaryRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/unit-member", h.ServeUnitMember)
	})
	return r
}
