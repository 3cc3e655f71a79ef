// internal/app/features/login/routes.go
package login

import (
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the auth endpoints (typically at "/api/auth").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/start", h.HandleStart)
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Post("/switch-role", h.HandleSwitchRole)
	})
	return r
}
