package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/restock/internal/httpserver/deps"
	"github.com/MrSnakeDoc/restock/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/restock/internal/httpserver/mw"
)

func init() { Register(registerHealth) }

// registerHealth mounts liveness for everyone and readiness for the
// allow-listed clients only, since it reveals whether Redis is reachable.
func registerHealth(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	r.Group(func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		r.Get("/readyz", handlers.Readyz(d))
	})
}
