package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/restock/internal/httpserver/deps"
	"github.com/MrSnakeDoc/restock/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/restock/internal/httpserver/mw"
)

func init() { Register(registerTargets) }

func registerTargets(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger)).Get("/api/targets", handlers.Targets(d))
}
