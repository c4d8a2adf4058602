package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/restock/internal/httpserver/deps"
	"github.com/MrSnakeDoc/restock/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/restock/internal/httpserver/mw"
)

func init() { Register(registerStatus) }

// registerStatus serves the status page on / and on every unmatched GET.
// Each hit schedules a run unless the optional per-IP trigger limit is on
// and exhausted.
func registerStatus(r chi.Router, d deps.Deps) {
	limit := mw.TriggerLimit(mw.TriggerLimitConfig{
		Burst:        d.TriggerBurst,
		RefillPerMin: d.TriggerRefillPerMin,
		MaxClients:   10000,
		IdleTTL:      15 * time.Minute,
		TrustProxy:   d.TrustProxy,
		Logger:       d.Logger,
	})
	status := limit(handlers.Status(d))

	r.Get("/", status.ServeHTTP)
	// browsers fetch this alongside the page; it must not start a second run
	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			http.NotFound(w, req)
			return
		}
		status.ServeHTTP(w, req)
	})
}
