package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/restock/internal/httpserver/deps"
	"github.com/MrSnakeDoc/restock/internal/logger"
)

var errRedisNotInitialized = errors.New("client not initialized")

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Redis string `json:"redis"`
}

// Readyz reports ready only while Redis answers a ping, since every run
// needs the state store.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		resp := readyzResponse{Ready: true, Redis: "ok"}
		if err := pingRedis(r.Context(), d); err != nil {
			d.Logger.Warn("readiness check failed", logger.Error(err))
			resp = readyzResponse{Ready: false, Redis: err.Error()}
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(resp)
	}
}

func pingRedis(ctx context.Context, d deps.Deps) error {
	if d.RedisClient == nil {
		return errRedisNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return d.RedisClient.Ping(ctx).Err()
}
