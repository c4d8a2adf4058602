package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/restock/internal/httpserver/deps"
)

type buildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go,omitempty"`
}

type healthzResponse struct {
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Targets       int       `json:"targets"`
	Schedule      string    `json:"schedule,omitempty"`
	Notifications bool      `json:"notifications_enabled"`
	Build         buildInfo `json:"build"`
}

// Healthz is liveness only: it never touches Redis or the targets, so a
// slow dependency cannot get the process restarted.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{
		Version:   d.Version,
		Commit:    d.Commit,
		Date:      d.BuildDate,
		GoVersion: d.GoVersion,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(healthzResponse{
			Status:        "ok",
			StartedAt:     d.StartTime.UTC(),
			UptimeSeconds: int64(time.Since(d.StartTime) / time.Second),
			Targets:       len(d.Targets),
			Schedule:      d.Schedule,
			Notifications: d.NotificationsEnabled,
			Build:         build,
		})
	}
}
