package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/restock/internal/domain"
	"github.com/MrSnakeDoc/restock/internal/httpserver/deps"
	"github.com/MrSnakeDoc/restock/internal/logger"
)

type targetView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Status       string     `json:"status"`
	LastChecked  *time.Time `json:"last_checked,omitempty"`
	LastNotified *time.Time `json:"last_notified,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type targetsResponse struct {
	Count   int          `json:"count"`
	Targets []targetView `json:"targets"`
}

// Targets lists the registry in order together with each target's
// persisted state. A target whose state cannot be read is still listed.
func Targets(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views := make([]targetView, 0, len(d.Targets))
		for _, t := range d.Targets {
			v := targetView{
				ID:     t.ID,
				Name:   t.DisplayName(),
				URL:    t.URL,
				Status: string(domain.StatusUnknown),
			}

			st, err := d.States.Load(r.Context(), t.ID)
			if err != nil {
				d.Logger.Warn("failed to load target state",
					logger.String("target", t.ID),
					logger.Error(err))
				v.Error = err.Error()
				views = append(views, v)
				continue
			}

			v.Status = string(st.Status)
			v.LastChecked = optionalTime(st.LastCheckedAt)
			v.LastNotified = optionalTime(st.LastNotifiedAt)
			views = append(views, v)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(targetsResponse{
			Count:   len(views),
			Targets: views,
		})
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
