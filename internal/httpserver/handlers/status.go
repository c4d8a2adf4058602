package handlers

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/restock/internal/httpserver/deps"
	"github.com/MrSnakeDoc/restock/internal/monitor"
)

const statusPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Stock monitor</title></head>
<body>
<h1>Stock monitor running</h1>
<p>Checks run on a schedule. Open <a href="/?force=1">/?force=1</a> to run a check now and notify for everything in stock.</p>
</body>
</html>
`

// Status serves the status page and schedules a background run on every
// hit. The response never waits for the run.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		force := r.URL.Query().Get("force") == "1"

		accepted := d.Trigger.Trigger(force, monitor.TriggerManual)
		if d.Metrics != nil {
			d.Metrics.Triggers.WithLabelValues(strconv.FormatBool(force), strconv.FormatBool(accepted)).Inc()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if !accepted {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(statusPage))
	}
}
