package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/restock/internal/domain"
	"github.com/MrSnakeDoc/restock/internal/logger"
	"github.com/MrSnakeDoc/restock/internal/metrics"
)

// Trigger starts a background monitoring run.
type Trigger interface {
	Trigger(force bool, trigger string) bool
}

// StateReader exposes persisted target state.
type StateReader interface {
	Load(ctx context.Context, targetID string) (domain.State, error)
}

type Deps struct {
	Logger               logger.Logger
	StartTime            time.Time
	Version              string
	Commit               string
	BuildDate            string
	GoVersion            string
	AllowedHosts         []string        // Host headers allowed on /api and /metrics
	AllowedCIDRS         []string        // IPs allowed to access readyz, api and metrics
	TrustProxy           bool            // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RedisClient          *redis.Client   // Redis client connection, pinged by readyz
	Trigger              Trigger         // manual run dispatcher
	Targets              []domain.Target // registry, read-only
	States               StateReader     // persisted state per target
	Metrics              *metrics.Metrics
	Schedule             string // effective cron expression, reported by healthz
	NotificationsEnabled bool   // false when SCKEY is unset
	TriggerBurst         int    // manual runs per client before 429, 0 = unlimited
	TriggerRefillPerMin  int    // manual runs regained per client per minute
}
