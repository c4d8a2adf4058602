package mw

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/restock/internal/logger"
	"github.com/MrSnakeDoc/restock/internal/utils"
)

// TriggerLimitConfig bounds how often one client may start manual runs.
// Burst <= 0 disables the limit.
type TriggerLimitConfig struct {
	Burst        int           // runs a client can start back to back
	RefillPerMin int           // runs regained per minute
	MaxClients   int           // bucket count that forces an early sweep, 0 = unbounded
	IdleTTL      time.Duration // buckets unused this long are dropped
	TrustProxy   bool          // resolve the client from proxy headers
	Logger       logger.Logger
	Now          func() time.Time // defaults to time.Now
}

type triggerBucket struct {
	tokens   float64
	refilled time.Time
}

// triggerLimiter is a token bucket per client IP under a single mutex.
// Manual triggers are rare, so contention is not a concern.
type triggerLimiter struct {
	cfg       TriggerLimitConfig
	perSecond float64
	mu        sync.Mutex
	buckets   map[string]*triggerBucket
	nextSweep time.Time
}

func newTriggerLimiter(cfg TriggerLimitConfig) *triggerLimiter {
	if cfg.RefillPerMin < 1 {
		cfg.RefillPerMin = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &triggerLimiter{
		cfg:       cfg,
		perSecond: float64(cfg.RefillPerMin) / 60,
		buckets:   make(map[string]*triggerBucket),
		nextSweep: cfg.Now().Add(cfg.IdleTTL),
	}
}

// take spends one token for client. When none is left it returns the wait
// until the next one.
func (l *triggerLimiter) take(client string) (remaining int, wait time.Duration) {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) || (l.cfg.MaxClients > 0 && len(l.buckets) >= l.cfg.MaxClients) {
		l.sweep(now)
	}

	b, ok := l.buckets[client]
	if !ok {
		b = &triggerBucket{tokens: float64(l.cfg.Burst), refilled: now}
		l.buckets[client] = b
	}

	if elapsed := now.Sub(b.refilled).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(l.cfg.Burst), b.tokens+elapsed*l.perSecond)
		b.refilled = now
	}

	if b.tokens < 1 {
		secs := math.Ceil((1 - b.tokens) / l.perSecond)
		return 0, time.Duration(math.Max(secs, 1)) * time.Second
	}
	b.tokens--
	return int(b.tokens), 0
}

// sweep drops buckets untouched for IdleTTL.
func (l *triggerLimiter) sweep(now time.Time) {
	for client, b := range l.buckets {
		if now.Sub(b.refilled) > l.cfg.IdleTTL {
			delete(l.buckets, client)
		}
	}
	l.nextSweep = now.Add(l.cfg.IdleTTL)
}

// TriggerLimit answers 429 with Retry-After once a client has used up its
// manual runs. The wrapped handler is not called, so no run is scheduled.
func TriggerLimit(cfg TriggerLimitConfig) func(http.Handler) http.Handler {
	if cfg.Burst <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	l := newTriggerLimiter(cfg)
	burst := strconv.Itoa(cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := utils.ClientIP(r, l.cfg.TrustProxy)

			remaining, wait := l.take(client)
			w.Header().Set("X-Trigger-Limit", burst)
			w.Header().Set("X-Trigger-Remaining", strconv.Itoa(remaining))

			if wait > 0 {
				retry := int(wait / time.Second)
				l.cfg.Logger.Warn("manual run refused, client over its trigger budget",
					logger.String("client_ip", client),
					logger.String("path", r.URL.Path),
					logger.Int("retry_after_s", retry))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, fmt.Sprintf("too many manual runs, retry in %ds", retry), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
