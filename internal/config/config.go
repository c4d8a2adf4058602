package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultAllowedCIDRS keeps readyz, /api and /metrics on loopback and
// private networks unless RESTOCK_ALLOWED_CIDRS says otherwise.
const DefaultAllowedCIDRS = "127.0.0.0/8,::1/128,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,fc00::/7"

// DefaultCooldownMinutes applies when COOLDOWN_MIN is absent, unparsable or negative.
const DefaultCooldownMinutes = 60

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // also bounds the wait for in-flight runs

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Monitoring
	TargetsFile  string        // optional YAML target registry, empty = built-in targets
	Schedule     string        // cron spec for the timer trigger (ex: "@every 5m")
	RunOnStart   bool          // trigger one run as soon as the process is up
	ProbeTimeout time.Duration // per-target fetch bound
	Cooldown     time.Duration // re-notify window while a target stays in stock
	LockTargets  bool          // serialize overlapping runs per target id

	// Notifications (Server酱)
	ServerChanKey string // SCKEY, empty disables sending
	ServerChanURL string // push endpoint template, "%s" is replaced by the key

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedCIDRS        []string // readyz/metrics/api clients, defaults to DefaultAllowedCIDRS; an empty list would make them public
	AllowedHosts        []string // optional Host header allow-list for /api and /metrics, "*.example.com" supported; empty = any host
	TrustProxy          bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	TriggerBurst        int      // manual runs per client IP before 429, 0 (default) = unlimited
	TriggerRefillPerMin int      // manual runs regained per client IP per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("RESTOCK_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("RESTOCK_SHUTDOWN_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:  getenv("RESTOCK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("RESTOCK_PRETTY_LOG", true),

		// Monitoring
		TargetsFile:  getenv("RESTOCK_TARGETS_FILE", ""),
		Schedule:     getenv("RESTOCK_SCHEDULE", "@every 5m"),
		RunOnStart:   mustBool("RESTOCK_RUN_ON_START", true),
		ProbeTimeout: mustDuration("RESTOCK_PROBE_TIMEOUT", 10*time.Second),
		Cooldown:     cooldownMinutes("COOLDOWN_MIN"),
		LockTargets:  mustBool("RESTOCK_LOCK_TARGETS", false),

		// Notifications
		ServerChanKey: getenv("SCKEY", ""),
		ServerChanURL: endpointTemplate("RESTOCK_SERVERCHAN_URL", "https://sctapi.ftqq.com/%s.send"),

		// Redis settings
		RedisAddr:             requireEnv("RESTOCK_REDIS_ADDR"),
		RedisUser:             getenv("RESTOCK_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("RESTOCK_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("RESTOCK_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("RESTOCK_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS:        splitAndTrim(getenv("RESTOCK_ALLOWED_CIDRS", DefaultAllowedCIDRS)),
		AllowedHosts:        splitAndTrim(getenv("RESTOCK_ALLOWED_HOSTS", "")),
		TrustProxy:          mustBool("RESTOCK_TRUST_PROXY", false),
		TriggerBurst:        getenvInt("RESTOCK_TRIGGER_BURST", 0),
		TriggerRefillPerMin: getenvInt("RESTOCK_TRIGGER_REFILL_PER_MIN", 2),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: RESTOCK_REDIS_PASSWORD is required when RESTOCK_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.ServerChanKey != "" {
			cfgCopy.ServerChanKey = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// endpointTemplate reads a URL that gets the key substituted for its single
// "%s". Anything else panics at startup instead of at the first send.
func endpointTemplate(key, def string) string {
	v := getenv(key, def)
	if strings.Count(v, "%s") != 1 || strings.Count(v, "%") != strings.Count(v, "%%")*2+1 {
		panic(fmt.Sprintf("❌ FATAL: %s must contain exactly one %%s and no other verbs, got %q", key, v))
	}
	return v
}

// cooldownMinutes reads a whole number of minutes. Zero is a valid cooldown.
func cooldownMinutes(key string) time.Duration {
	m := getenvInt(key, DefaultCooldownMinutes)
	if m < 0 {
		m = DefaultCooldownMinutes
	}
	return time.Duration(m) * time.Minute
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
