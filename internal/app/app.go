package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/restock/internal/config"
	"github.com/MrSnakeDoc/restock/internal/httpserver"
	"github.com/MrSnakeDoc/restock/internal/httpserver/deps"
	"github.com/MrSnakeDoc/restock/internal/logger"
	"github.com/MrSnakeDoc/restock/internal/metrics"
	"github.com/MrSnakeDoc/restock/internal/monitor"
	"github.com/MrSnakeDoc/restock/internal/notify"
	"github.com/MrSnakeDoc/restock/internal/probe"
	"github.com/MrSnakeDoc/restock/internal/redis"
	"github.com/MrSnakeDoc/restock/internal/scheduler"
	"github.com/MrSnakeDoc/restock/internal/sources/targets"
	redisstore "github.com/MrSnakeDoc/restock/internal/store/redis"
	"github.com/MrSnakeDoc/restock/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	dispatcher  *scheduler.Dispatcher
	timer       *scheduler.Timer
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Targets are loaded once and never reloaded
	registry, err := targets.NewLoader(cfg.TargetsFile).Load()
	if err != nil {
		loggerClient.Errorf("Failed to load targets: %v", err)
		os.Exit(1)
	}
	source := "built-in"
	if cfg.TargetsFile != "" {
		source = cfg.TargetsFile
	}
	loggerClient.Info("targets loaded",
		logger.Int("count", len(registry)),
		logger.String("source", source))

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStateStore(redisClient, loggerClient)

	notifier := notify.NewServerChan(cfg.ServerChanKey, cfg.ServerChanURL, loggerClient)
	if !notifier.Enabled() {
		loggerClient.Warn("SCKEY not set, notifications will not be delivered")
	}

	m := metrics.New()

	orchestrator := monitor.New(
		monitor.Config{
			Targets:     registry,
			Cooldown:    cfg.Cooldown,
			LockTargets: cfg.LockTargets,
		},
		probe.New(cfg.ProbeTimeout),
		store,
		notifier,
		m,
		loggerClient,
	)

	dispatcher := scheduler.NewDispatcher(orchestrator, loggerClient)

	timer, err := scheduler.NewTimer(cfg.Schedule, cfg.RunOnStart, dispatcher, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to configure schedule: %v", err)
		os.Exit(1)
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:               loggerClient,
		StartTime:            time.Now(),
		Version:              version.Version,
		Commit:               version.Commit,
		BuildDate:            version.BuildDate,
		GoVersion:            version.GoVersion,
		AllowedHosts:         cfg.AllowedHosts,
		AllowedCIDRS:         cfg.AllowedCIDRS,
		TrustProxy:           cfg.TrustProxy,
		RedisClient:          redisClient,
		Trigger:              dispatcher,
		Targets:              orchestrator.Targets(),
		States:               store,
		Metrics:              m,
		Schedule:             timer.Spec(),
		NotificationsEnabled: notifier.Enabled(),
		TriggerBurst:         cfg.TriggerBurst,
		TriggerRefillPerMin:  cfg.TriggerRefillPerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		dispatcher:  dispatcher,
		timer:       timer,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Restock v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())
	a.logger.Info("monitor configured",
		logger.Duration("cooldown", a.cfg.Cooldown),
		logger.Duration("probe_timeout", a.cfg.ProbeTimeout),
		logger.Bool("lock_targets", a.cfg.LockTargets))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	a.timer.Start(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.timer.Stop()
		return err
	}

	a.timer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Runs are detached from requests: wait for them before closing Redis
	if err := a.dispatcher.Close(shutdownCtx); err != nil {
		a.logger.Warn("in-flight runs did not finish before the shutdown timeout",
			logger.Error(err))
	} else {
		a.logger.Info("✅ In-flight runs finished")
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Restock stopped cleanly")
	return nil
}
