package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/restock/internal/domain"
	"github.com/MrSnakeDoc/restock/internal/logger"
	"github.com/MrSnakeDoc/restock/internal/metrics"
	"github.com/MrSnakeDoc/restock/internal/notify"
)

// Triggers
const (
	TriggerTimer  = "timer"
	TriggerManual = "manual"
)

// Prober classifies a target page.
type Prober interface {
	Probe(ctx context.Context, target domain.Target) (bool, error)
}

// StateStore reads and writes per-target state.
type StateStore interface {
	Load(ctx context.Context, targetID string) (domain.State, error)
	Save(ctx context.Context, targetID string, state domain.State) error
}

// Config is the immutable part of a run.
type Config struct {
	Targets  []domain.Target
	Cooldown time.Duration

	// LockTargets serializes overlapping runs on the same target id.
	// Without it, a slower run can overwrite a newer record.
	LockTargets bool
}

// RunOptions are per-invocation settings.
type RunOptions struct {
	Force   bool
	Trigger string
}

// Orchestrator checks every target concurrently and sends at most one
// restock digest and one error digest per run.
type Orchestrator struct {
	cfg      Config
	prober   Prober
	store    StateStore
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   logger.Logger
	locks    *targetLocks
	now      func() time.Time
}

// New creates an orchestrator. The target slice is copied.
func New(
	cfg Config,
	prober Prober,
	store StateStore,
	notifier notify.Notifier,
	m *metrics.Metrics,
	log logger.Logger,
) *Orchestrator {
	cfg.Targets = append([]domain.Target(nil), cfg.Targets...)

	o := &Orchestrator{
		cfg:      cfg,
		prober:   prober,
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   log,
		now:      time.Now,
	}
	if cfg.LockTargets {
		o.locks = newTargetLocks()
	}
	return o
}

// Targets returns a copy of the monitored targets.
func (o *Orchestrator) Targets() []domain.Target {
	return append([]domain.Target(nil), o.cfg.Targets...)
}

// Run probes all targets, persists their new state, and sends the digests.
// It returns once every target has finished and the digests were attempted.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) RunOutcome {
	if opts.Trigger == "" {
		opts.Trigger = TriggerTimer
	}
	start := time.Now()
	now := o.now()

	o.metrics.Runs.WithLabelValues(opts.Trigger).Inc()
	o.logger.Info("monitoring run started",
		logger.String("trigger", opts.Trigger),
		logger.Bool("force", opts.Force),
		logger.Int("targets", len(o.cfg.Targets)))

	results := make([]checkResult, len(o.cfg.Targets))
	var wg sync.WaitGroup
	for i, target := range o.cfg.Targets {
		i, target := i, target
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.checkIsolated(ctx, target, opts.Force, now)
		}()
	}
	wg.Wait()

	outcome := collect(o.cfg.Targets, results)
	o.dispatch(ctx, outcome)

	elapsed := time.Since(start)
	o.metrics.RunDuration.Observe(elapsed.Seconds())
	o.metrics.LastRun.SetToCurrentTime()
	o.logger.Info("monitoring run finished",
		logger.String("trigger", opts.Trigger),
		logger.Int("notified", len(outcome.Notifications)),
		logger.Int("errors", len(outcome.Errors)),
		logger.Duration("elapsed", elapsed))

	return outcome
}

type checkResult struct {
	notify bool
	err    error
}

// checkIsolated keeps a panic in one target from taking down the run.
func (o *Orchestrator) checkIsolated(ctx context.Context, target domain.Target, force bool, now time.Time) (res checkResult) {
	defer func() {
		if r := recover(); r != nil {
			res = checkResult{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return o.check(ctx, target, force, now)
}

// check runs probe, load, decide and save for one target. State is only
// written after a successful probe and a successful load.
func (o *Orchestrator) check(ctx context.Context, target domain.Target, force bool, now time.Time) checkResult {
	if o.locks != nil {
		unlock := o.locks.lock(target.ID)
		defer unlock()
	}

	log := o.logger.With(logger.String("target", target.ID))
	log.Debug("checking target", logger.String("url", target.URL))

	inStock, err := o.prober.Probe(ctx, target)
	if err != nil {
		o.metrics.Probes.WithLabelValues(target.ID, metrics.ProbeError).Inc()
		log.Error("probe failed", logger.Error(err))
		return checkResult{err: err}
	}
	o.recordProbe(target.ID, inStock)

	prev, err := o.store.Load(ctx, target.ID)
	if err != nil {
		log.Error("failed to load state", logger.Error(err))
		return checkResult{err: err}
	}

	d := domain.Decide(prev, domain.ProbeResult{TargetID: target.ID, InStock: inStock}, force, o.cfg.Cooldown, now)

	if err := o.store.Save(ctx, target.ID, d.Next); err != nil {
		log.Error("failed to save state", logger.Error(err))
		return checkResult{err: err}
	}

	if d.Notify {
		log.Info("notification queued")
	} else {
		log.Debug("no notification",
			logger.Bool("in_stock", inStock),
			logger.String("prev_status", string(prev.Status)))
	}
	return checkResult{notify: d.Notify}
}

func (o *Orchestrator) recordProbe(targetID string, inStock bool) {
	if inStock {
		o.metrics.Probes.WithLabelValues(targetID, metrics.ProbeInStock).Inc()
		o.metrics.TargetStatus.WithLabelValues(targetID).Set(1)
		return
	}
	o.metrics.Probes.WithLabelValues(targetID, metrics.ProbeOutOfStock).Inc()
	o.metrics.TargetStatus.WithLabelValues(targetID).Set(0)
}

// dispatch sends the digests. Failures are logged only.
func (o *Orchestrator) dispatch(ctx context.Context, outcome RunOutcome) {
	if len(outcome.Notifications) > 0 {
		o.send(ctx, "restock", RestockTitle, RestockDigest(outcome.Notifications))
	} else {
		o.logger.Info("no newly restocked targets this run")
	}

	if len(outcome.Errors) > 0 {
		o.send(ctx, "errors", ErrorTitle, ErrorDigest(outcome.Errors))
	}
}

func (o *Orchestrator) send(ctx context.Context, kind, title, body string) {
	err := o.notifier.Send(ctx, title, body)
	switch {
	case err == nil:
		o.metrics.Notifications.WithLabelValues(kind, "sent").Inc()
	case errors.Is(err, notify.ErrNotConfigured):
		o.metrics.Notifications.WithLabelValues(kind, "disabled").Inc()
		o.logger.Error("notification not sent, SCKEY not configured", logger.String("kind", kind))
	default:
		o.metrics.Notifications.WithLabelValues(kind, "failed").Inc()
		o.logger.Error("failed to send notification",
			logger.String("kind", kind),
			logger.Error(err))
	}
}
