package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/MrSnakeDoc/restock/internal/logger"
	"github.com/MrSnakeDoc/restock/internal/monitor"
)

// DefaultSchedule runs every five minutes.
const DefaultSchedule = "@every 5m"

// Trigger starts a run without waiting for it.
type Trigger interface {
	Trigger(force bool, trigger string) bool
}

// Timer fires non-forced runs on a cron schedule.
type Timer struct {
	trigger    Trigger
	logger     logger.Logger
	spec       string
	runOnStart bool
	c          *cron.Cron
}

// NewTimer validates the schedule and builds a timer. Standard 5-field
// specs, optional seconds and descriptors such as "@every 5m" are accepted.
func NewTimer(spec string, runOnStart bool, trigger Trigger, log logger.Logger) (*Timer, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSchedule
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	t := &Timer{
		trigger:    trigger,
		logger:     log,
		spec:       spec,
		runOnStart: runOnStart,
		c:          cron.New(cron.WithParser(parser)),
	}

	if _, err := t.c.AddFunc(spec, t.fire); err != nil {
		return nil, fmt.Errorf("failed to register schedule: %w", err)
	}
	return t, nil
}

func (t *Timer) fire() {
	t.trigger.Trigger(false, monitor.TriggerTimer)
}

// Start begins firing. Cron stops when ctx is cancelled or Stop is called.
func (t *Timer) Start(ctx context.Context) {
	t.logger.Info("timer started",
		logger.String("schedule", t.spec),
		logger.Bool("run_on_start", t.runOnStart))

	if t.runOnStart {
		t.fire()
	}

	t.c.Start()

	go func() {
		<-ctx.Done()
		t.Stop()
	}()
}

// Stop halts the schedule. Runs already dispatched are not affected.
func (t *Timer) Stop() {
	<-t.c.Stop().Done()
}

// Spec returns the effective cron expression.
func (t *Timer) Spec() string {
	return t.spec
}
