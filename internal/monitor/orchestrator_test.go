package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MrSnakeDoc/restock/internal/domain"
	"github.com/MrSnakeDoc/restock/internal/logger"
	"github.com/MrSnakeDoc/restock/internal/metrics"
	"github.com/MrSnakeDoc/restock/internal/notify"
	"github.com/MrSnakeDoc/restock/internal/probe"
)

var runNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// ─────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────

type probeFunc func(ctx context.Context, target domain.Target) (bool, error)

func (f probeFunc) Probe(ctx context.Context, target domain.Target) (bool, error) {
	return f(ctx, target)
}

// stockByID answers from a fixed map; missing ids are out of stock.
func stockByID(stock map[string]bool) probeFunc {
	return func(_ context.Context, t domain.Target) (bool, error) {
		return stock[t.ID], nil
	}
}

type memStore struct {
	mu       sync.Mutex
	states   map[string]domain.State
	saves    int
	failLoad map[string]bool
	failSave map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		states:   make(map[string]domain.State),
		failLoad: make(map[string]bool),
		failSave: make(map[string]bool),
	}
}

func (s *memStore) Load(_ context.Context, id string) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoad[id] {
		return domain.State{}, errors.New("failed to get state: connection refused")
	}
	st, ok := s.states[id]
	if !ok {
		return domain.InitialState(), nil
	}
	return st, nil
}

func (s *memStore) Save(_ context.Context, id string, st domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave[id] {
		return errors.New("failed to save state: connection refused")
	}
	s.states[id] = st
	s.saves++
	return nil
}

func (s *memStore) get(id string) (domain.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok
}

type sentMessage struct {
	title string
	body  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{title: title, body: body})
	return n.err
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

func newTestOrchestrator(cfg Config, p Prober, s StateStore, n notify.Notifier) (*Orchestrator, *metrics.Metrics) {
	m := metrics.New()
	o := New(cfg, p, s, n, m, logger.Nop())
	o.now = func() time.Time { return runNow }
	return o, m
}

func testTargets(ids ...string) []domain.Target {
	targets := make([]domain.Target, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, domain.Target{
			ID:             id,
			Name:           "Name " + id,
			URL:            "https://shop.example/" + id,
			OutOfStockText: "out of stock",
			Description:    id + " is back.",
		})
	}
	return targets
}

// ─────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────

// Three targets checked at once: one times out, one is newly in stock, one
// is in stock but still inside its cooldown.
func TestRunDigestsWithTimeoutAndCooldown(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		_, _ = w.Write([]byte("<html>Add to cart</html>"))
	}))
	defer ts.Close()
	defer close(release)

	targets := []domain.Target{
		{ID: "slow", Name: "Slow Shop", URL: ts.URL + "/slow", OutOfStockText: "out of stock", Description: "Slow is back."},
		{ID: "fresh", Name: "Fresh Shop", URL: ts.URL + "/fresh", OutOfStockText: "out of stock", Description: "Fresh is back."},
		{ID: "steady", Name: "Steady Shop", URL: ts.URL + "/steady", OutOfStockText: "out of stock", Description: "Steady is back."},
	}

	store := newMemStore()
	notified := runNow.Add(-30 * time.Minute)
	store.states["steady"] = domain.State{Status: domain.StatusIn, LastCheckedAt: notified, LastNotifiedAt: notified}

	n := &recordingNotifier{}
	o, m := newTestOrchestrator(Config{Targets: targets, Cooldown: 60 * time.Minute}, probe.New(100*time.Millisecond), store, n)

	outcome := o.Run(context.Background(), RunOptions{Trigger: TriggerTimer})

	if len(outcome.Notifications) != 1 || outcome.Notifications[0].Target.ID != "fresh" {
		t.Fatalf("Notifications = %+v, want only fresh", outcome.Notifications)
	}
	if len(outcome.Errors) != 1 || outcome.Errors[0].TargetName != "Slow Shop" {
		t.Fatalf("Errors = %+v, want only Slow Shop", outcome.Errors)
	}
	var netErr *probe.NetworkError
	if !errors.As(outcome.Errors[0].Err, &netErr) {
		t.Errorf("timeout error = %v, want *probe.NetworkError", outcome.Errors[0].Err)
	}

	sent := n.messages()
	if len(sent) != 2 {
		t.Fatalf("sent %d notifications, want 2", len(sent))
	}

	restock, errDigest := sent[0], sent[1]
	if restock.title != RestockTitle {
		t.Errorf("first title = %q, want %q", restock.title, RestockTitle)
	}
	if !strings.Contains(restock.body, "Fresh is back.") || !strings.Contains(restock.body, ts.URL+"/fresh") {
		t.Errorf("restock digest missing fresh target: %q", restock.body)
	}
	if strings.Contains(restock.body, "Steady") || strings.Contains(restock.body, "Slow") {
		t.Errorf("restock digest contains non-triggering targets: %q", restock.body)
	}

	if errDigest.title != ErrorTitle {
		t.Errorf("second title = %q, want %q", errDigest.title, ErrorTitle)
	}
	if !strings.Contains(errDigest.body, "- Slow Shop: ") {
		t.Errorf("error digest missing slow target: %q", errDigest.body)
	}
	if strings.Contains(errDigest.body, "Fresh") || strings.Contains(errDigest.body, "Steady") {
		t.Errorf("error digest contains healthy targets: %q", errDigest.body)
	}

	if _, ok := store.get("slow"); ok {
		t.Error("failed probe must not write state")
	}
	steady, _ := store.get("steady")
	if !steady.LastNotifiedAt.Equal(notified) || !steady.LastCheckedAt.Equal(runNow) {
		t.Errorf("steady state = %+v, want lastNotified unchanged and lastChecked advanced", steady)
	}

	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("restock", "sent")); got != 1 {
		t.Errorf("restock sent metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("errors", "sent")); got != 1 {
		t.Errorf("errors sent metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Probes.WithLabelValues("slow", metrics.ProbeError)); got != 1 {
		t.Errorf("probe error metric = %v, want 1", got)
	}
}

func TestRunFirstSeenInStock(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}
	o, _ := newTestOrchestrator(Config{Targets: testTargets("a"), Cooldown: time.Hour}, stockByID(map[string]bool{"a": true}), store, n)

	outcome := o.Run(context.Background(), RunOptions{})

	if len(outcome.Notifications) != 1 {
		t.Fatalf("Notifications = %d, want 1", len(outcome.Notifications))
	}
	st, ok := store.get("a")
	if !ok || st.Status != domain.StatusIn || !st.LastNotifiedAt.Equal(runNow) {
		t.Errorf("stored state = %+v, want in/notified now", st)
	}
	if len(n.messages()) != 1 {
		t.Errorf("sent %d notifications, want 1", len(n.messages()))
	}
}

func TestRunNothingToReport(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}
	o, _ := newTestOrchestrator(Config{Targets: testTargets("a", "b"), Cooldown: time.Hour}, stockByID(nil), store, n)

	outcome := o.Run(context.Background(), RunOptions{})

	if len(outcome.Notifications) != 0 || len(outcome.Errors) != 0 {
		t.Errorf("outcome = %+v, want empty", outcome)
	}
	if len(n.messages()) != 0 {
		t.Errorf("sent %d notifications, want 0", len(n.messages()))
	}
	if store.saves != 2 {
		t.Errorf("saves = %d, want 2 (state persisted even without notification)", store.saves)
	}
	for _, id := range []string{"a", "b"} {
		if st, _ := store.get(id); st.Status != domain.StatusOut {
			t.Errorf("%s status = %s, want out", id, st.Status)
		}
	}
}

func TestRunCooldownAcrossRuns(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}
	o, _ := newTestOrchestrator(Config{Targets: testTargets("a"), Cooldown: time.Hour}, stockByID(map[string]bool{"a": true}), store, n)
	ctx := context.Background()

	o.Run(ctx, RunOptions{})

	o.now = func() time.Time { return runNow.Add(30 * time.Minute) }
	if outcome := o.Run(ctx, RunOptions{}); len(outcome.Notifications) != 0 {
		t.Error("second run inside cooldown should not notify")
	}

	o.now = func() time.Time { return runNow.Add(61 * time.Minute) }
	if outcome := o.Run(ctx, RunOptions{}); len(outcome.Notifications) != 1 {
		t.Error("run after cooldown should notify again")
	}

	if got := len(n.messages()); got != 2 {
		t.Errorf("sent %d notifications over three runs, want 2", got)
	}
}

func TestRunForce(t *testing.T) {
	store := newMemStore()
	store.states["in"] = domain.State{Status: domain.StatusIn, LastNotifiedAt: runNow.Add(-time.Minute)}
	store.states["out"] = domain.State{Status: domain.StatusOut}
	n := &recordingNotifier{}
	o, _ := newTestOrchestrator(Config{Targets: testTargets("in", "out"), Cooldown: 24 * time.Hour}, stockByID(map[string]bool{"in": true}), store, n)

	outcome := o.Run(context.Background(), RunOptions{Force: true, Trigger: TriggerManual})

	if len(outcome.Notifications) != 1 || outcome.Notifications[0].Target.ID != "in" {
		t.Fatalf("Notifications = %+v, want only the in-stock target", outcome.Notifications)
	}
}

func TestRunStoreFailures(t *testing.T) {
	store := newMemStore()
	store.failLoad["read"] = true
	store.failSave["write"] = true
	n := &recordingNotifier{}
	stock := map[string]bool{"read": true, "write": true, "ok": true}
	o, _ := newTestOrchestrator(Config{Targets: testTargets("read", "write", "ok"), Cooldown: time.Hour}, stockByID(stock), store, n)

	outcome := o.Run(context.Background(), RunOptions{})

	if len(outcome.Notifications) != 1 || outcome.Notifications[0].Target.ID != "ok" {
		t.Fatalf("Notifications = %+v, want only ok", outcome.Notifications)
	}
	if len(outcome.Errors) != 2 {
		t.Fatalf("Errors = %+v, want 2", outcome.Errors)
	}
	// Registry order, not completion order.
	if outcome.Errors[0].TargetName != "Name read" || outcome.Errors[1].TargetName != "Name write" {
		t.Errorf("Errors order = %+v", outcome.Errors)
	}
	if _, ok := store.get("read"); ok {
		t.Error("target with failed load must not be written")
	}
	if len(n.messages()) != 2 {
		t.Errorf("sent %d notifications, want 2", len(n.messages()))
	}
}

func TestRunNotifierFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{err: notify.ErrNotConfigured}
	o, m := newTestOrchestrator(Config{Targets: testTargets("a"), Cooldown: time.Hour}, stockByID(map[string]bool{"a": true}), store, n)

	outcome := o.Run(context.Background(), RunOptions{})

	if len(outcome.Notifications) != 1 {
		t.Fatalf("Notifications = %d, want 1", len(outcome.Notifications))
	}
	if st, _ := store.get("a"); !st.LastNotifiedAt.Equal(runNow) {
		t.Errorf("state should still record the notification decision, got %+v", st)
	}
	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("restock", "disabled")); got != 1 {
		t.Errorf("disabled metric = %v, want 1", got)
	}
}

func TestRunPanicIsIsolated(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}
	p := probeFunc(func(_ context.Context, target domain.Target) (bool, error) {
		if target.ID == "boom" {
			panic("unexpected page")
		}
		return true, nil
	})
	o, _ := newTestOrchestrator(Config{Targets: testTargets("boom", "fine"), Cooldown: time.Hour}, p, store, n)

	outcome := o.Run(context.Background(), RunOptions{})

	if len(outcome.Errors) != 1 || !strings.Contains(outcome.Errors[0].Err.Error(), "panic") {
		t.Errorf("Errors = %+v, want one panic error", outcome.Errors)
	}
	if len(outcome.Notifications) != 1 {
		t.Errorf("Notifications = %d, want 1", len(outcome.Notifications))
	}
}

func TestRunChecksTargetsConcurrently(t *testing.T) {
	const targets = 5
	var inFlight, peak int32
	gate := make(chan struct{})
	p := probeFunc(func(_ context.Context, _ domain.Target) (bool, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		if cur == targets {
			close(gate)
		}
		select {
		case <-gate:
		case <-time.After(2 * time.Second):
		}
		atomic.AddInt32(&inFlight, -1)
		return false, nil
	})

	o, _ := newTestOrchestrator(Config{Targets: testTargets("a", "b", "c", "d", "e"), Cooldown: time.Hour}, p, newMemStore(), &recordingNotifier{})
	o.Run(context.Background(), RunOptions{})

	if got := atomic.LoadInt32(&peak); got != targets {
		t.Errorf("peak concurrent probes = %d, want %d", got, targets)
	}
}

func TestRunWithTargetLocks(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}
	o, _ := newTestOrchestrator(Config{Targets: testTargets("a"), Cooldown: time.Hour, LockTargets: true}, stockByID(map[string]bool{"a": true}), store, n)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Run(context.Background(), RunOptions{})
		}()
	}
	wg.Wait()

	// Serialized runs share one now: only the first sees "unknown".
	if got := len(n.messages()); got != 1 {
		t.Errorf("sent %d notifications across overlapping locked runs, want 1", got)
	}
	if o.locks.size() != 0 {
		t.Errorf("lock table not cleaned up, size = %d", o.locks.size())
	}
}

func TestDigests(t *testing.T) {
	targets := testTargets("a", "b")
	items := []Notification{
		{Target: targets[0], Message: RestockMessage(targets[0])},
		{Target: targets[1], Message: RestockMessage(targets[1])},
	}

	want := "🎉 a is back.\n\n🔗 https://shop.example/a\n\n-----\n\n🎉 b is back.\n\n🔗 https://shop.example/b"
	if got := RestockDigest(items); got != want {
		t.Errorf("RestockDigest() = %q, want %q", got, want)
	}

	errDigest := ErrorDigest([]TargetError{
		{TargetName: "Shop A", Err: errors.New("HTTP 503")},
		{TargetName: "Shop B", Err: errors.New("network error: timeout")},
	})
	wantErr := "Errors occurred while monitoring:\n\n- Shop A: HTTP 503\n- Shop B: network error: timeout\n\nPlease check the monitor environment or the target sites."
	if errDigest != wantErr {
		t.Errorf("ErrorDigest() = %q, want %q", errDigest, wantErr)
	}
}

func (l *targetLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
