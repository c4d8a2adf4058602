package domain

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDecideNewlyInStockAlwaysNotifies(t *testing.T) {
	for _, status := range []Status{StatusUnknown, StatusOut} {
		for _, lastNotified := range []time.Time{{}, testNow, testNow.Add(-time.Minute)} {
			prev := State{Status: status, LastNotifiedAt: lastNotified}

			d := Decide(prev, ProbeResult{TargetID: "t", InStock: true}, false, 24*time.Hour, testNow)
			if !d.Notify {
				t.Errorf("Decide(prev=%s, lastNotified=%v) notify = false, want true", status, lastNotified)
			}
			if d.Next.Status != StatusIn {
				t.Errorf("Next.Status = %s, want in", d.Next.Status)
			}
			if !d.Next.LastNotifiedAt.Equal(testNow) {
				t.Errorf("Next.LastNotifiedAt = %v, want %v", d.Next.LastNotifiedAt, testNow)
			}
		}
	}
}

func TestDecideCooldown(t *testing.T) {
	tests := []struct {
		name       string
		sinceLast  time.Duration
		cooldown   time.Duration
		wantNotify bool
	}{
		{name: "within cooldown", sinceLast: 30 * time.Minute, cooldown: 60 * time.Minute, wantNotify: false},
		{name: "exactly at cooldown", sinceLast: 60 * time.Minute, cooldown: 60 * time.Minute, wantNotify: false},
		{name: "past cooldown", sinceLast: 30 * time.Minute, cooldown: 20 * time.Minute, wantNotify: true},
		{name: "zero cooldown re-notifies", sinceLast: time.Second, cooldown: 0, wantNotify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := testNow.Add(-tt.sinceLast)
			prev := State{Status: StatusIn, LastCheckedAt: last, LastNotifiedAt: last}

			d := Decide(prev, ProbeResult{TargetID: "t", InStock: true}, false, tt.cooldown, testNow)
			if d.Notify != tt.wantNotify {
				t.Fatalf("Decide() notify = %v, want %v", d.Notify, tt.wantNotify)
			}

			wantLast := last
			if tt.wantNotify {
				wantLast = testNow
			}
			if !d.Next.LastNotifiedAt.Equal(wantLast) {
				t.Errorf("Next.LastNotifiedAt = %v, want %v", d.Next.LastNotifiedAt, wantLast)
			}
			if !d.Next.LastCheckedAt.Equal(testNow) {
				t.Errorf("Next.LastCheckedAt = %v, want %v", d.Next.LastCheckedAt, testNow)
			}
		})
	}
}

func TestDecideInStockWithoutNotificationHistory(t *testing.T) {
	prev := State{Status: StatusIn}

	d := Decide(prev, ProbeResult{InStock: true}, false, 60*time.Minute, testNow)
	if !d.Notify {
		t.Error("in-stock target that was never notified should notify")
	}
}

func TestDecideOutOfStockNeverNotifies(t *testing.T) {
	last := testNow.Add(-48 * time.Hour)
	for _, status := range []Status{StatusUnknown, StatusIn, StatusOut} {
		for _, force := range []bool{false, true} {
			prev := State{Status: status, LastNotifiedAt: last}

			d := Decide(prev, ProbeResult{InStock: false}, force, 0, testNow)
			if d.Notify {
				t.Errorf("Decide(prev=%s, force=%v) notify = true on negative probe", status, force)
			}
			if d.Next.Status != StatusOut {
				t.Errorf("Next.Status = %s, want out", d.Next.Status)
			}
			if !d.Next.LastNotifiedAt.Equal(last) {
				t.Errorf("Next.LastNotifiedAt changed to %v", d.Next.LastNotifiedAt)
			}
			if !d.Next.LastCheckedAt.Equal(testNow) {
				t.Errorf("Next.LastCheckedAt = %v, want %v", d.Next.LastCheckedAt, testNow)
			}
		}
	}
}

func TestDecideForceBypassesCooldown(t *testing.T) {
	prev := State{Status: StatusIn, LastNotifiedAt: testNow.Add(-time.Minute)}

	d := Decide(prev, ProbeResult{InStock: true}, true, 24*time.Hour, testNow)
	if !d.Notify {
		t.Fatal("forced in-stock probe should notify")
	}
	if !d.Next.LastNotifiedAt.Equal(testNow) {
		t.Errorf("Next.LastNotifiedAt = %v, want %v", d.Next.LastNotifiedAt, testNow)
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	prev := State{Status: StatusIn, LastNotifiedAt: testNow.Add(-90 * time.Minute)}
	probe := ProbeResult{TargetID: "t", InStock: true}

	first := Decide(prev, probe, false, time.Hour, testNow)
	second := Decide(prev, probe, false, time.Hour, testNow)
	if first != second {
		t.Errorf("Decide() not deterministic: %+v vs %+v", first, second)
	}
}

// Scenario: a target seen for the first time.
func TestDecideFirstObservation(t *testing.T) {
	d := Decide(InitialState(), ProbeResult{InStock: true}, false, time.Hour, testNow)
	if !d.Notify || d.Next.Status != StatusIn {
		t.Errorf("Decide() = %+v, want notify with status in", d)
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"in":      StatusIn,
		"out":     StatusOut,
		"unknown": StatusUnknown,
		"":        StatusUnknown,
		"IN":      StatusUnknown,
	}
	for raw, want := range tests {
		if got := ParseStatus(raw); got != want {
			t.Errorf("ParseStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestValidateTargets(t *testing.T) {
	tests := []struct {
		name    string
		targets []Target
		wantErr bool
	}{
		{name: "empty", targets: nil, wantErr: true},
		{name: "valid", targets: []Target{{ID: "a", URL: "https://a.example"}, {ID: "b", URL: "https://b.example"}}},
		{name: "missing id", targets: []Target{{URL: "https://a.example"}}, wantErr: true},
		{name: "missing url", targets: []Target{{ID: "a"}}, wantErr: true},
		{name: "duplicate id", targets: []Target{{ID: "a", URL: "https://a.example"}, {ID: "a", URL: "https://b.example"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargets(tt.targets)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTargets() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
