package domain

import "time"

// Decision is the output of Decide.
type Decision struct {
	Notify bool
	Next   State
}

// Decide computes whether a probe result is worth a notification and the
// state to persist afterwards. It does no I/O and depends only on its
// arguments.
//
// A negative probe never notifies. A positive probe notifies when forced,
// when the target was out of stock or never seen, or when it has stayed in
// stock for longer than cooldown since the last notification.
func Decide(prev State, probe ProbeResult, force bool, cooldown time.Duration, now time.Time) Decision {
	next := State{
		LastCheckedAt:  now,
		LastNotifiedAt: prev.LastNotifiedAt,
	}

	if !probe.InStock {
		next.Status = StatusOut
		return Decision{Notify: false, Next: next}
	}

	next.Status = StatusIn

	var notify bool
	switch {
	case force:
		notify = true
	case prev.Status != StatusIn:
		// out or unknown: a transition into stock or a first observation
		notify = true
	default:
		notify = cooldownElapsed(prev.LastNotifiedAt, cooldown, now)
	}

	if notify {
		next.LastNotifiedAt = now
	}
	return Decision{Notify: notify, Next: next}
}

// cooldownElapsed reports now - last > cooldown. A zero last always counts
// as elapsed.
func cooldownElapsed(last time.Time, cooldown time.Duration, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > cooldown
}
