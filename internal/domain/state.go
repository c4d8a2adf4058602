package domain

import "time"

// Status is the last observed availability of a target.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusIn      Status = "in"
	StatusOut     Status = "out"
)

// ParseStatus maps a stored status string back to a Status.
// Anything unrecognised is StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusIn:
		return StatusIn
	case StatusOut:
		return StatusOut
	default:
		return StatusUnknown
	}
}

// ProbeResult is the outcome of one successful probe.
type ProbeResult struct {
	TargetID string
	InStock  bool
}

// State is the durable record kept per target.
//
// It only ever reflects the most recent successful probe: a failed probe
// leaves it untouched.
type State struct {
	Status Status

	// LastCheckedAt advances on every successful probe.
	LastCheckedAt time.Time

	// LastNotifiedAt is the zero time until the first notification.
	LastNotifiedAt time.Time
}

// InitialState is what a target without usable history starts from.
func InitialState() State {
	return State{Status: StatusUnknown}
}
