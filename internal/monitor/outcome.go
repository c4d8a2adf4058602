package monitor

import (
	"strings"

	"github.com/MrSnakeDoc/restock/internal/domain"
)

const (
	RestockTitle = "🎉 Stock restock alert"
	ErrorTitle   = "⚠️ Stock monitor errors (combined)"

	digestSeparator = "\n\n-----\n\n"
)

// Notification is a queued restock message for one target.
type Notification struct {
	Target  domain.Target
	Message string
}

// TargetError is a failure for one target during a run.
type TargetError struct {
	TargetName string
	Err        error
}

// RunOutcome holds what one run produced, in target registry order.
type RunOutcome struct {
	Notifications []Notification
	Errors        []TargetError
}

func collect(targets []domain.Target, results []checkResult) RunOutcome {
	var out RunOutcome
	for i, res := range results {
		t := targets[i]
		switch {
		case res.err != nil:
			out.Errors = append(out.Errors, TargetError{TargetName: t.DisplayName(), Err: res.err})
		case res.notify:
			out.Notifications = append(out.Notifications, Notification{Target: t, Message: RestockMessage(t)})
		}
	}
	return out
}

// RestockMessage is the per-target entry of the restock digest.
func RestockMessage(t domain.Target) string {
	return "🎉 " + t.Description + "\n\n🔗 " + t.URL
}

// RestockDigest joins all queued messages into one body.
func RestockDigest(items []Notification) string {
	msgs := make([]string, 0, len(items))
	for _, n := range items {
		msgs = append(msgs, n.Message)
	}
	return strings.Join(msgs, digestSeparator)
}

// ErrorDigest lists every failed target on its own line.
func ErrorDigest(errs []TargetError) string {
	var b strings.Builder
	b.WriteString("Errors occurred while monitoring:\n\n")
	for i, e := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(e.TargetName)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	b.WriteString("\n\nPlease check the monitor environment or the target sites.")
	return b.String()
}
