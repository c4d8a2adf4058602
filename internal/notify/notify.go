// Package notify delivers human-facing messages.
//
// A Notifier is a plain "send(title, body)" sink. Delivery is attempted once;
// callers log failures and move on, there is no retry or escalation.
package notify

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when the sink has no credential.
var ErrNotConfigured = errors.New("notification credential not configured")

// Notifier sends one message.
type Notifier interface {
	Send(ctx context.Context, title, body string) error
}
