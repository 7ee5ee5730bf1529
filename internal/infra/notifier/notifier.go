// Package notifier delivers best-effort out-of-band alerts over webhooks.
// It defines the Notifier interface which allows different channels
// (Discord, Slack, etc.) to be used interchangeably through dependency
// injection, plus a no-op implementation for when alerting is disabled.
//
// Delivery is best effort: callers treat a returned error as advisory and
// never let it affect their own state.
package notifier

import (
	"context"
	"log/slog"
)

// Notifier sends one alert with a short title and a body.
// Implementations handle rate limiting, retries, and error logging
// internally and must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Multi fans one alert out to several channels. Every channel is attempted;
// per-channel failures are logged and the first one is returned.
type Multi struct {
	channels []Notifier
}

// NewMulti creates a fanout notifier over the given channels.
func NewMulti(channels ...Notifier) *Multi {
	return &Multi{channels: channels}
}

// Notify sends the alert to every channel.
func (m *Multi) Notify(ctx context.Context, title, body string) error {
	var firstErr error
	for _, ch := range m.channels {
		if err := ch.Notify(ctx, title, body); err != nil {
			slog.Warn("notification channel failed",
				slog.String("title", title),
				slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
