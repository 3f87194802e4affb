// Package notify handles outbound notifications through a pluggable
// messaging provider.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Provider defines the interface for message delivery implementations.
type Provider interface {
	// Send delivers one free-text message.
	Send(ctx context.Context, content string) error
}

// Sender formats notification messages and hands them to a provider.
// Delivery is best effort: callers treat a returned error as log-worthy,
// never as a reason to abort or to re-send later.
type Sender struct {
	provider Provider
	logger   *slog.Logger
}

// New creates a sender on top of the given provider.
func New(provider Provider, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
	}
}

// SessionStarted announces a new occupancy on an outlet. It addresses
// nobody in particular, so it needs no roster entry.
func (s *Sender) SessionStarted(ctx context.Context, name string, outlet int, endsAt time.Time) error {
	content := fmt.Sprintf("%s started charging on outlet %d, done around %s",
		name, outlet, endsAt.Format("15:04"))

	s.logger.Info("Sending session-started notification",
		"name", name,
		"outlet", outlet,
		"ends_at", endsAt.Format("15:04"))

	return s.provider.Send(ctx, content)
}

// AlmostUp warns the current occupant that the session is inside the
// warning window.
func (s *Sender) AlmostUp(ctx context.Context, recipient, name string, outlet int) error {
	content := fmt.Sprintf("@%s your charging time on outlet %d is almost up, please move your car soon",
		recipient, outlet)

	s.logger.Info("Sending almost-up notification",
		"name", name,
		"recipient", recipient,
		"outlet", outlet)

	return s.provider.Send(ctx, content)
}

// TurnReady tells a queued subscriber that the outlet is waiting on them.
func (s *Sender) TurnReady(ctx context.Context, recipient, name string, outlet int) error {
	content := fmt.Sprintf("@%s it is your turn on outlet %d, please accept and plug in",
		recipient, outlet)

	s.logger.Info("Sending your-turn notification",
		"name", name,
		"recipient", recipient,
		"outlet", outlet)

	return s.provider.Send(ctx, content)
}
