package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"michaucha/internal/core"
	"michaucha/internal/ports"
)

type settings struct {
	now func() time.Time
}

// Option configures a service.
type Option func(*settings)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func newEvent(t core.EventType, now time.Time) core.Event {
	return core.Event{ID: uuid.NewString(), Type: t, Timestamp: now}
}

// publish is best-effort: failures are logged and never returned.
func publish(ctx context.Context, p ports.EventPublisher, e core.Event) {
	if p == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "type", e.Type)
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event", "type", e.Type, "event_id", e.ID, "error", err)
	}
}

// withLock runs fn while holding key. A nil locker runs fn directly.
func withLock(ctx context.Context, l ports.Locker, key string, fn func() error) error {
	if l == nil {
		return fn()
	}
	release, err := l.Obtain(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// lockPeriod guards period closing and payment toggles so a toggle cannot
// land on a period that is being closed.
const lockPeriod = "michaucha:period"
