// Package notice is the fire-and-forget channel for transient user
// messages.
package notice

import (
	"context"
	"log/slog"
	"time"
)

const (
	// VisibleFor is how long a notice stays on screen.
	VisibleFor = 4000 * time.Millisecond
	// Transition is the fade in/out duration.
	Transition = 300 * time.Millisecond
)

// Notifier shows a transient message. Implementations must not block the
// caller for long and never report failure.
type Notifier interface {
	Notify(ctx context.Context, text string, isError bool)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, text string, isError bool)

func (f Func) Notify(ctx context.Context, text string, isError bool) { f(ctx, text, isError) }

// Log writes notices to the structured log.
type Log struct{}

func (Log) Notify(_ context.Context, text string, isError bool) {
	if isError {
		slog.Warn("notice", "text", text)
		return
	}
	slog.Info("notice", "text", text)
}

// Multi fans a notice out to every notifier.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, text string, isError bool) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, text, isError)
		}
	}
}
