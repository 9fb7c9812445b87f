// Package audit emits authentication lifecycle events (login, logout,
// refresh) for downstream consumers. Emission is best-effort and
// fire-and-forget: an unreachable broker never fails or delays an
// authentication request.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event types emitted by the authority.
const (
	EventLogin   = "auth.login"
	EventLogout  = "auth.logout"
	EventRefresh = "auth.refresh"
)

// Event is one authentication lifecycle occurrence.
type Event struct {
	Type       string    `json:"type"`
	EmployeeID string    `json:"employee_id"`
	Outcome    string    `json:"outcome"` // "ok" or a short failure reason
	OccurredAt time.Time `json:"occurred_at"`
}

// Emitter publishes events. Implementations must be safe for concurrent use.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// emitTimeout bounds a single async emit so a slow broker cannot pile up
// goroutines indefinitely.
const emitTimeout = 5 * time.Second

// Async runs Emit in a goroutine detached from the request context, so
// request cancellation does not abort an in-flight emit. emitter may be nil.
func Async(emitter Emitter, log *zap.Logger, event Event) {
	if emitter == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil && log != nil {
			log.Warn("audit emit failed",
				zap.String("type", event.Type),
				zap.Error(err))
		}
	}()
}
