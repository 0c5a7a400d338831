package port

import "context"

// EventPublisher delivers order-lifecycle events to interested services.
// Publishing is best-effort: callers log and swallow failures, and no
// ordering or delivery guarantee exists between calls.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any) error
}
