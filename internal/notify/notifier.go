package notify

import "context"

// Notifier defines the interface for publishing operator alerts. Conversation
// flow failures show the user a generic message; the underlying detail goes
// through here.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}
