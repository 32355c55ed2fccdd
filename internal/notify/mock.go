package notify

import (
	"context"
	"log"
)

// LogNotifier implements the Notifier interface by logging alerts to stdout.
// Replace with a real pager/chat integration for production use.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Publish(ctx context.Context, message string) error {
	log.Printf("🚨 [Ops] %s", message)
	return nil
}
