package mailer

import (
	"context"
	"log"
)

// MockMailer implements the Mailer interface by logging deliveries to stdout.
// Used when no Resend API key is configured.
type MockMailer struct{}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Deliver(ctx context.Context, to string, fields MergeFields) (string, error) {
	log.Printf("📧 [MockMailer] To: %s | From: %s | Link: %s", to, fields.RequestorName, fields.FeedbackURL)
	return "delivered (mock)", nil
}
