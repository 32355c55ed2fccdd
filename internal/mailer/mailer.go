package mailer

import "context"

// MergeFields is the dynamic data interpolated into the feedback request
// email template.
type MergeFields struct {
	RequestorName   string
	FeedbackURL     string
	PersonalMessage string
}

// Mailer defines the interface for delivering feedback request emails.
// This abstraction allows swapping the logging mock with the real Resend
// client without refactoring.
type Mailer interface {
	Deliver(ctx context.Context, to string, fields MergeFields) (detail string, err error)
}
