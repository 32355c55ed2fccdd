package mailer

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/resend/resend-go/v2"
)

// ResendMailer delivers feedback request emails through Resend.
type ResendMailer struct {
	client    *resend.Client
	fromEmail string
}

func NewResendMailer(apiKey, fromEmail string) *ResendMailer {
	return &ResendMailer{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
	}
}

func (m *ResendMailer) Deliver(ctx context.Context, to string, fields MergeFields) (string, error) {
	personalBlock := ""
	if fields.PersonalMessage != "" {
		personalBlock = fmt.Sprintf(`
				<blockquote style="border-left: 3px solid #6366f1; margin: 16px 0; padding: 8px 16px; color: #555;">
					%s
				</blockquote>`, html.EscapeString(fields.PersonalMessage))
	}

	params := &resend.SendEmailRequest{
		From:    m.fromEmail,
		To:      []string{to},
		Subject: fmt.Sprintf("%s is asking for your feedback", fields.RequestorName),
		Html: fmt.Sprintf(`
			<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
				<h2 style="color: #333;">%s would like your feedback</h2>%s
				<p>They prepared a few focus areas to guide you. Click below to read them and write your response:</p>
				<a href="%s" style="display: inline-block; background: #6366f1; color: white; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: 600;">
					Give Feedback
				</a>
				<p style="color: #888; font-size: 14px; margin-top: 16px;">
					This link is personal to you and expires in 7 days.
				</p>
				<p style="color: #aaa; font-size: 12px;">
					If you weren't expecting this, you can safely ignore this email.
				</p>
			</div>
		`, html.EscapeString(fields.RequestorName), personalBlock, fields.FeedbackURL),
	}

	sent, err := m.client.Emails.Send(params)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	log.Printf("📧 Feedback request sent to %s (ID: %s)", to, sent.Id)
	return fmt.Sprintf("delivered (ID: %s)", sent.Id), nil
}
