// Package dispatch fans one approved feedback prompt out to N recipients:
// every distinct address gets its own independently tracked pending request
// carrying the source prompt verbatim. All clones are committed in one batch
// before any email leaves the building, so a delivery failure can never
// reference a request that was not durably recorded.
package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"candor-backend/internal/mailer"
	"candor-backend/internal/models"

	"github.com/google/uuid"
)

const (
	MaxRecipients      = 50
	MaxPersonalMessage = 1000
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether addr passes the syntactic address check used
// for recipients.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// ValidationError rejects the whole batch before any clone is persisted.
// Validation failures are never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Store is the persistence surface the fan-out needs.
type Store interface {
	InsertBatch(ctx context.Context, reqs []*models.FeedbackRequest) error
}

// Result summarizes one fan-out batch. Per-recipient delivery failures are
// collected here, never discarded.
type Result struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Errors    []string `json:"errors,omitempty"`
}

// AllFailed reports a batch where not a single delivery went out.
func (r *Result) AllFailed() bool {
	return r.Succeeded == 0
}

type Service struct {
	store   Store
	mailer  mailer.Mailer
	baseURL string
}

func NewService(store Store, m mailer.Mailer, baseURL string) *Service {
	return &Service{store: store, mailer: m, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Send validates the batch atomically, clones the source draft once per
// distinct address, commits the clones in one batch insert, and then
// delivers the emails, collecting per-recipient failures. The source draft
// itself is left untouched.
func (s *Service) Send(ctx context.Context, source *models.FeedbackRequest, recipients []string, personalMessage, requestorName string) (*Result, error) {
	if source.Status != models.StatusDraft {
		return nil, models.ErrBadTransition
	}
	if source.FeedbackPrompt == "" {
		return nil, models.ErrPromptMissing
	}

	if len(recipients) == 0 {
		return nil, &ValidationError{Reason: "no recipients provided"}
	}
	if len(recipients) > MaxRecipients {
		return nil, &ValidationError{Reason: fmt.Sprintf("too many recipients (max %d)", MaxRecipients)}
	}
	for _, addr := range recipients {
		if !ValidEmail(addr) {
			return nil, &ValidationError{Reason: fmt.Sprintf("invalid email format: %s", addr)}
		}
	}
	if len(personalMessage) > MaxPersonalMessage {
		return nil, &ValidationError{Reason: fmt.Sprintf("personal message too long (max %d characters)", MaxPersonalMessage)}
	}

	distinct := dedupe(recipients)
	now := time.Now()

	clones := make([]*models.FeedbackRequest, 0, len(distinct))
	for _, addr := range distinct {
		clone := &models.FeedbackRequest{
			RequestorID:     source.RequestorID,
			Status:          models.StatusDraft,
			FeedbackPrompt:  source.FeedbackPrompt,
			PersonalMessage: personalMessage,
		}
		if err := clone.MarkDispatched(displayName(addr), addr, uuid.New().String(), models.FanOutTTL, now); err != nil {
			return nil, err
		}
		clones = append(clones, clone)
	}

	// Commit before sending: the reverse order admits email for requests
	// that were never recorded.
	if err := s.store.InsertBatch(ctx, clones); err != nil {
		return nil, fmt.Errorf("persisting fan-out batch: %w", err)
	}

	result := &Result{Total: len(clones)}
	for _, clone := range clones {
		fields := mailer.MergeFields{
			RequestorName:   requestorName,
			FeedbackURL:     s.baseURL + "/f/" + clone.UniqueLink,
			PersonalMessage: personalMessage,
		}
		if _, err := s.mailer.Deliver(ctx, clone.RecipientEmail, fields); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", clone.RecipientEmail, err))
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// dedupe keeps the first occurrence of each address, preserving input order.
func dedupe(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func displayName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
