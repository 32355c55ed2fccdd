package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type RequestStatus string

const (
	StatusDraft     RequestStatus = "draft"
	StatusPending   RequestStatus = "pending"
	StatusCompleted RequestStatus = "completed"
	StatusExpired   RequestStatus = "expired"
)

// Expiry offsets measured from dispatch time.
const (
	DirectSendTTL = 30 * 24 * time.Hour
	FanOutTTL     = 7 * 24 * time.Hour
)

var (
	ErrNotOwner         = errors.New("request does not belong to the acting user")
	ErrBadTransition    = errors.New("illegal status transition")
	ErrPromptMissing    = errors.New("feedback prompt is empty")
	ErrRecipientMissing = errors.New("recipient email is required")
	ErrRequestExpired   = errors.New("request has expired")
)

// FeedbackRequest is one feedback solicitation. A draft is bound to an
// assistant conversation via ThreadID; dispatching clears the thread, fixes
// the prompt, and addresses the request to a single recipient.
type FeedbackRequest struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestorID     bson.ObjectID `bson:"requestor_id" json:"requestor_id"`
	RecipientName   string        `bson:"recipient_name,omitempty" json:"recipient_name,omitempty"`
	RecipientEmail  string        `bson:"recipient_email,omitempty" json:"recipient_email,omitempty"`
	Status          RequestStatus `bson:"status" json:"status"`
	ThreadID        string        `bson:"thread_id,omitempty" json:"-"`
	FeedbackPrompt  string        `bson:"feedback_prompt,omitempty" json:"feedback_prompt,omitempty"`
	PersonalMessage string        `bson:"personal_message,omitempty" json:"personal_message,omitempty"`
	UniqueLink      string        `bson:"unique_link,omitempty" json:"unique_link,omitempty"`
	FeedbackText    string        `bson:"feedback_text,omitempty" json:"feedback_text,omitempty"`
	SubmittedAt     *time.Time    `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	ExpiresAt       *time.Time    `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
}

// NewDraft creates a request in authoring state, bound to a conversation.
func NewDraft(requestorID bson.ObjectID, threadID string) *FeedbackRequest {
	return &FeedbackRequest{
		RequestorID: requestorID,
		Status:      StatusDraft,
		ThreadID:    threadID,
	}
}

func (r *FeedbackRequest) OwnedBy(userID bson.ObjectID) bool {
	return r.RequestorID == userID
}

// Authorize rejects any acting user other than the owner. Mutating
// operations must call this before touching the request.
func (r *FeedbackRequest) Authorize(userID bson.ObjectID) error {
	if !r.OwnedBy(userID) {
		return ErrNotOwner
	}
	return nil
}

// EffectiveStatus reports the lifecycle state as of now. A pending request
// past its deadline reads as expired without any write; there is no
// background sweep.
func (r *FeedbackRequest) EffectiveStatus(now time.Time) RequestStatus {
	if r.Status == StatusPending && r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
		return StatusExpired
	}
	return r.Status
}

// MarkDispatched moves draft → pending: addresses the request to a recipient,
// stamps the unique link and deadline, and detaches the conversation. All
// preconditions are checked before anything is mutated.
func (r *FeedbackRequest) MarkDispatched(recipientName, recipientEmail, link string, ttl time.Duration, now time.Time) error {
	if r.Status != StatusDraft {
		return ErrBadTransition
	}
	if r.FeedbackPrompt == "" {
		return ErrPromptMissing
	}
	if recipientEmail == "" {
		return ErrRecipientMissing
	}

	expires := now.Add(ttl)
	r.RecipientName = recipientName
	r.RecipientEmail = recipientEmail
	r.Status = StatusPending
	r.UniqueLink = link
	r.ExpiresAt = &expires
	r.ThreadID = ""
	return nil
}

// MarkCompleted records the recipient's submission, pending → completed.
// A lazily expired request can no longer accept feedback.
func (r *FeedbackRequest) MarkCompleted(feedbackText string, now time.Time) error {
	switch r.EffectiveStatus(now) {
	case StatusPending:
	case StatusExpired:
		return ErrRequestExpired
	default:
		return ErrBadTransition
	}

	r.Status = StatusCompleted
	r.FeedbackText = feedbackText
	r.SubmittedAt = &now
	return nil
}
