package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestNewDraft(t *testing.T) {
	owner := bson.NewObjectID()
	req := NewDraft(owner, "thread_123")

	assert.Equal(t, StatusDraft, req.Status)
	assert.Equal(t, "thread_123", req.ThreadID)
	assert.True(t, req.OwnedBy(owner))
	assert.False(t, req.OwnedBy(bson.NewObjectID()))
}

func TestAuthorize(t *testing.T) {
	owner := bson.NewObjectID()
	req := NewDraft(owner, "thread_123")

	assert.NoError(t, req.Authorize(owner))
	assert.ErrorIs(t, req.Authorize(bson.NewObjectID()), ErrNotOwner)
}

func TestMarkDispatched(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("happy path", func(t *testing.T) {
		req := NewDraft(bson.NewObjectID(), "thread_123")
		req.FeedbackPrompt = "## Focus areas\n- clarity"

		err := req.MarkDispatched("Jamie", "jamie@example.com", "link-1", FanOutTTL, now)
		require.NoError(t, err)

		assert.Equal(t, StatusPending, req.Status)
		assert.Equal(t, "Jamie", req.RecipientName)
		assert.Equal(t, "jamie@example.com", req.RecipientEmail)
		assert.Equal(t, "link-1", req.UniqueLink)
		assert.Empty(t, req.ThreadID, "conversation handle must be cleared on dispatch")
		require.NotNil(t, req.ExpiresAt)
		assert.Equal(t, now.Add(FanOutTTL), *req.ExpiresAt)
	})

	t.Run("requires a feedback prompt", func(t *testing.T) {
		req := NewDraft(bson.NewObjectID(), "thread_123")

		err := req.MarkDispatched("Jamie", "jamie@example.com", "link-1", FanOutTTL, now)
		assert.ErrorIs(t, err, ErrPromptMissing)

		// Nothing mutated on failure.
		assert.Equal(t, StatusDraft, req.Status)
		assert.Equal(t, "thread_123", req.ThreadID)
		assert.Empty(t, req.UniqueLink)
		assert.Nil(t, req.ExpiresAt)
	})

	t.Run("requires a recipient email", func(t *testing.T) {
		req := NewDraft(bson.NewObjectID(), "thread_123")
		req.FeedbackPrompt = "prompt"

		err := req.MarkDispatched("Jamie", "", "link-1", FanOutTTL, now)
		assert.ErrorIs(t, err, ErrRecipientMissing)
		assert.Equal(t, StatusDraft, req.Status)
		assert.Empty(t, req.RecipientName)
	})

	t.Run("only drafts can be dispatched", func(t *testing.T) {
		req := NewDraft(bson.NewObjectID(), "thread_123")
		req.FeedbackPrompt = "prompt"
		require.NoError(t, req.MarkDispatched("Jamie", "jamie@example.com", "link-1", FanOutTTL, now))

		err := req.MarkDispatched("Alex", "alex@example.com", "link-2", FanOutTTL, now)
		assert.ErrorIs(t, err, ErrBadTransition)
		assert.Equal(t, "jamie@example.com", req.RecipientEmail)
	})
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	dispatched := func(ttl time.Duration) *FeedbackRequest {
		req := NewDraft(bson.NewObjectID(), "thread_123")
		req.FeedbackPrompt = "prompt"
		if err := req.MarkDispatched("Jamie", "jamie@example.com", "link-1", ttl, now); err != nil {
			t.Fatal(err)
		}
		return req
	}

	t.Run("pending before the deadline", func(t *testing.T) {
		req := dispatched(FanOutTTL)
		assert.Equal(t, StatusPending, req.EffectiveStatus(now.Add(6*24*time.Hour)))
	})

	t.Run("reads as expired after the deadline without a write", func(t *testing.T) {
		req := dispatched(FanOutTTL)
		assert.Equal(t, StatusExpired, req.EffectiveStatus(now.Add(8*24*time.Hour)))
		// The stored status was never flipped.
		assert.Equal(t, StatusPending, req.Status)
	})

	t.Run("draft never expires", func(t *testing.T) {
		req := NewDraft(bson.NewObjectID(), "thread_123")
		assert.Equal(t, StatusDraft, req.EffectiveStatus(now.Add(365*24*time.Hour)))
	})

	t.Run("completed is terminal", func(t *testing.T) {
		req := dispatched(FanOutTTL)
		require.NoError(t, req.MarkCompleted("great work", now.Add(time.Hour)))
		assert.Equal(t, StatusCompleted, req.EffectiveStatus(now.Add(100*24*time.Hour)))
	})
}

func TestMarkCompleted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	newPending := func() *FeedbackRequest {
		req := NewDraft(bson.NewObjectID(), "thread_123")
		req.FeedbackPrompt = "prompt"
		if err := req.MarkDispatched("Jamie", "jamie@example.com", "link-1", FanOutTTL, now); err != nil {
			t.Fatal(err)
		}
		return req
	}

	t.Run("records the submission", func(t *testing.T) {
		req := newPending()
		submitted := now.Add(2 * 24 * time.Hour)

		require.NoError(t, req.MarkCompleted("thoughtful feedback", submitted))
		assert.Equal(t, StatusCompleted, req.Status)
		assert.Equal(t, "thoughtful feedback", req.FeedbackText)
		require.NotNil(t, req.SubmittedAt)
		assert.Equal(t, submitted, *req.SubmittedAt)
	})

	t.Run("rejected after expiry", func(t *testing.T) {
		req := newPending()
		err := req.MarkCompleted("too late", now.Add(8*24*time.Hour))
		assert.ErrorIs(t, err, ErrRequestExpired)
		assert.Empty(t, req.FeedbackText)
	})

	t.Run("completed is terminal", func(t *testing.T) {
		req := newPending()
		require.NoError(t, req.MarkCompleted("first", now.Add(time.Hour)))

		err := req.MarkCompleted("second", now.Add(2*time.Hour))
		assert.ErrorIs(t, err, ErrBadTransition)
		assert.Equal(t, "first", req.FeedbackText)
	})

	t.Run("drafts cannot be completed", func(t *testing.T) {
		req := NewDraft(bson.NewObjectID(), "thread_123")
		err := req.MarkCompleted("nope", now)
		assert.ErrorIs(t, err, ErrBadTransition)
	})
}
