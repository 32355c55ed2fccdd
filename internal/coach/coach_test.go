package coach

import (
	"context"
	"errors"
	"strings"
	"testing"

	"candor-backend/internal/assistant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport replays scripted replies in order and records every message
// posted to it.
type fakeTransport struct {
	replies  []string
	posted   []string
	err      error
	sessions int
}

func (f *fakeTransport) CreateSession(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sessions++
	return "thread_fake", nil
}

func (f *fakeTransport) PostMessage(ctx context.Context, session, text string) error {
	if f.err != nil {
		return f.err
	}
	f.posted = append(f.posted, text)
	return nil
}

func (f *fakeTransport) AwaitReply(ctx context.Context, session string) (assistant.Reply, error) {
	if f.err != nil {
		return assistant.Reply{}, f.err
	}
	if len(f.replies) == 0 {
		return assistant.Reply{}, errors.New("fake transport: no scripted reply")
	}
	text := f.replies[0]
	f.replies = f.replies[1:]
	return assistant.Reply{Status: assistant.RunCompleted, Text: text}, nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantComplete bool
		wantMessage  string
	}{
		{
			name:         "bold sentinel",
			text:         "Got it. **Complete: True**",
			wantComplete: true,
			wantMessage:  "Got it.",
		},
		{
			name:         "inline sentinel",
			text:         "We have what we need, Complete: True",
			wantComplete: true,
			wantMessage:  "We have what we need",
		},
		{
			name:         "negative marker stripped but incomplete",
			text:         "What's the context, Complete: False",
			wantComplete: false,
			wantMessage:  "What's the context",
		},
		{
			name:         "plain reply",
			text:         "What's the context?",
			wantComplete: false,
			wantMessage:  "What's the context?",
		},
		{
			name:         "all variants stripped",
			text:         "Done. **Complete: True**, Complete: True, Complete: False",
			wantComplete: true,
			wantMessage:  "Done.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message, complete := Classify(tt.text)
			assert.Equal(t, tt.wantComplete, complete)
			assert.Equal(t, tt.wantMessage, message)
			assert.NotContains(t, message, "Complete: True")
			assert.NotContains(t, message, "Complete: False")
		})
	}
}

func TestStart(t *testing.T) {
	transport := &fakeTransport{replies: []string{"What would you like feedback on?"}}
	c := New(transport)

	session, turn, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "thread_fake", session)
	assert.Equal(t, "What would you like feedback on?", turn.Message)
	assert.False(t, turn.Complete)
	assert.Empty(t, transport.posted, "no user input before the first reply")
}

func TestSend(t *testing.T) {
	t.Run("complete reply returns immediately", func(t *testing.T) {
		transport := &fakeTransport{replies: []string{"Got it. **Complete: True**"}}
		c := New(transport)

		turn, err := c.Send(context.Background(), "thread_fake", "project X retro")
		require.NoError(t, err)
		assert.True(t, turn.Complete)
		assert.Equal(t, "Got it.", turn.Message)
		require.Len(t, transport.posted, 1, "no probe after a complete reply")
		assert.Equal(t, "project X retro", transport.posted[0])
	})

	t.Run("probe supersedes when it completes", func(t *testing.T) {
		transport := &fakeTransport{replies: []string{
			"Anything else?",
			"We have everything. **Complete: True**",
		}}
		c := New(transport)

		turn, err := c.Send(context.Background(), "thread_fake", "that's all")
		require.NoError(t, err)
		assert.True(t, turn.Complete)
		assert.Equal(t, "We have everything.", turn.Message)
		require.Len(t, transport.posted, 2)
		assert.True(t, strings.HasPrefix(transport.posted[1], "SYSTEM:"))
	})

	t.Run("incomplete probe keeps the original reply", func(t *testing.T) {
		transport := &fakeTransport{replies: []string{
			"What's the timeline?",
			"Still need the timeline.",
		}}
		c := New(transport)

		turn, err := c.Send(context.Background(), "thread_fake", "it's a project")
		require.NoError(t, err)
		assert.False(t, turn.Complete)
		assert.Equal(t, "What's the timeline?", turn.Message)
	})

	t.Run("transport errors propagate unchanged", func(t *testing.T) {
		wantErr := &assistant.TransportError{Op: "post message", Err: errors.New("boom")}
		transport := &fakeTransport{err: wantErr}
		c := New(transport)

		_, err := c.Send(context.Background(), "thread_fake", "hello")
		assert.ErrorIs(t, err, wantErr)
	})
}

func TestSummarize(t *testing.T) {
	transport := &fakeTransport{replies: []string{"## Summary\n- focus on clarity **Complete: True**"}}
	c := New(transport)

	summary, err := c.Summarize(context.Background(), "thread_fake")
	require.NoError(t, err)
	assert.Equal(t, "## Summary\n- focus on clarity", summary)
	require.Len(t, transport.posted, 1)
	assert.True(t, strings.HasPrefix(transport.posted[0], "SYSTEM:"))
	assert.Contains(t, transport.posted[0], "structured summary")
}

// Mirrors the full authoring flow: incomplete opener, complete reply after a
// user turn, then a summary whose marker never reaches the caller.
func TestConversationFlow(t *testing.T) {
	transport := &fakeTransport{replies: []string{
		"What's the context?",
		"Got it. **Complete: True**",
		"## Feedback request\n- project X retro, Complete: True",
	}}
	c := New(transport)
	ctx := context.Background()

	session, opening, err := c.Start(ctx)
	require.NoError(t, err)
	assert.False(t, opening.Complete)

	turn, err := c.Send(ctx, session, "project X retro")
	require.NoError(t, err)
	assert.True(t, turn.Complete)
	assert.Equal(t, "Got it.", turn.Message)

	summary, err := c.Summarize(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "## Feedback request\n- project X retro", summary)
	assert.NotContains(t, summary, "Complete:")
}
