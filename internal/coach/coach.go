// Package coach drives the multi-turn dialogue that turns a user's rough
// intent into a structured feedback prompt. It relays turns through the
// assistant transport and watches replies for the completion sentinel the
// coach assistant appends when it considers the gathering phase done.
package coach

import (
	"context"
	"strings"

	"candor-backend/internal/assistant"
)

// Transport is the subset of the assistant client the coach needs.
type Transport interface {
	CreateSession(ctx context.Context) (string, error)
	PostMessage(ctx context.Context, session, text string) error
	AwaitReply(ctx context.Context, session string) (assistant.Reply, error)
}

// Two sentinel surface forms exist for backward compatibility; both mark
// completion. The negative form is stripped as well so no marker variant
// ever reaches user-visible or persisted text.
const (
	markerBold       = "**Complete: True**"
	markerInline     = ", Complete: True"
	markerIncomplete = ", Complete: False"
)

const readinessProbe = "SYSTEM: Please evaluate if we have gathered enough specific information about the feedback request. " +
	"Consider: (1) The specific context or situation, (2) Clear focus areas for feedback, " +
	"(3) Any relevant background or constraints. " +
	"If we have enough information, end your response with '**Complete: True**'. " +
	"If we need more information, ask a specific follow-up question."

const summaryInstruction = "SYSTEM: Please provide a clear, structured summary of the feedback request. " +
	"Include key areas to focus on and any specific aspects mentioned. " +
	"Format it in markdown with appropriate headers and bullet points."

// Turn is one assistant reply as shown to the user: cleaned text plus the
// completeness classification.
type Turn struct {
	Message  string
	Complete bool
}

type Coach struct {
	transport Transport
}

func New(transport Transport) *Coach {
	return &Coach{transport: transport}
}

// Start opens a session and asks the backend for its opening question with
// no user input yet.
func (c *Coach) Start(ctx context.Context) (string, Turn, error) {
	session, err := c.transport.CreateSession(ctx)
	if err != nil {
		return "", Turn{}, err
	}
	turn, err := c.reply(ctx, session)
	if err != nil {
		return "", Turn{}, err
	}
	return session, turn, nil
}

// Send relays one user message and classifies the reply. When the reply is
// incomplete, one system-directed readiness probe is issued to encourage
// convergence; the probe reply supersedes the original only if it itself
// signals completion.
func (c *Coach) Send(ctx context.Context, session, message string) (Turn, error) {
	if err := c.transport.PostMessage(ctx, session, message); err != nil {
		return Turn{}, err
	}
	turn, err := c.reply(ctx, session)
	if err != nil {
		return Turn{}, err
	}
	if turn.Complete {
		return turn, nil
	}

	if err := c.transport.PostMessage(ctx, session, readinessProbe); err != nil {
		return Turn{}, err
	}
	probe, err := c.reply(ctx, session)
	if err != nil {
		return Turn{}, err
	}
	if probe.Complete {
		return probe, nil
	}
	return turn, nil
}

// Summarize asks for a structured synopsis of everything gathered in the
// session and returns the cleaned text.
func (c *Coach) Summarize(ctx context.Context, session string) (string, error) {
	if err := c.transport.PostMessage(ctx, session, summaryInstruction); err != nil {
		return "", err
	}
	turn, err := c.reply(ctx, session)
	if err != nil {
		return "", err
	}
	return turn.Message, nil
}

func (c *Coach) reply(ctx context.Context, session string) (Turn, error) {
	reply, err := c.transport.AwaitReply(ctx, session)
	if err != nil {
		return Turn{}, err
	}
	message, complete := Classify(reply.Text)
	return Turn{Message: message, Complete: complete}, nil
}

// Classify reports whether the reply text carries a completion sentinel and
// returns the text with every known marker variant stripped.
func Classify(text string) (string, bool) {
	complete := strings.Contains(text, markerBold) || strings.Contains(text, markerInline)

	cleaned := strings.ReplaceAll(text, markerBold, "")
	cleaned = strings.ReplaceAll(cleaned, markerInline, "")
	cleaned = strings.ReplaceAll(cleaned, markerIncomplete, "")
	return strings.TrimSpace(cleaned), complete
}
