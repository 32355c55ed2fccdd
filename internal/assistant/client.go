// Package assistant is the transport layer for the feedback coach's backend:
// a thin client over the assistant API's asynchronous run protocol (create
// thread, append message, start a run, poll it to a terminal status, read the
// latest reply). Callers must serialize turns per thread — the protocol has
// no way to pipeline multiple in-flight runs on one thread.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
	RunExpired    RunStatus = "expired"
)

// Reply is the tagged result of one assistant run, validated at the
// transport boundary.
type Reply struct {
	Status RunStatus
	Text   string
}

type Config struct {
	APIKey       string
	AssistantID  string
	BaseURL      string        // defaults to the hosted API
	PollInterval time.Duration // defaults to 1s
	ReplyTimeout time.Duration // defaults to 60s
	HTTPClient   *http.Client
	Retry        RetryPolicy
}

type Client struct {
	apiKey       string
	assistantID  string
	baseURL      string
	pollInterval time.Duration
	replyTimeout time.Duration
	httpClient   *http.Client
	retry        RetryPolicy
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("assistant: API key is required")
	}
	if cfg.AssistantID == "" {
		return nil, errors.New("assistant: assistant ID is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 60 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetry
	}
	return &Client{
		apiKey:       cfg.APIKey,
		assistantID:  cfg.AssistantID,
		baseURL:      cfg.BaseURL,
		pollInterval: cfg.PollInterval,
		replyTimeout: cfg.ReplyTimeout,
		httpClient:   cfg.HTTPClient,
		retry:        cfg.Retry,
	}, nil
}

// CreateSession opens a new conversation thread with the backend.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var threadID string
	err := c.retry.Do(ctx, "create session", func() error {
		var resp struct {
			ID string `json:"id"`
		}
		if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &resp); err != nil {
			return err
		}
		if resp.ID == "" {
			return &TransportError{Op: "create session", Err: errors.New("response missing thread id")}
		}
		threadID = resp.ID
		return nil
	})
	return threadID, err
}

// PostMessage appends a user message to the thread. The backend does not
// deduplicate, so a retried call may append duplicate turns.
func (c *Client) PostMessage(ctx context.Context, threadID, text string) error {
	body := map[string]any{
		"role":    "user",
		"content": text,
	}
	return c.retry.Do(ctx, "post message", func() error {
		var resp struct {
			ID string `json:"id"`
		}
		return c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", body, &resp)
	})
}

// AwaitReply starts a run on the thread and polls its status until it is
// terminal or the reply timeout elapses, then fetches the latest reply text.
// Each retry attempt starts a fresh run; a timed-out run is left as-is.
func (c *Client) AwaitReply(ctx context.Context, threadID string) (Reply, error) {
	var reply Reply
	err := c.retry.Do(ctx, "await reply", func() error {
		r, err := c.runAndPoll(ctx, threadID)
		if err != nil {
			return err
		}
		reply = r
		return nil
	})
	return reply, err
}

func (c *Client) runAndPoll(ctx context.Context, threadID string) (Reply, error) {
	var run struct {
		ID     string    `json:"id"`
		Status RunStatus `json:"status"`
	}
	body := map[string]any{"assistant_id": c.assistantID}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", body, &run); err != nil {
		return Reply{}, err
	}
	if run.ID == "" {
		return Reply{}, &TransportError{Op: "create run", Err: errors.New("response missing run id")}
	}

	deadline := time.Now().Add(c.replyTimeout)
	status := run.Status
	for {
		switch status {
		case RunCompleted:
			text, err := c.latestReplyText(ctx, threadID)
			if err != nil {
				return Reply{}, err
			}
			return Reply{Status: RunCompleted, Text: text}, nil
		case RunFailed, RunExpired:
			return Reply{}, &BackendError{RunStatus: status}
		case RunQueued, RunInProgress, "":
			// keep polling
		default:
			return Reply{}, &TransportError{Op: "poll run", Err: fmt.Errorf("unknown run status %q", status)}
		}

		if time.Now().After(deadline) {
			return Reply{}, ErrReplyTimeout
		}
		if err := sleepCtx(ctx, c.pollInterval); err != nil {
			return Reply{}, &TransportError{Op: "poll run", Err: err}
		}

		var poll struct {
			Status RunStatus `json:"status"`
		}
		if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+run.ID, nil, &poll); err != nil {
			return Reply{}, err
		}
		status = poll.Status
	}
}

func (c *Client) latestReplyText(ctx context.Context, threadID string) (string, error) {
	var resp struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages?limit=1", nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Content) == 0 {
		return "", &TransportError{Op: "read reply", Err: errors.New("thread has no readable messages")}
	}
	return resp.Data[0].Content[0].Text.Value, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{Op: op, Err: fmt.Errorf("backend returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("malformed response body: %w", err)}
		}
	}
	return nil
}
