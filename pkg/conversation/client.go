package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"pagebridge/pkg/logger"
)

// Backend runs one conversational turn against a session.
type Backend interface {
	DetectIntent(ctx context.Context, session string, text string) (Result, error)
}

// Client forwards sender text to the backend under the sender's session.
type Client struct {
	agent   Agent
	backend Backend
	log     *slog.Logger

	requests atomic.Int64
	failures atomic.Int64
}

// ClientStats counts turns forwarded and turns the backend failed.
type ClientStats struct {
	Requests int64 `json:"requests"`
	Failures int64 `json:"failures"`
}

func NewClient(agent Agent, backend Backend, log *slog.Logger) (*Client, error) {
	if backend == nil {
		return nil, errors.New("conversation backend is required")
	}
	if agent.ProjectID == "" || agent.AgentID == "" {
		return nil, errors.New("project id and agent id are required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		agent:   agent,
		backend: backend,
		log:     log.With("component", "conversation.client"),
	}, nil
}

// Forward runs one turn for senderID. Backend failures are logged and reported
// as the empty result so that one failed turn never aborts its siblings.
func (c *Client) Forward(ctx context.Context, senderID string, text string) Result {
	session := c.agent.SessionPath(senderID)
	log := c.log.With("sender_id", senderID)
	startedAt := time.Now()
	c.requests.Add(1)
	log.Debug("conversation request started", "input", logger.Preview(text))

	result, err := c.backend.DetectIntent(ctx, session, text)
	if err != nil {
		c.failures.Add(1)
		log.Error("conversation request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return Result{}
	}

	log.Debug("conversation request completed",
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"texts", len(result.Texts),
		"payloads", len(result.Payloads),
		"reply", logger.Preview(strings.Join(result.Texts, " ")),
	)
	return result
}

func (c *Client) Stats() ClientStats {
	return ClientStats{
		Requests: c.requests.Load(),
		Failures: c.failures.Load(),
	}
}
