package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pagebridge/pkg/config"
)

const (
	defaultRequestTimeout = 30 * time.Second
	errorBodyLimit        = 4 << 10
)

// APIError is a non-success response from the Send API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("send api %d: %s", e.StatusCode, e.Body)
}

// Client posts reply payloads to the platform's send-message endpoint.
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	log         *slog.Logger
}

// NewClient validates the page credentials and builds a Send API client.
func NewClient(cfg config.MessengerConfig, log *slog.Logger) (*Client, error) {
	token := strings.TrimSpace(cfg.PageAccessToken)
	if token == "" {
		return nil, errors.New("messenger.page_access_token is required")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.GraphAPIBase), "/")
	if base == "" {
		base = config.DefaultGraphAPIBase
	}
	version := strings.Trim(strings.TrimSpace(cfg.GraphAPIVersion), "/")
	if version == "" {
		version = config.DefaultGraphAPIVersion
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	if log == nil {
		log = slog.Default()
	}

	return &Client{
		endpoint:    base + "/" + version + "/me/messages",
		accessToken: token,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log.With("component", "messenger.client"),
	}, nil
}

// Send serializes payload and issues one POST. Non-2xx responses return *APIError.
func (c *Client) Send(ctx context.Context, payload OutboundPayload) error {
	if strings.TrimSpace(payload.Recipient.ID) == "" {
		return errors.New("recipient id is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := url.Values{}
	query.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL including the access token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// Deliver sends payload and absorbs any failure after logging it. It reports
// whether the platform accepted the payload.
func (c *Client) Deliver(ctx context.Context, payload OutboundPayload) bool {
	startedAt := time.Now()
	err := c.Send(ctx, payload)
	if err == nil {
		c.log.Debug("Reply delivered", "recipient_id", payload.Recipient.ID, "duration_ms", time.Since(startedAt).Milliseconds())
		return true
	}

	attrs := []any{"recipient_id", payload.Recipient.ID, "duration_ms", time.Since(startedAt).Milliseconds()}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs, "status", apiErr.StatusCode, "response", apiErr.Body)
	} else {
		attrs = append(attrs, "error", err)
	}
	c.log.Error("Failed to deliver reply", attrs...)

	return false
}
