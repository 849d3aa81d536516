// Package telegram adapts the Telegram Bot API to the messaging port.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Config configures the Bot API client.
type Config struct {
	Token       string
	BaseURL     string
	MaxAttempts int
	RetryDelay  time.Duration
	// Timeout bounds a single API call including retries.
	Timeout time.Duration
	// PollTimeout is the long-poll wait passed to getUpdates.
	PollTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 200 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 30 * time.Second
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// APIError is a request the Bot API answered with ok=false. It is not retried.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Is maps well-known API descriptions onto the messaging sentinels.
func (e *APIError) Is(target error) bool {
	desc := strings.ToLower(e.Description)
	switch target {
	case messaging.ErrNotModified:
		return strings.Contains(desc, "message is not modified")
	case messaging.ErrMessageGone:
		return strings.Contains(desc, "message to edit not found") ||
			strings.Contains(desc, "message to delete not found") ||
			strings.Contains(desc, "message can't be deleted")
	}
	return false
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// Client calls Bot API methods with retry on transport and server errors.
type Client struct {
	cfg      Config
	http     *http.Client
	retryCfg retry.Config
	logger   *slog.Logger
}

// NewClient creates a Bot API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		retryCfg: retry.Config{
			MaxAttempts:   cfg.MaxAttempts,
			InitialDelay:  cfg.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
		logger: logger,
	}
}

// Call invokes a Bot API method and decodes its result into out, if non-nil.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	return c.call(ctx, c.cfg.Timeout, method, params, out)
}

func (c *Client) call(ctx context.Context, limit time.Duration, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	r := retry.New[*apiResponse](c.retryCfg)
	t := timeout.New[*apiResponse](timeout.Config{DefaultTimeout: limit})

	resp, err := t.Execute(ctx, limit, func(ctx context.Context) (*apiResponse, error) {
		return r.Do(ctx, func(ctx context.Context) (*apiResponse, error) {
			return c.post(ctx, method, body)
		})
	})
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if !resp.OK {
		return &APIError{Method: method, Code: resp.ErrorCode, Description: resp.Description}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// post performs one HTTP round trip. Transport failures, 5xx and 429 are
// returned as errors so they are retried; other refusals come back as a
// response with ok=false.
func (c *Client) post(ctx context.Context, method string, body []byte) (*apiResponse, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, c.cfg.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Debug("telegram call will be retried", "method", method, "status", resp.StatusCode)
		return nil, fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
