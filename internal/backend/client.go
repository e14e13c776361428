package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/inboxdesk/internal/config"
)

// maxErrorBody caps how much of an unparseable error body ends up in a
// status message.
const maxErrorBody = 200

// Client is a thin JSON-over-HTTP client for one backend service.
// It never retries; a failed call is reported to the caller as an
// *APIError.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends the token as a Bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the root URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody covers the failure shapes the backends use.
type errorBody struct {
	Error   string `json:"error"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Get performs a GET with the given query and decodes the JSON response.
func (c *Client) Get(ctx context.Context, op, path string, query url.Values, result any) error {
	return c.do(ctx, op, http.MethodGet, path, query, nil, result)
}

// Post performs a POST with a JSON body and decodes the JSON response.
func (c *Client) Post(ctx context.Context, op, path string, body, result any) error {
	return c.do(ctx, op, http.MethodPost, path, nil, body, result)
}

// do builds the request, classifies failures, and decodes the body.
func (c *Client) do(
	ctx context.Context,
	op string,
	method string,
	path string,
	query url.Values,
	body any,
	result any,
) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", op, err)
		}
		c.logger.Log(ctx, config.LevelTrace, "backend request body", "op", op, "body", string(data))
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			"op", op, "request_id", requestID, "method", method, "path", path, "error", err)
		return &APIError{Kind: KindNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: KindNetwork, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.logger.Debug("backend request",
		"op", op,
		"request_id", requestID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	c.logger.Log(ctx, config.LevelTrace, "backend response body", "op", op, "body", string(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Kind:       KindHTTP,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return &APIError{
			Kind:       KindApplication,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    "malformed response from backend",
			Err:        err,
		}
	}

	return nil
}

// errorMessage extracts a readable message from an error response body.
func errorMessage(body []byte) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}
