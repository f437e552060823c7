package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"table-sync/core/reconcile"
	"table-sync/core/utils"

	"golang.org/x/oauth2"
)

var (
	// ErrNotFound is returned when the addressed resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the credentials are missing, invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx response.
type APIError struct {
	Service    string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s api error (%d %s): %s", e.Service, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s api error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses to sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return reconcile.ErrPermissionDenied
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// ErrorParser extracts the status text and message of an error response body.
// It returns empty strings when the body has an unknown shape.
type ErrorParser func(body []byte) (status, message string)

// Options configures a Client.
type Options struct {
	// Service labels errors, e.g. "coda".
	Service string
	BaseURL string
	// Tokens supplies bearer tokens. Nil sends requests without credentials.
	Tokens     oauth2.TokenSource
	MaxRetries int
	// Backoff is the first retry delay; it doubles on each retry.
	Backoff time.Duration
	// Timeout bounds one request. Zero means 30 seconds.
	Timeout    time.Duration
	ParseError ErrorParser
}

// Client sends JSON requests to one REST API.
type Client struct {
	httpClient *http.Client
	service    string
	baseURL    string
	maxRetries int
	backoff    time.Duration
	parseError ErrorParser

	// Sleep waits between retries.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	if opts.Tokens != nil {
		transport = &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, opts.Tokens), Base: transport}
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	parse := opts.ParseError
	if parse == nil {
		parse = func([]byte) (string, string) { return "", "" }
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		service:    opts.Service,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		maxRetries: max(opts.MaxRetries, 0),
		backoff:    backoff,
		parseError: parse,
		Sleep:      utils.Sleep,
	}
}

// StaticToken returns a token source for a fixed bearer token, or nil when token is empty.
func StaticToken(token string) oauth2.TokenSource {
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

func retryable(method string, status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && method == http.MethodGet
}

// Do sends a JSON request and decodes the JSON response into result.
// body and result may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	backoff := c.backoff
	for attempt := 0; ; attempt++ {
		err := c.send(ctx, method, path, payload, result)
		var apiErr *APIError
		if err == nil || !errors.As(err, &apiErr) || !retryable(method, apiErr.StatusCode) || attempt >= c.maxRetries {
			return err
		}
		if err := c.Sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, result any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var tokenErr *oauth2.RetrieveError
		if errors.As(err, &tokenErr) {
			return fmt.Errorf("%w: token refresh failed: %w", ErrUnauthorized, err)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Service: c.service, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		if status, msg := c.parseError(respBody); msg != "" {
			apiErr.Status = status
			apiErr.Message = msg
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
