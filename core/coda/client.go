package coda

import (
	"context"
	"encoding/json"
	"time"

	"table-sync/core/restapi"
)

// ErrNotFound is returned when a doc, table or row does not exist.
var ErrNotFound = restapi.ErrNotFound

// Client is a minimal Coda REST client.
type Client struct {
	api       *restapi.Client
	pageSize  int
	batchSize int
}

// NewClient creates a client from the configuration.
func NewClient(cfg Config) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Client{
		api: restapi.New(restapi.Options{
			Service:    "coda",
			BaseURL:    cfg.BaseURL,
			Tokens:     restapi.StaticToken(cfg.APIToken),
			MaxRetries: cfg.MaxRetries,
			Backoff:    500 * time.Millisecond,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
			ParseError: parseError,
		}),
		pageSize:  pageSize,
		batchSize: batchSize,
	}
}

func parseError(body []byte) (string, string) {
	var resp struct {
		StatusMessage string `json:"statusMessage"`
		Message       string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", ""
	}
	return resp.StatusMessage, resp.Message
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	return c.api.Do(ctx, method, path, body, result)
}
