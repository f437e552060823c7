package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"table-sync/core/restapi"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope grants read and write access to spreadsheets.
const Scope = "https://www.googleapis.com/auth/spreadsheets"

// ErrNotFound is returned when a spreadsheet or worksheet does not exist.
var ErrNotFound = restapi.ErrNotFound

// Client is a minimal Google Sheets REST client.
type Client struct {
	api *restapi.Client
}

// NewClient creates a client from the configuration.
//
// A credentials file (service account key or authorized user) takes precedence over a
// fixed access token; its tokens are refreshed as they expire. ctx is used for token
// refreshes and must outlive the client's requests; its cancellation is ignored.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	tokens, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		api: restapi.New(restapi.Options{
			Service:    "sheets",
			BaseURL:    cfg.BaseURL,
			Tokens:     tokens,
			MaxRetries: cfg.MaxRetries,
			Backoff:    time.Second,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
			ParseError: parseError,
		}),
	}, nil
}

func tokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	if cfg.CredentialsFile == "" {
		return restapi.StaticToken(cfg.AccessToken), nil
	}
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(context.WithoutCancel(ctx), data, Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials from %s: %w", cfg.CredentialsFile, err)
	}
	return creds.TokenSource, nil
}

func parseError(body []byte) (string, string) {
	var resp struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", ""
	}
	return resp.Error.Status, resp.Error.Message
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	return c.api.Do(ctx, method, path, body, result)
}
