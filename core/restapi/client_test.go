package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"table-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func messageParser(body []byte) (string, string) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", ""
	}
	return "", resp.Message
}

func newTestClient(t *testing.T, tokens oauth2.TokenSource, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Options{Service: "test", BaseURL: srv.URL + "/", Tokens: tokens, MaxRetries: 2, ParseError: messageParser})
	c.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestClient_Do(t *testing.T) {
	c := newTestClient(t, StaticToken("secret"), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "/items", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]string{"echo": body["name"]})
	})

	var out map[string]string
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/items", map[string]string{"name": "A"}, &out))
	assert.Equal(t, "A", out["echo"])
}

func TestClient_WithoutToken(t *testing.T) {
	assert.Nil(t, StaticToken(""))

	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/ping", nil, nil))
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"Unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"Forbidden", http.StatusForbidden, reconcile.ErrPermissionDenied},
		{"NotFound", http.StatusNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"message": "nope"})
			})

			err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)

			assert.ErrorIs(t, err, tt.target)
			assert.EqualError(t, err, fmt.Sprintf("test api error (%d): nope", tt.status))
		})
	}
}

func TestClient_UnauthorizedDoesNotDowngrade(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})

	err := c.Do(context.Background(), http.MethodPut, "/x", map[string]string{}, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, reconcile.ErrPermissionDenied)
}

func TestClient_RawErrorBody(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(" plain failure \n"))
	})

	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "plain failure", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestClient_Retries(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		status    int
		wantCalls int
	}{
		{"Read rate limited", http.MethodGet, http.StatusTooManyRequests, 3},
		{"Write rate limited", http.MethodPost, http.StatusTooManyRequests, 3},
		{"Read server error", http.MethodGet, http.StatusBadGateway, 3},
		{"Write server error", http.MethodPost, http.StatusBadGateway, 1},
		{"Client error", http.MethodGet, http.StatusBadRequest, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
				calls++
				writeJSON(w, tt.status, map[string]string{"message": "failed"})
			})

			var waits []time.Duration
			c.Sleep = func(ctx context.Context, d time.Duration) error {
				waits = append(waits, d)
				return nil
			}

			err := c.Do(context.Background(), tt.method, "/x", nil, nil)
			assert.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantCalls == 3 {
				assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
			}
		})
	}
}

func TestClient_RetryRecovers(t *testing.T) {
	calls := 0
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "slow down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"n": 7})
	})

	var out map[string]int
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/x", nil, &out))
	assert.Equal(t, 7, out["n"])
	assert.Equal(t, 2, calls)
}

func TestClient_TokenRefreshFailure(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
	}))
	t.Cleanup(tokenSrv.Close)

	cfg := &oauth2.Config{ClientID: "id", Endpoint: oauth2.Endpoint{TokenURL: tokenSrv.URL}}
	tokens := cfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: "revoked"})

	c := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request sent without a token")
	})

	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
