package coda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"table-sync/core/reconcile"
	"table-sync/core/restapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL, APIToken: "secret", PageSize: 2, BatchSize: 2, MaxRetries: 2})
	c.api.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_AllRowsFollowsPages(t *testing.T) {
	var tokens []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/docs/d1/tables/grid-1/rows", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("useColumnNames"))
		assert.Equal(t, "natural", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		token := r.URL.Query().Get("pageToken")
		tokens = append(tokens, token)
		if token == "" {
			writeJSON(w, 200, rowsPage{
				Items:         []RowItem{{ID: "i-1", BrowserLink: "l1"}, {ID: "i-2", BrowserLink: "l2"}},
				NextPageToken: "p2",
			})
			return
		}
		writeJSON(w, 200, rowsPage{Items: []RowItem{{ID: "i-3", BrowserLink: "l3"}}})
	})

	rows, err := c.AllRows(context.Background(), "d1", "grid-1")
	require.NoError(t, err)

	assert.Len(t, rows, 3)
	assert.Equal(t, []string{"", "p2"}, tokens)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"Forbidden", http.StatusForbidden, reconcile.ErrPermissionDenied},
		{"Unauthorized", http.StatusUnauthorized, restapi.ErrUnauthorized},
		{"NotFound", http.StatusNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"message": "nope"})
			})

			_, err := c.GetTable(context.Background(), "d1", "t1")

			assert.ErrorIs(t, err, tt.target)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestClient_RetriesRateLimit(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "slow down"})
			return
		}
		writeJSON(w, 200, TableInfo{ID: "grid-1", Name: "Items"})
	})

	info, err := c.GetTable(context.Background(), "d1", "Items")
	require.NoError(t, err)

	assert.Equal(t, "grid-1", info.ID)
	assert.Equal(t, 3, calls)
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": "bad gateway"})
	})

	_, err := c.GetTable(context.Background(), "d1", "Items")

	var apiErr *restapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestClient_DoesNotRetryFailedWrites(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "oops"})
	})

	err := c.UpdateRow(context.Background(), "d1", "Items", "i-1", RowEdit{})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_UpsertRowsBatches(t *testing.T) {
	var batches []upsertRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		var req upsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batches = append(batches, req)

		ids := make([]string, len(req.Rows))
		for i := range req.Rows {
			ids[i] = "i-" + req.Rows[i].Cells[0].Value.(string)
		}
		writeJSON(w, http.StatusAccepted, upsertResponse{RequestID: "m1", AddedRowIDs: ids})
	})

	rows := []RowEdit{
		{Cells: []CellEdit{{Column: "c-1", Value: "a"}}},
		{Cells: []CellEdit{{Column: "c-1", Value: "b"}}},
		{Cells: []CellEdit{{Column: "c-1", Value: "c"}}},
	}
	ids, err := c.UpsertRows(context.Background(), "d1", "t1", rows, []string{"c-key"})
	require.NoError(t, err)

	assert.Equal(t, []string{"i-a", "i-b", "i-c"}, ids)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0].Rows, 2)
	assert.Len(t, batches[1].Rows, 1)
	assert.Equal(t, []string{"c-key"}, batches[1].KeyColumns)
}

func TestClient_UpsertRowsReportsAppliedBatches(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "row limit reached"})
			return
		}
		writeJSON(w, http.StatusAccepted, upsertResponse{RequestID: "m1", AddedRowIDs: []string{"i-1", "i-2"}})
	})

	rows := []RowEdit{{}, {}, {}}
	ids, err := c.UpsertRows(context.Background(), "d1", "t1", rows, nil)

	require.Error(t, err)
	assert.Equal(t, []string{"i-1", "i-2"}, ids)
	assert.Equal(t, 2, reconcile.Applied(err))
	assert.Contains(t, err.Error(), "row limit reached")
}

func TestClient_DeleteRowsFirstBatchFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad id"})
	})

	err := c.DeleteRows(context.Background(), "d1", "t1", []string{"i-1", "i-2", "i-3"})
	require.Error(t, err)
	assert.Zero(t, reconcile.Applied(err))
}

func TestClient_DeleteRows(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		var req deleteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req.RowIDs...)
		writeJSON(w, http.StatusAccepted, map[string]any{"requestId": "m1", "rowIds": req.RowIDs})
	})

	err := c.DeleteRows(context.Background(), "d1", "t1", []string{"i-1", "i-2", "i-3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i-1", "i-2", "i-3"}, got)
}
