package coda

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"table-sync/core/reconcile"
)

// TableInfo is the table resource.
type TableInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BrowserLink string `json:"browserLink"`
	RowCount    int    `json:"rowCount"`
}

// ColumnInfo is the column resource.
type ColumnInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Calculated bool   `json:"calculated"`
}

// RowItem is the row resource as returned by list calls with column names as keys.
type RowItem struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Index       int            `json:"index"`
	BrowserLink string         `json:"browserLink"`
	Values      map[string]any `json:"values"`
}

// CellEdit addresses one cell of a row write by column id or name.
type CellEdit struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// RowEdit is one row of an insert or update.
type RowEdit struct {
	Cells []CellEdit `json:"cells"`
}

type columnsPage struct {
	Items         []ColumnInfo `json:"items"`
	NextPageToken string       `json:"nextPageToken"`
}

type rowsPage struct {
	Items         []RowItem `json:"items"`
	NextPageToken string    `json:"nextPageToken"`
}

type upsertRequest struct {
	Rows       []RowEdit `json:"rows"`
	KeyColumns []string  `json:"keyColumns,omitempty"`
}

type upsertResponse struct {
	RequestID   string   `json:"requestId"`
	AddedRowIDs []string `json:"addedRowIds"`
}

type updateRequest struct {
	Row RowEdit `json:"row"`
}

type deleteRequest struct {
	RowIDs []string `json:"rowIds"`
}

func tablePath(doc, table string) string {
	return fmt.Sprintf("/docs/%s/tables/%s", url.PathEscape(doc), url.PathEscape(table))
}

// GetTable returns the table resource.
func (c *Client) GetTable(ctx context.Context, doc, table string) (*TableInfo, error) {
	var info TableInfo
	if err := c.doRequest(ctx, "GET", tablePath(doc, table), nil, &info); err != nil {
		return nil, fmt.Errorf("get table %s/%s: %w", doc, table, err)
	}
	return &info, nil
}

// ListColumns returns every column of the table in display order.
func (c *Client) ListColumns(ctx context.Context, doc, table string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page columnsPage
		if err := c.doRequest(ctx, "GET", tablePath(doc, table)+"/columns?"+q.Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("list columns of %s/%s: %w", doc, table, err)
		}
		columns = append(columns, page.Items...)
		if page.NextPageToken == "" {
			return columns, nil
		}
		pageToken = page.NextPageToken
	}
}

// ListRows returns one page of rows in natural table order.
func (c *Client) ListRows(ctx context.Context, doc, table, pageToken string) ([]RowItem, string, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("useColumnNames", "true")
	q.Set("valueFormat", "simpleWithArrays")
	q.Set("sortBy", "natural")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var page rowsPage
	if err := c.doRequest(ctx, "GET", tablePath(doc, table)+"/rows?"+q.Encode(), nil, &page); err != nil {
		return nil, "", fmt.Errorf("list rows of %s/%s: %w", doc, table, err)
	}
	return page.Items, page.NextPageToken, nil
}

// AllRows follows page tokens until the full row set is read.
func (c *Client) AllRows(ctx context.Context, doc, table string) ([]RowItem, error) {
	var rows []RowItem
	pageToken := ""
	for {
		items, next, err := c.ListRows(ctx, doc, table, pageToken)
		if err != nil {
			return nil, err
		}
		rows = append(rows, items...)
		if next == "" {
			return rows, nil
		}
		pageToken = next
	}
}

// UpsertRows inserts rows, or updates rows matching keyColumns when given.
// Batches larger than the configured batch size are split. The ids of added rows are
// returned in request order. When a later batch fails, the error is a
// *reconcile.PartialWriteError counting the rows of the batches already sent.
func (c *Client) UpsertRows(ctx context.Context, doc, table string, rows []RowEdit, keyColumns []string) ([]string, error) {
	var added []string
	for start := 0; start < len(rows); start += c.batchSize {
		end := min(start+c.batchSize, len(rows))

		var resp upsertResponse
		req := upsertRequest{Rows: rows[start:end], KeyColumns: keyColumns}
		if err := c.doRequest(ctx, "POST", tablePath(doc, table)+"/rows", req, &resp); err != nil {
			return added, partial(start, fmt.Errorf("upsert rows %d-%d into %s/%s: %w", start, end, doc, table, err))
		}
		added = append(added, resp.AddedRowIDs...)
	}
	return added, nil
}

// UpdateRow overwrites the given cells of one row.
func (c *Client) UpdateRow(ctx context.Context, doc, table, rowID string, row RowEdit) error {
	path := tablePath(doc, table) + "/rows/" + url.PathEscape(rowID)
	if err := c.doRequest(ctx, "PUT", path, updateRequest{Row: row}, nil); err != nil {
		return fmt.Errorf("update row %s in %s/%s: %w", rowID, doc, table, err)
	}
	return nil
}

// DeleteRows removes rows by id, in batches. A failure after the first batch is a
// *reconcile.PartialWriteError.
func (c *Client) DeleteRows(ctx context.Context, doc, table string, rowIDs []string) error {
	for start := 0; start < len(rowIDs); start += c.batchSize {
		end := min(start+c.batchSize, len(rowIDs))
		req := deleteRequest{RowIDs: rowIDs[start:end]}
		if err := c.doRequest(ctx, "DELETE", tablePath(doc, table)+"/rows", req, nil); err != nil {
			return partial(start, fmt.Errorf("delete rows %d-%d from %s/%s: %w", start, end, doc, table, err))
		}
	}
	return nil
}

func partial(applied int, err error) error {
	if applied == 0 {
		return err
	}
	return &reconcile.PartialWriteError{Applied: applied, Err: err}
}
