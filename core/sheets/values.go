package sheets

import (
	"context"
	"fmt"
	"net/url"
)

// ValueRange is a rectangular block of cell values.
type ValueRange struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

// SheetProperties describes one worksheet of a spreadsheet.
type SheetProperties struct {
	SheetID int64  `json:"sheetId"`
	Title   string `json:"title"`
	Index   int    `json:"index"`
}

type spreadsheet struct {
	Sheets []struct {
		Properties SheetProperties `json:"properties"`
	} `json:"sheets"`
}

type batchValuesRequest struct {
	ValueInputOption string       `json:"valueInputOption"`
	Data             []ValueRange `json:"data"`
}

type appendResponse struct {
	Updates struct {
		UpdatedRange string `json:"updatedRange"`
		UpdatedRows  int    `json:"updatedRows"`
	} `json:"updates"`
}

// DimensionRange addresses rows [StartIndex, EndIndex) of a worksheet, 0-based.
type DimensionRange struct {
	SheetID    int64  `json:"sheetId"`
	Dimension  string `json:"dimension"`
	StartIndex int    `json:"startIndex"`
	EndIndex   int    `json:"endIndex"`
}

type batchUpdateRequest struct {
	Requests []map[string]any `json:"requests"`
}

func valuesPath(spreadsheetID, a1 string) string {
	return fmt.Sprintf("/spreadsheets/%s/values/%s", url.PathEscape(spreadsheetID), url.PathEscape(a1))
}

// GetValues reads a range as unformatted values, row by row.
// Trailing empty rows and cells are omitted by the API.
func (c *Client) GetValues(ctx context.Context, spreadsheetID, a1 string) ([][]any, error) {
	q := url.Values{}
	q.Set("majorDimension", "ROWS")
	q.Set("valueRenderOption", "UNFORMATTED_VALUE")
	q.Set("dateTimeRenderOption", "FORMATTED_STRING")

	var vr ValueRange
	if err := c.doRequest(ctx, "GET", valuesPath(spreadsheetID, a1)+"?"+q.Encode(), nil, &vr); err != nil {
		return nil, fmt.Errorf("get values %s: %w", a1, err)
	}
	return vr.Values, nil
}

// UpdateValues overwrites a range starting at its top-left cell.
func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, a1 string, values [][]any) error {
	body := ValueRange{Range: a1, MajorDimension: "ROWS", Values: values}
	path := valuesPath(spreadsheetID, a1) + "?valueInputOption=RAW"
	if err := c.doRequest(ctx, "PUT", path, body, nil); err != nil {
		return fmt.Errorf("update values %s: %w", a1, err)
	}
	return nil
}

// BatchUpdateValues writes several ranges in one request.
func (c *Client) BatchUpdateValues(ctx context.Context, spreadsheetID string, data []ValueRange) error {
	if len(data) == 0 {
		return nil
	}
	body := batchValuesRequest{ValueInputOption: "RAW", Data: data}
	path := fmt.Sprintf("/spreadsheets/%s/values:batchUpdate", url.PathEscape(spreadsheetID))
	if err := c.doRequest(ctx, "POST", path, body, nil); err != nil {
		return fmt.Errorf("batch update %d ranges: %w", len(data), err)
	}
	return nil
}

// AppendValues inserts rows after the last row of the table found in a1.
// It returns the range actually written.
func (c *Client) AppendValues(ctx context.Context, spreadsheetID, a1 string, values [][]any) (string, error) {
	q := url.Values{}
	q.Set("valueInputOption", "RAW")
	q.Set("insertDataOption", "INSERT_ROWS")

	body := ValueRange{Range: a1, MajorDimension: "ROWS", Values: values}
	var resp appendResponse
	path := valuesPath(spreadsheetID, a1) + ":append?" + q.Encode()
	if err := c.doRequest(ctx, "POST", path, body, &resp); err != nil {
		return "", fmt.Errorf("append %d rows to %s: %w", len(values), a1, err)
	}
	return resp.Updates.UpdatedRange, nil
}

// ClearValues empties a range, keeping formatting.
func (c *Client) ClearValues(ctx context.Context, spreadsheetID, a1 string) error {
	if err := c.doRequest(ctx, "POST", valuesPath(spreadsheetID, a1)+":clear", struct{}{}, nil); err != nil {
		return fmt.Errorf("clear %s: %w", a1, err)
	}
	return nil
}

// Sheets lists the worksheets of a spreadsheet.
func (c *Client) Sheets(ctx context.Context, spreadsheetID string) ([]SheetProperties, error) {
	var doc spreadsheet
	path := fmt.Sprintf("/spreadsheets/%s?fields=sheets.properties", url.PathEscape(spreadsheetID))
	if err := c.doRequest(ctx, "GET", path, nil, &doc); err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}
	props := make([]SheetProperties, len(doc.Sheets))
	for i, s := range doc.Sheets {
		props[i] = s.Properties
	}
	return props, nil
}

// SheetID resolves a worksheet title to its numeric id.
func (c *Client) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	props, err := c.Sheets(ctx, spreadsheetID)
	if err != nil {
		return 0, err
	}
	for _, p := range props {
		if p.Title == title {
			return p.SheetID, nil
		}
	}
	return 0, fmt.Errorf("worksheet %q of %s: %w", title, spreadsheetID, ErrNotFound)
}

// DeleteDimensions removes row ranges in one batchUpdate. Ranges are applied in the
// given order, so callers delete bottom-up to keep indexes stable.
func (c *Client) DeleteDimensions(ctx context.Context, spreadsheetID string, ranges []DimensionRange) error {
	if len(ranges) == 0 {
		return nil
	}
	body := batchUpdateRequest{Requests: make([]map[string]any, len(ranges))}
	for i, r := range ranges {
		body.Requests[i] = map[string]any{"deleteDimension": map[string]any{"range": r}}
	}
	path := fmt.Sprintf("/spreadsheets/%s:batchUpdate", url.PathEscape(spreadsheetID))
	if err := c.doRequest(ctx, "POST", path, body, nil); err != nil {
		return fmt.Errorf("delete %d row ranges: %w", len(ranges), err)
	}
	return nil
}
