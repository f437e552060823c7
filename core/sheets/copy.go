package sheets

import (
	"context"
)

// RangeRef addresses a range of one spreadsheet.
type RangeRef struct {
	SpreadsheetID string
	Range         string
}

// CopyRange overwrites dst with the values of src: dst is cleared first, then the
// source block is written from the top-left cell of dst. It returns the number of
// rows copied.
func (c *Client) CopyRange(ctx context.Context, src, dst RangeRef) (int, error) {
	values, err := c.GetValues(ctx, src.SpreadsheetID, src.Range)
	if err != nil {
		return 0, err
	}
	if err := c.ClearValues(ctx, dst.SpreadsheetID, dst.Range); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	if err := c.UpdateValues(ctx, dst.SpreadsheetID, dst.Range, values); err != nil {
		return 0, err
	}
	return len(values), nil
}
