package sheets

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"table-sync/core/reconcile"
	"table-sync/core/utils"
)

// Worksheet adapts one worksheet to the reconcile interfaces.
//
// Row 1 holds the column headers and data starts at row 2. Rows have no system id or
// link: the join key is read from the key column. A worksheet is a Table, a Target and
// a KeyWriter.
//
// Deletes shift the rows below them. Positions deleted since the last Rows call are
// remembered so later writes addressing the same snapshot land on the right row.
type Worksheet struct {
	client        *Client
	spreadsheetID string
	title         string
	keyColumn     string

	header  []string
	sheetID *int64
	deleted []int
}

// NewWorksheet creates an adapter for the worksheet title of a spreadsheet.
func NewWorksheet(client *Client, spreadsheetID, title, keyColumn string) *Worksheet {
	return &Worksheet{client: client, spreadsheetID: spreadsheetID, title: title, keyColumn: keyColumn}
}

// Name returns "spreadsheet!worksheet".
func (w *Worksheet) Name() string {
	return w.spreadsheetID + "!" + w.title
}

func (w *Worksheet) loadHeader(ctx context.Context) error {
	values, err := w.client.GetValues(ctx, w.spreadsheetID, QuoteSheet(w.title)+"!1:1")
	if err != nil {
		return err
	}
	var first []any
	if len(values) > 0 {
		first = values[0]
	}
	w.setHeader(first)
	return nil
}

func (w *Worksheet) setHeader(cells []any) {
	w.header = make([]string, len(cells))
	for i, c := range cells {
		w.header[i] = strings.TrimSpace(utils.ToString(c))
	}
}

func (w *Worksheet) columnIndex(name string) int {
	return slices.Index(w.header, name)
}

// Schema reads the header row. Blank headers are skipped; the first of duplicate
// headers wins.
func (w *Worksheet) Schema(ctx context.Context) (reconcile.Schema, error) {
	if err := w.loadHeader(ctx); err != nil {
		return reconcile.Schema{}, err
	}

	schema := reconcile.Schema{Table: w.Name(), KeyColumn: w.keyColumn}
	seen := make(map[string]bool, len(w.header))
	for _, name := range w.header {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		schema.Columns = append(schema.Columns, reconcile.Column{ID: name, Name: name})
	}
	return schema, nil
}

// Rows reads the whole worksheet. Blank rows are skipped but still count for Pos.
// Missing trailing cells read as the empty string, like blank cells.
func (w *Worksheet) Rows(ctx context.Context) ([]reconcile.Row, error) {
	values, err := w.client.GetValues(ctx, w.spreadsheetID, QuoteSheet(w.title))
	if err != nil {
		return nil, err
	}
	w.deleted = nil
	if len(values) == 0 {
		w.header = nil
		return nil, nil
	}
	w.setHeader(values[0])

	var rows []reconcile.Row
	for i, raw := range values[1:] {
		if blank(raw) {
			continue
		}
		cells := make(map[string]any, len(w.header))
		for j, name := range w.header {
			if name == "" {
				continue
			}
			if _, dup := cells[name]; dup {
				continue
			}
			var v any = ""
			if j < len(raw) {
				v = raw[j]
			}
			cells[name] = v
		}
		rows = append(rows, reconcile.Row{Pos: i, Cells: cells})
	}
	return rows, nil
}

func blank(raw []any) bool {
	for _, v := range raw {
		if utils.ToString(v) != "" {
			return false
		}
	}
	return true
}

// Key returns the trimmed key column value.
func (w *Worksheet) Key(row reconcile.Row) string {
	if w.keyColumn == "" {
		return ""
	}
	return reconcile.ByColumn(w.keyColumn)(row)
}

// rowNumber maps a snapshot position to its current 1-based sheet row.
func (w *Worksheet) rowNumber(pos int) int {
	shift := 0
	for _, d := range w.deleted {
		if d < pos {
			shift++
		}
	}
	return pos - shift + 2
}

func (w *Worksheet) resolveSheetID(ctx context.Context) (int64, error) {
	if w.sheetID != nil {
		return *w.sheetID, nil
	}
	id, err := w.client.SheetID(ctx, w.spreadsheetID, w.title)
	if err != nil {
		return 0, err
	}
	w.sheetID = &id
	return id, nil
}

// DeleteRows removes rows bottom-up in a single request.
func (w *Worksheet) DeleteRows(ctx context.Context, rows []reconcile.Row) error {
	if len(rows) == 0 {
		return nil
	}
	sheetID, err := w.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	positions := make([]int, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, row.Pos)
	}
	slices.Sort(positions)
	positions = slices.Compact(positions)
	slices.Reverse(positions)

	ranges := make([]DimensionRange, len(positions))
	for i, pos := range positions {
		index := w.rowNumber(pos) - 1
		ranges[i] = DimensionRange{SheetID: sheetID, Dimension: "ROWS", StartIndex: index, EndIndex: index + 1}
	}
	if err := w.client.DeleteDimensions(ctx, w.spreadsheetID, ranges); err != nil {
		return err
	}

	w.deleted = append(w.deleted, positions...)
	slices.Sort(w.deleted)
	return nil
}

// InsertRows appends rows below the existing data.
func (w *Worksheet) InsertRows(ctx context.Context, records [][]reconcile.Cell) (reconcile.InsertResult, error) {
	if len(records) == 0 {
		return reconcile.InsertResult{}, nil
	}
	values := make([][]any, len(records))
	for i, rec := range records {
		line := make([]any, len(w.header))
		for j := range line {
			line[j] = ""
		}
		for _, c := range rec {
			if j := w.columnIndex(c.Column.Name); j >= 0 {
				line[j] = w.encode(c.Value)
			}
		}
		values[i] = line
	}

	if _, err := w.client.AppendValues(ctx, w.spreadsheetID, QuoteSheet(w.title)+"!A1", values); err != nil {
		return reconcile.InsertResult{}, err
	}
	return reconcile.InsertResult{}, nil
}

// UpdateRow writes only the given cells.
func (w *Worksheet) UpdateRow(ctx context.Context, row reconcile.Row, cells []reconcile.Cell) error {
	number := w.rowNumber(row.Pos)
	data := make([]ValueRange, 0, len(cells))
	for _, c := range cells {
		j := w.columnIndex(c.Column.Name)
		if j < 0 {
			continue
		}
		data = append(data, ValueRange{
			Range:  CellRef(w.title, number, j),
			Values: [][]any{{w.encode(c.Value)}},
		})
	}
	return w.client.BatchUpdateValues(ctx, w.spreadsheetID, data)
}

// CheckWritable rewrites the key column header with its own value. A read-only
// worksheet fails with an error wrapping reconcile.ErrPermissionDenied.
func (w *Worksheet) CheckWritable(ctx context.Context) error {
	if w.keyColumn == "" {
		return nil
	}
	if err := w.loadHeader(ctx); err != nil {
		return err
	}
	j := w.columnIndex(w.keyColumn)
	if j < 0 {
		return nil
	}
	return w.client.UpdateValues(ctx, w.spreadsheetID, CellRef(w.title, 1, j), [][]any{{w.header[j]}})
}

// WriteKeys stores generated keys in the key column of the given rows.
func (w *Worksheet) WriteKeys(ctx context.Context, assignments []reconcile.KeyAssignment) error {
	j := w.columnIndex(w.keyColumn)
	if w.keyColumn == "" || j < 0 {
		return fmt.Errorf("%w: key column %q not found in %s", reconcile.ErrConfiguration, w.keyColumn, w.Name())
	}
	data := make([]ValueRange, len(assignments))
	for i, a := range assignments {
		data[i] = ValueRange{
			Range:  CellRef(w.title, w.rowNumber(a.Row.Pos), j),
			Values: [][]any{{a.Key}},
		}
	}
	return w.client.BatchUpdateValues(ctx, w.spreadsheetID, data)
}

// Normalize flattens list values to comma separated text, the way they are written.
func (w *Worksheet) Normalize(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = utils.ToString(item)
	}
	return strings.Join(parts, ", ")
}

func (w *Worksheet) encode(v any) any {
	if v == nil {
		return ""
	}
	return w.Normalize(v)
}

var (
	_ reconcile.Target          = (*Worksheet)(nil)
	_ reconcile.KeyWriter       = (*Worksheet)(nil)
	_ reconcile.ValueNormalizer = (*Worksheet)(nil)
)
