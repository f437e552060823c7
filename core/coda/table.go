package coda

import (
	"context"

	"table-sync/core/reconcile"
)

// Table adapts one Coda table to the reconcile interfaces.
//
// Rows are keyed by their browser link unless a key column is set, in which case the
// key is read from that column and inserts upsert on it.
type Table struct {
	client    *Client
	doc       string
	table     string
	keyColumn string
	target    bool

	columns []ColumnInfo
}

// NewTable creates a source adapter for doc/table.
func NewTable(client *Client, doc, table, keyColumn string) *Table {
	return &Table{client: client, doc: doc, table: table, keyColumn: keyColumn}
}

// NewTarget creates a target adapter for doc/table.
// Calculated columns are left out of its schema since they cannot be written.
func NewTarget(client *Client, doc, table, keyColumn string) *Table {
	t := NewTable(client, doc, table, keyColumn)
	t.target = true
	return t
}

// Name returns "doc/table".
func (t *Table) Name() string {
	return t.doc + "/" + t.table
}

// Schema lists the table columns.
func (t *Table) Schema(ctx context.Context) (reconcile.Schema, error) {
	columns, err := t.client.ListColumns(ctx, t.doc, t.table)
	if err != nil {
		return reconcile.Schema{}, err
	}
	t.columns = columns

	schema := reconcile.Schema{Table: t.Name(), KeyColumn: t.keyColumn}
	for _, col := range columns {
		if t.target && col.Calculated && col.Name != t.keyColumn {
			continue
		}
		schema.Columns = append(schema.Columns, reconcile.Column{ID: col.ID, Name: col.Name})
	}
	return schema, nil
}

// Rows reads every row, following pagination.
func (t *Table) Rows(ctx context.Context) ([]reconcile.Row, error) {
	items, err := t.client.AllRows(ctx, t.doc, t.table)
	if err != nil {
		return nil, err
	}

	rows := make([]reconcile.Row, len(items))
	for i, item := range items {
		cells := item.Values
		if cells == nil {
			cells = map[string]any{}
		}
		rows[i] = reconcile.Row{ID: item.ID, Link: item.BrowserLink, Pos: i, Cells: cells}
	}
	return rows, nil
}

// Key returns the join key of a row.
func (t *Table) Key(row reconcile.Row) string {
	if t.keyColumn != "" {
		return reconcile.ByColumn(t.keyColumn)(row)
	}
	return reconcile.ByLink(row)
}

// DeleteRows deletes rows by id.
func (t *Table) DeleteRows(ctx context.Context, rows []reconcile.Row) error {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.ID != "" {
			ids = append(ids, row.ID)
		}
	}
	return t.client.DeleteRows(ctx, t.doc, t.table, ids)
}

// InsertRows adds rows. Nil cells are omitted so column defaults apply.
// With a key column the keys are the values written to it and are returned directly.
func (t *Table) InsertRows(ctx context.Context, records [][]reconcile.Cell) (reconcile.InsertResult, error) {
	edits := make([]RowEdit, len(records))
	var keys []string
	for i, rec := range records {
		edits[i] = toRowEdit(rec, true)
		if t.keyColumn != "" {
			keys = append(keys, keyOf(rec, t.keyColumn))
		}
	}

	var keyColumns []string
	if t.keyColumn != "" {
		keyColumns = []string{t.columnID(t.keyColumn)}
	}

	ids, err := t.client.UpsertRows(ctx, t.doc, t.table, edits, keyColumns)
	if err != nil {
		result := reconcile.InsertResult{IDs: ids}
		if n := reconcile.Applied(err); n > 0 && len(keys) >= n {
			result.Keys = keys[:n]
		}
		return result, err
	}
	return reconcile.InsertResult{IDs: ids, Keys: keys}, nil
}

// UpdateRow writes the given cells to one row.
func (t *Table) UpdateRow(ctx context.Context, row reconcile.Row, cells []reconcile.Cell) error {
	return t.client.UpdateRow(ctx, t.doc, t.table, row.ID, toRowEdit(cells, false))
}

func (t *Table) columnID(name string) string {
	for _, col := range t.columns {
		if col.Name == name {
			return col.ID
		}
	}
	return name
}

func toRowEdit(cells []reconcile.Cell, skipNil bool) RowEdit {
	edit := RowEdit{Cells: make([]CellEdit, 0, len(cells))}
	for _, c := range cells {
		if skipNil && c.Value == nil {
			continue
		}
		column := c.Column.ID
		if column == "" {
			column = c.Column.Name
		}
		edit.Cells = append(edit.Cells, CellEdit{Column: column, Value: c.Value})
	}
	return edit
}

func keyOf(cells []reconcile.Cell, column string) string {
	for _, c := range cells {
		if c.Column.Name == column {
			if s, ok := c.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

var _ reconcile.Target = (*Table)(nil)
