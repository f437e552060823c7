package reconcile

import (
	"context"
	"fmt"
	"slices"
)

// memTable is an in-memory Table, Target and KeyWriter used by the tests.
type memTable struct {
	name   string
	schema Schema
	rows   []Row
	key    KeyFunc

	// linkPrefix makes inserted rows receive a system link (the generated key).
	linkPrefix string
	// revealDelay hides inserted rows until that many further Rows calls happened.
	revealDelay int
	// reverseReveal reveals hidden rows in reverse insert order.
	reverseReveal bool
	// returnIDs makes InsertRows report the ids of the new rows.
	returnIDs bool
	// returnKeys makes InsertRows report the generated keys synchronously.
	returnKeys bool

	schemaErr error
	rowsErr   error
	insertErr error
	deleteErr error
	writeErr  error

	// insertLimit and deleteLimit make a failing write apply that many records first.
	insertLimit int
	deleteLimit int

	reads    int
	nextID   int
	hidden   []hiddenRow
	deleted  []string
	inserted [][]Cell
	updates  []updateCall
	written  []KeyAssignment
}

type hiddenRow struct {
	row      Row
	revealAt int
}

type updateCall struct {
	ID    string
	Cells []Cell
}

func (m *memTable) Name() string { return m.name }

func (m *memTable) Schema(ctx context.Context) (Schema, error) {
	if m.schemaErr != nil {
		return Schema{}, m.schemaErr
	}
	return m.schema, nil
}

func (m *memTable) Rows(ctx context.Context) ([]Row, error) {
	m.reads++
	if m.rowsErr != nil {
		return nil, m.rowsErr
	}

	var still []hiddenRow
	var revealed []Row
	for _, h := range m.hidden {
		if m.reads >= h.revealAt {
			revealed = append(revealed, h.row)
		} else {
			still = append(still, h)
		}
	}
	if m.reverseReveal {
		slices.Reverse(revealed)
	}
	m.rows = append(m.rows, revealed...)
	m.hidden = still

	out := make([]Row, len(m.rows))
	for i, row := range m.rows {
		row.Pos = i
		out[i] = row
	}
	return out, nil
}

func (m *memTable) Key(row Row) string { return m.key(row) }

func (m *memTable) DeleteRows(ctx context.Context, rows []Row) error {
	if m.deleteErr != nil && m.deleteLimit == 0 {
		return m.deleteErr
	}
	for i, r := range rows {
		if m.deleteErr != nil && i == m.deleteLimit {
			return &PartialWriteError{Applied: i, Err: m.deleteErr}
		}
		m.deleted = append(m.deleted, r.ID)
		m.rows = slices.DeleteFunc(m.rows, func(x Row) bool { return x.ID == r.ID })
	}
	return nil
}

func (m *memTable) InsertRows(ctx context.Context, records [][]Cell) (InsertResult, error) {
	if m.insertErr != nil && m.insertLimit == 0 {
		return InsertResult{}, m.insertErr
	}
	var result InsertResult
	for i, rec := range records {
		if m.insertErr != nil && i == m.insertLimit {
			return result, &PartialWriteError{Applied: i, Err: m.insertErr}
		}
		m.inserted = append(m.inserted, rec)
		m.nextID++
		row := Row{ID: fmt.Sprintf("i-%d", m.nextID), Cells: map[string]any{}}
		if m.linkPrefix != "" {
			row.Link = fmt.Sprintf("%s%d", m.linkPrefix, m.nextID)
		}
		for _, c := range rec {
			row.Cells[c.Column.Name] = c.Value
		}
		if m.returnIDs {
			result.IDs = append(result.IDs, row.ID)
		}
		if m.returnKeys {
			result.Keys = append(result.Keys, m.key(row))
		}
		if m.revealDelay > 0 {
			m.hidden = append(m.hidden, hiddenRow{row: row, revealAt: m.reads + m.revealDelay})
		} else {
			m.rows = append(m.rows, row)
		}
	}
	return result, nil
}

func (m *memTable) UpdateRow(ctx context.Context, row Row, cells []Cell) error {
	m.updates = append(m.updates, updateCall{ID: row.ID, Cells: cells})
	for i := range m.rows {
		if m.rows[i].ID == row.ID {
			for _, c := range cells {
				m.rows[i].Cells[c.Column.Name] = c.Value
			}
		}
	}
	return nil
}

func (m *memTable) CheckWritable(ctx context.Context) error {
	return m.writeErr
}

func (m *memTable) WriteKeys(ctx context.Context, assignments []KeyAssignment) error {
	m.written = append(m.written, assignments...)
	for _, a := range assignments {
		m.rows[a.Row.Pos].Cells[m.schema.KeyColumn] = a.Key
	}
	return nil
}

// plainTable exposes only the Table methods of a memTable.
type plainTable struct {
	m *memTable
}

func (p plainTable) Name() string                               { return p.m.Name() }
func (p plainTable) Schema(ctx context.Context) (Schema, error) { return p.m.Schema(ctx) }
func (p plainTable) Rows(ctx context.Context) ([]Row, error)    { return p.m.Rows(ctx) }
func (p plainTable) Key(row Row) string                         { return p.m.Key(row) }

func cols(names ...string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column{ID: "c-" + n, Name: n}
	}
	return out
}
