package reconcile

import "context"

// Table defines read access to one table of an external service.
// Implementations hide pagination; Rows always returns the full snapshot.
type Table interface {
	// Name returns a human readable label (e.g. "doc/table" or "sheet!worksheet").
	Name() string

	// Schema returns the ordered column list and the key column, if any.
	Schema(ctx context.Context) (Schema, error)

	// Rows returns every data row of the table in the table's natural order.
	Rows(ctx context.Context) ([]Row, error)

	// Key extracts the join key of a row of this table.
	Key(row Row) string
}

// InsertResult carries what the target knows about rows right after an insert.
type InsertResult struct {
	// IDs holds the system row ids assigned to the inserted rows, in insert order.
	// Empty when the target does not return ids.
	IDs []string

	// Keys holds the join keys of the inserted rows, in insert order, when they are
	// known synchronously. Empty when the target assigns keys asynchronously.
	Keys []string
}

// Target defines write access to the table being mirrored into.
type Target interface {
	Table

	// DeleteRows removes the given rows of the last snapshot.
	DeleteRows(ctx context.Context, rows []Row) error

	// InsertRows creates rows. Each record is in target schema order.
	InsertRows(ctx context.Context, records [][]Cell) (InsertResult, error)

	// UpdateRow writes the given cells to an existing row of the last snapshot.
	UpdateRow(ctx context.Context, row Row, cells []Cell) error
}

// KeyAssignment pairs a source row with the join key generated for it by the target.
type KeyAssignment struct {
	Row Row
	Key string
}

// KeyWriter is implemented by sources that store the join key generated by the target.
type KeyWriter interface {
	// CheckWritable verifies write access to the key column.
	// It returns an error wrapping ErrPermissionDenied when writes are not allowed.
	CheckWritable(ctx context.Context) error

	// WriteKeys stores generated keys into the key column of the given source rows.
	WriteKeys(ctx context.Context, assignments []KeyAssignment) error
}

// ValueNormalizer is implemented by targets that store some source values in a
// different shape, such as a spreadsheet flattening lists to text. Source values are
// normalized before they are compared with target values.
type ValueNormalizer interface {
	Normalize(v any) any
}

// Archiver stores a copy of a table snapshot before the target is modified.
type Archiver interface {
	Archive(ctx context.Context, pipeline, table string, rows []Row) error
}
