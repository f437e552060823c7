package reconcile

import "time"

// Column identifies one column of a table schema.
type Column struct {
	// ID is the identifier used when writing to the owning system.
	// Spreadsheets use the header text as ID.
	ID string `json:"id"`

	// Name is the display name. Columns are matched across tables by Name.
	Name string `json:"name"`
}

// Schema is the ordered column list of one table, observed at the start of a pass.
type Schema struct {
	// Table is a human readable table label used in logs and reports.
	Table string `json:"table"`

	// Columns is the ordered column list.
	Columns []Column `json:"columns"`

	// KeyColumn names the column holding the join key back-reference.
	// Empty when the join key is issued by the owning system (e.g. a row link).
	KeyColumn string `json:"key_column,omitempty"`
}

// Index returns the position of the column with the given name, or Absent.
func (s Schema) Index(name string) int {
	for i, col := range s.Columns {
		if col.Name == name {
			return i
		}
	}
	return Absent
}

// Has reports whether the schema contains a column with the given name.
func (s Schema) Has(name string) bool {
	return s.Index(name) != Absent
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Row is one row of a table snapshot.
type Row struct {
	// ID is the system-assigned row identifier (empty for spreadsheets).
	ID string `json:"id,omitempty"`

	// Link is the system-issued canonical link of the row, if any.
	Link string `json:"link,omitempty"`

	// Pos is the 0-based position of the row among the data rows of the snapshot.
	Pos int `json:"pos"`

	// Cells maps column name to the cell value as decoded by the client.
	Cells map[string]any `json:"cells"`
}

// Cell is a single value addressed to a target column.
type Cell struct {
	Column Column `json:"column"`
	Value  any    `json:"value"`
}

// KeyFunc extracts the join key from a row. An empty key means "not yet synced".
type KeyFunc func(Row) string

// RowUpdate describes the changed cells of one matched row pair.
type RowUpdate struct {
	// Key is the join key shared by both rows.
	Key string `json:"key"`

	// Target is the target row to update.
	Target Row `json:"target"`

	// Changed maps target column name to the new (source) value.
	// Only cells whose values differ are present.
	Changed map[string]any `json:"changed"`
}

// DiffResult holds the three disjoint row classifications of one pass.
type DiffResult struct {
	// ToInsert contains source rows that are absent from the target, in source order.
	ToInsert []Row `json:"to_insert"`

	// ToDelete contains target rows whose key is absent from the source, in target order.
	ToDelete []Row `json:"to_delete"`

	// ToUpdate contains matched pairs with at least one differing common cell.
	ToUpdate []RowUpdate `json:"to_update"`

	// Protected counts target rows kept only because of the delete-protection flag.
	Protected int `json:"protected"`
}

// IsEmpty reports whether the diff requires no writes.
func (d *DiffResult) IsEmpty() bool {
	return len(d.ToInsert) == 0 && len(d.ToDelete) == 0 && len(d.ToUpdate) == 0
}

// Mode describes how a pass reconciled the target.
type Mode string

const (
	// ModeIncremental diffs source and target and writes only the differences.
	ModeIncremental Mode = "incremental"
	// ModeFullRewrite deletes and recreates the target rows.
	ModeFullRewrite Mode = "full_rewrite"
	// ModeDryRun computes the diff without writing.
	ModeDryRun Mode = "dry_run"
	// ModeCopy overwrites the target range with the source range.
	ModeCopy Mode = "copy"
)

// Report summarises one pass for observability.
type Report struct {
	// Pipeline is the name of the pipeline that ran the pass.
	Pipeline string `json:"pipeline"`

	// Source and Target are the table labels.
	Source string `json:"source"`
	Target string `json:"target"`

	// Mode is the reconciliation mode actually used.
	Mode Mode `json:"mode"`

	// Columns lists the common columns that were synced.
	Columns []string `json:"columns"`

	// SourceRows and TargetRows are the snapshot sizes at pass start.
	SourceRows int `json:"source_rows"`
	TargetRows int `json:"target_rows"`

	// Counts reflect only operations actually issued.
	Inserted     int `json:"inserted"`
	Deleted      int `json:"deleted"`
	Updated      int `json:"updated"`
	CellsUpdated int `json:"cells_updated"`
	KeysWritten  int `json:"keys_written"`
	Protected    int `json:"protected"`

	// PropagationTimedOut is set when inserted rows did not all become visible in time.
	PropagationTimedOut bool `json:"propagation_timed_out"`

	// Warnings collects non-fatal problems.
	Warnings []string `json:"warnings"`

	// StartedAt and Duration time the pass.
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
