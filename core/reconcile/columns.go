package reconcile

import "fmt"

// Absent marks a target column with no source counterpart.
const Absent = -1

// Alignment is the column correspondence between a source and a target schema.
type Alignment struct {
	Source Schema
	Target Schema

	// Common lists the columns present in both schemas, in target order.
	// Key columns never appear here.
	Common []Column

	// Correspondence maps each target position to the source position holding the
	// same column name, or Absent.
	Correspondence []int
}

// Align matches two schemas by exact, case-sensitive column name.
//
// It fails with ErrConfiguration when a declared key column is missing from its own
// schema, or when the key column of one side also exists as a data column on the other.
func Align(source, target Schema) (*Alignment, error) {
	if err := checkKeyColumn(source, target); err != nil {
		return nil, err
	}
	if err := checkKeyColumn(target, source); err != nil {
		return nil, err
	}

	sourcePos := make(map[string]int, len(source.Columns))
	for i, col := range source.Columns {
		if _, seen := sourcePos[col.Name]; !seen {
			sourcePos[col.Name] = i
		}
	}

	a := &Alignment{
		Source:         source,
		Target:         target,
		Correspondence: make([]int, len(target.Columns)),
	}
	for i, col := range target.Columns {
		a.Correspondence[i] = Absent
		if col.Name == target.KeyColumn {
			continue
		}
		j, ok := sourcePos[col.Name]
		if !ok || source.Columns[j].Name == source.KeyColumn {
			continue
		}
		a.Correspondence[i] = j
		a.Common = append(a.Common, col)
	}
	return a, nil
}

func checkKeyColumn(owner, other Schema) error {
	if owner.KeyColumn == "" {
		return nil
	}
	if !owner.Has(owner.KeyColumn) {
		return fmt.Errorf("%w: key column %q not found in %s", ErrConfiguration, owner.KeyColumn, owner.Table)
	}
	if other.Has(owner.KeyColumn) {
		return fmt.Errorf("%w: key column %q of %s collides with a data column of %s",
			ErrConfiguration, owner.KeyColumn, owner.Table, other.Table)
	}
	return nil
}

// ValidateProtectColumn checks the optional delete-protection column: it must exist in
// the target and must not exist in the source, where it would be synced as data.
func ValidateProtectColumn(a *Alignment, name string) error {
	if name == "" {
		return nil
	}
	if !a.Target.Has(name) {
		return fmt.Errorf("%w: protect column %q not found in %s", ErrConfiguration, name, a.Target.Table)
	}
	if a.Source.Has(name) {
		return fmt.Errorf("%w: protect column %q must not exist in %s", ErrConfiguration, name, a.Source.Table)
	}
	return nil
}

// CommonNames returns the names of the common columns.
func (a *Alignment) CommonNames() []string {
	names := make([]string, len(a.Common))
	for i, col := range a.Common {
		names[i] = col.Name
	}
	return names
}

// Project maps a source row onto the target schema for an insert.
// Target-only columns get a nil value; the target key column receives key.
func (a *Alignment) Project(row Row, key string) []Cell {
	cells := make([]Cell, len(a.Target.Columns))
	for i, col := range a.Target.Columns {
		cells[i] = Cell{Column: col}
		switch {
		case col.Name == a.Target.KeyColumn:
			cells[i].Value = key
		case a.Correspondence[i] != Absent:
			cells[i].Value = row.Cells[a.Source.Columns[a.Correspondence[i]].Name]
		}
	}
	return cells
}

// Cells resolves changed values, keyed by target column name, into target cells in
// schema order.
func (a *Alignment) Cells(changed map[string]any) []Cell {
	cells := make([]Cell, 0, len(changed))
	for _, col := range a.Target.Columns {
		if v, ok := changed[col.Name]; ok {
			cells = append(cells, Cell{Column: col, Value: v})
		}
	}
	return cells
}
