package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign_CommonColumnsInTargetOrder(t *testing.T) {
	source := Schema{Table: "sheet", Columns: cols("Name", "Qty", "Price", "Row URL"), KeyColumn: "Row URL"}
	target := Schema{Table: "doc", Columns: cols("Price", "Notes", "Name")}

	a, err := Align(source, target)
	require.NoError(t, err)

	assert.Equal(t, []string{"Price", "Name"}, a.CommonNames())
	assert.Equal(t, []int{2, Absent, 0}, a.Correspondence)
}

func TestAlign_CaseSensitive(t *testing.T) {
	source := Schema{Table: "s", Columns: cols("name")}
	target := Schema{Table: "t", Columns: cols("Name")}

	a, err := Align(source, target)
	require.NoError(t, err)
	assert.Empty(t, a.Common)
}

func TestAlign_KeyColumnErrors(t *testing.T) {
	tests := []struct {
		name   string
		source Schema
		target Schema
	}{
		{
			name:   "Source key column missing",
			source: Schema{Table: "s", Columns: cols("Name"), KeyColumn: "Row URL"},
			target: Schema{Table: "t", Columns: cols("Name")},
		},
		{
			name:   "Target key column missing",
			source: Schema{Table: "s", Columns: cols("Name")},
			target: Schema{Table: "t", Columns: cols("Name"), KeyColumn: "Source Row URL"},
		},
		{
			name:   "Source key column collides with target data column",
			source: Schema{Table: "s", Columns: cols("Name", "Row URL"), KeyColumn: "Row URL"},
			target: Schema{Table: "t", Columns: cols("Name", "Row URL")},
		},
		{
			name:   "Target key column collides with source data column",
			source: Schema{Table: "s", Columns: cols("Name", "Source Row URL")},
			target: Schema{Table: "t", Columns: cols("Name", "Source Row URL"), KeyColumn: "Source Row URL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Align(tt.source, tt.target)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestValidateProtectColumn(t *testing.T) {
	source := Schema{Table: "s", Columns: cols("Name")}
	target := Schema{Table: "t", Columns: cols("Name", "Do not delete")}
	a, err := Align(source, target)
	require.NoError(t, err)

	assert.NoError(t, ValidateProtectColumn(a, ""))
	assert.NoError(t, ValidateProtectColumn(a, "Do not delete"))
	assert.ErrorIs(t, ValidateProtectColumn(a, "Keep"), ErrConfiguration)

	withSource := Schema{Table: "s", Columns: cols("Name", "Do not delete")}
	a, err = Align(withSource, target)
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateProtectColumn(a, "Do not delete"), ErrConfiguration)
}

func TestAlignment_Project(t *testing.T) {
	source := Schema{Table: "doc", Columns: cols("Name", "Extra")}
	target := Schema{Table: "sheet", Columns: cols("Name", "Local", "Source Row URL"), KeyColumn: "Source Row URL"}
	a, err := Align(source, target)
	require.NoError(t, err)

	row := Row{Link: "https://doc/r1", Cells: map[string]any{"Name": "A", "Extra": "dropped"}}
	cells := a.Project(row, "https://doc/r1")

	require.Len(t, cells, 3)
	assert.Equal(t, "A", cells[0].Value)
	assert.Nil(t, cells[1].Value, "target-only column is emitted empty")
	assert.Equal(t, "https://doc/r1", cells[2].Value)
	for _, c := range cells {
		assert.NotEqual(t, "Extra", c.Column.Name, "source-only column is dropped")
	}
}

func TestAlignment_CellsInSchemaOrder(t *testing.T) {
	a, err := Align(Schema{Columns: cols("A", "B", "C")}, Schema{Columns: cols("C", "B", "A")})
	require.NoError(t, err)

	cells := a.Cells(map[string]any{"A": 1, "C": 3})
	require.Len(t, cells, 2)
	assert.Equal(t, "C", cells[0].Column.Name)
	assert.Equal(t, "c-C", cells[0].Column.ID)
	assert.Equal(t, "A", cells[1].Column.Name)
}
