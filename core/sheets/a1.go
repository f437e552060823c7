package sheets

import (
	"fmt"
	"strings"
)

// ColumnLetter converts a 0-based column index to its A1 letters (0 → A, 26 → AA).
func ColumnLetter(index int) string {
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// QuoteSheet quotes a worksheet title for use in an A1 range.
func QuoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// CellRef returns the A1 reference of a cell; row is 1-based, column 0-based.
func CellRef(title string, row, column int) string {
	return fmt.Sprintf("%s!%s%d", QuoteSheet(title), ColumnLetter(column), row)
}
