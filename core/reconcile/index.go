package reconcile

import (
	"strings"

	"table-sync/core/utils"
)

// Index builds a join key → row lookup.
// Rows with an empty key are skipped. On duplicate keys the last row wins.
func Index(rows []Row, key KeyFunc) map[string]Row {
	index := make(map[string]Row, len(rows))
	for _, row := range rows {
		k := key(row)
		if k == "" {
			continue
		}
		index[k] = row
	}
	return index
}

// Keys returns the set of non-empty join keys of rows.
func Keys(rows []Row, key KeyFunc) map[string]struct{} {
	set := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if k := key(row); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// ByLink uses the system-issued row link as join key.
func ByLink(row Row) string {
	return strings.TrimSpace(row.Link)
}

// ByColumn uses the value of the named cell as join key.
func ByColumn(name string) KeyFunc {
	return func(row Row) string {
		v, ok := row.Cells[name]
		if !ok || v == nil {
			return ""
		}
		return strings.TrimSpace(utils.ToString(v))
	}
}
