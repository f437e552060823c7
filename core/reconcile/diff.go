package reconcile

import "table-sync/core/utils"

// DiffOptions configures a diff.
type DiffOptions struct {
	// SourceKey and TargetKey extract the join key of each side.
	SourceKey KeyFunc
	TargetKey KeyFunc

	// ProtectColumn optionally names a target column whose truthy value keeps a row
	// from being deleted.
	ProtectColumn string

	// Normalize optionally maps source values to the shape the target stores.
	Normalize func(any) any
}

// Diff classifies source and target rows.
//
//   - ToInsert: source rows with an empty key or a key absent from the target.
//   - ToDelete: target rows whose key is absent from the source, unless protected.
//     Target rows with an empty key are never matched and never deleted.
//   - ToUpdate: matched pairs whose common cells differ; only changed cells are kept.
//     A nil source value never overwrites a target value.
func Diff(source, target []Row, a *Alignment, opts DiffOptions) *DiffResult {
	result := &DiffResult{}

	targetIndex := Index(target, opts.TargetKey)
	sourceIndex := Index(source, opts.SourceKey)

	for _, row := range source {
		key := opts.SourceKey(row)
		if _, found := targetIndex[key]; key == "" || !found {
			result.ToInsert = append(result.ToInsert, row)
		}
	}

	for _, row := range target {
		key := opts.TargetKey(row)
		if key == "" {
			continue
		}

		src, found := sourceIndex[key]
		if !found {
			if isProtected(row, opts.ProtectColumn) {
				result.Protected++
				continue
			}
			result.ToDelete = append(result.ToDelete, row)
			continue
		}

		if changed := changedCells(src, row, a, opts.Normalize); len(changed) > 0 {
			result.ToUpdate = append(result.ToUpdate, RowUpdate{
				Key:     key,
				Target:  row,
				Changed: changed,
			})
		}
	}

	return result
}

// FullRewrite builds the degraded diff used when incremental tracking is unavailable:
// every unprotected target row is deleted and every source row is inserted again.
// Source rows whose key matches a kept (protected) target row are not reinserted.
func FullRewrite(source, target []Row, opts DiffOptions) *DiffResult {
	result := &DiffResult{}

	kept := make(map[string]struct{})
	for _, row := range target {
		if isProtected(row, opts.ProtectColumn) {
			result.Protected++
			if key := opts.TargetKey(row); key != "" {
				kept[key] = struct{}{}
			}
			continue
		}
		result.ToDelete = append(result.ToDelete, row)
	}

	for _, row := range source {
		if key := opts.SourceKey(row); key != "" {
			if _, ok := kept[key]; ok {
				continue
			}
		}
		result.ToInsert = append(result.ToInsert, row)
	}

	return result
}

func isProtected(row Row, column string) bool {
	if column == "" {
		return false
	}
	return utils.ToBool(row.Cells[column])
}

// changedCells compares the common columns of a matched pair.
func changedCells(src, dst Row, a *Alignment, normalize func(any) any) map[string]any {
	var changed map[string]any
	for i, col := range a.Target.Columns {
		j := a.Correspondence[i]
		if j == Absent {
			continue
		}
		sv := src.Cells[a.Source.Columns[j].Name]
		if sv == nil {
			continue
		}
		if normalize != nil {
			sv = normalize(sv)
		}
		if Equal(sv, dst.Cells[col.Name]) {
			continue
		}
		if changed == nil {
			changed = make(map[string]any)
		}
		changed[col.Name] = sv
	}
	return changed
}
