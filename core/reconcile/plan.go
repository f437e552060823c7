package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// applyDeletes removes ToDelete rows. It runs before inserts so a key deleted and
// recreated in the same pass cannot collide.
func (o *Orchestrator) applyDeletes(ctx context.Context, rows []Row, report *Report) error {
	if len(rows) == 0 {
		return nil
	}
	o.logger.Info("Deleting rows from target", zap.Int("count", len(rows)))
	if err := o.spec.Target.DeleteRows(ctx, rows); err != nil {
		report.Deleted += Applied(err)
		return fmt.Errorf("failed to delete %d rows from %s: %w", len(rows), o.spec.Target.Name(), err)
	}
	report.Deleted += len(rows)
	return nil
}

// applyInserts creates ToInsert rows in one batch, projected onto the target schema.
// When the target fails after accepting a prefix of the batch, that prefix is counted
// and returned in the result.
func (o *Orchestrator) applyInserts(ctx context.Context, a *Alignment, rows []Row, report *Report) (InsertResult, error) {
	if len(rows) == 0 {
		return InsertResult{}, nil
	}

	key := o.spec.Source.Key
	records := make([][]Cell, len(rows))
	for i, row := range rows {
		records[i] = a.Project(row, key(row))
	}

	o.logger.Info("Inserting rows into target", zap.Int("count", len(rows)))
	result, err := o.spec.Target.InsertRows(ctx, records)
	if err != nil {
		report.Inserted += Applied(err)
		return result, fmt.Errorf("failed to insert %d rows into %s: %w", len(rows), o.spec.Target.Name(), err)
	}
	report.Inserted += len(rows)
	return result, nil
}

// resolveKeys finds the join keys generated for inserted rows.
//
// Keys returned by the insert are used directly. Otherwise the target is polled until
// the inserted rows are visible; on timeout the rows visible so far are used and a
// warning is reported.
func (o *Orchestrator) resolveKeys(ctx context.Context, before, inserted []Row, result InsertResult, report *Report) []KeyAssignment {
	if len(result.Keys) == len(inserted) {
		assignments := make([]KeyAssignment, 0, len(inserted))
		for i, row := range inserted {
			if result.Keys[i] != "" {
				assignments = append(assignments, KeyAssignment{Row: row, Key: result.Keys[i]})
			}
		}
		return assignments
	}

	fresh, confirmed := o.confirmPropagation(ctx, Keys(before, o.spec.Target.Key), len(inserted), result.IDs)
	if !confirmed {
		msg := fmt.Sprintf("%v: %d of %d inserted rows visible in %s after %s",
			ErrPropagationTimeout, visibleCount(fresh, result.IDs), len(inserted), o.spec.Target.Name(), o.spec.PollTimeout)
		o.logger.Warn("Inserted rows did not fully propagate", zap.String("detail", msg))
		report.PropagationTimedOut = true
		report.warn(msg)
	}

	return matchInserted(inserted, result.IDs, fresh, o.spec.Target.Key)
}

// confirmPropagation re-reads the target until the new rows are visible.
// New rows are those whose key was not present at pass start, in snapshot order.
func (o *Orchestrator) confirmPropagation(ctx context.Context, known map[string]struct{}, want int, ids []string) ([]Row, bool) {
	deadline := o.now().Add(o.spec.PollTimeout)
	var fresh []Row

	for attempt := 1; ; attempt++ {
		rows, err := o.spec.Target.Rows(ctx)
		if err != nil {
			o.logger.Warn("Propagation check failed", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			fresh = newRows(rows, known, o.spec.Target.Key)
			if visible := visibleCount(fresh, ids); visible >= want {
				o.logger.Info("Inserted rows propagated", zap.Int("attempt", attempt), zap.Int("visible", visible))
				return fresh, true
			}
		}

		if !o.now().Add(o.spec.PollInterval).Before(deadline) {
			return fresh, false
		}
		if err := o.sleep(ctx, o.spec.PollInterval); err != nil {
			return fresh, false
		}
	}
}

func newRows(rows []Row, known map[string]struct{}, key KeyFunc) []Row {
	var fresh []Row
	for _, row := range rows {
		k := key(row)
		if k == "" {
			continue
		}
		if _, ok := known[k]; !ok {
			fresh = append(fresh, row)
		}
	}
	return fresh
}

// visibleCount counts fresh rows; when ids are known only rows with one of them count.
func visibleCount(fresh []Row, ids []string) int {
	if len(ids) == 0 {
		return len(fresh)
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	n := 0
	for _, row := range fresh {
		if _, ok := wanted[row.ID]; ok {
			n++
		}
	}
	return n
}

// matchInserted pairs inserted source rows with generated keys: by row id when the
// insert returned one id per row, else by position.
func matchInserted(inserted []Row, ids []string, fresh []Row, key KeyFunc) []KeyAssignment {
	var assignments []KeyAssignment

	if len(ids) == len(inserted) {
		byID := make(map[string]Row, len(fresh))
		for _, row := range fresh {
			byID[row.ID] = row
		}
		for i, src := range inserted {
			if dst, ok := byID[ids[i]]; ok {
				assignments = append(assignments, KeyAssignment{Row: src, Key: key(dst)})
			}
		}
		return assignments
	}

	n := min(len(inserted), len(fresh))
	for i := 0; i < n; i++ {
		assignments = append(assignments, KeyAssignment{Row: inserted[i], Key: key(fresh[i])})
	}
	return assignments
}

func (o *Orchestrator) writeBackKeys(ctx context.Context, w KeyWriter, assignments []KeyAssignment, report *Report) error {
	if len(assignments) == 0 {
		return nil
	}
	o.logger.Info("Writing generated keys back to source", zap.Int("count", len(assignments)))
	if err := w.WriteKeys(ctx, assignments); err != nil {
		return fmt.Errorf("failed to write %d keys to %s: %w", len(assignments), o.spec.Source.Name(), err)
	}
	report.KeysWritten += len(assignments)
	return nil
}

// applyUpdates writes only the changed cells of each matched row.
func (o *Orchestrator) applyUpdates(ctx context.Context, a *Alignment, updates []RowUpdate, report *Report) error {
	if len(updates) == 0 {
		return nil
	}
	o.logger.Info("Updating changed rows in target", zap.Int("count", len(updates)))
	for _, u := range updates {
		cells := a.Cells(u.Changed)
		if err := o.spec.Target.UpdateRow(ctx, u.Target, cells); err != nil {
			return fmt.Errorf("failed to update row %q in %s: %w", u.Key, o.spec.Target.Name(), err)
		}
		report.Updated++
		report.CellsUpdated += len(cells)
	}
	return nil
}
