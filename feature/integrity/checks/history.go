package checks

import (
	"context"
	"fmt"
)

// HistoryTable is the inspected part of the run history store.
type HistoryTable interface {
	MissingColumns(ctx context.Context) ([]string, error)
}

// HistoryReport strictly types the result of a history schema check.
type HistoryReport struct {
	Table          string   `json:"table"`
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"` // "ok", "error"
}

// CheckHistory compares the run history table with the run model.
func CheckHistory(ctx context.Context, table HistoryTable, name string) (*HistoryReport, error) {
	missing, err := table.MissingColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", name, err)
	}

	report := &HistoryReport{Table: name, MissingColumns: []string{}, Status: "ok"}
	if len(missing) > 0 {
		report.MissingColumns = missing
		report.Status = "error"
	}
	return report, nil
}
