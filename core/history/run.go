package history

import (
	"encoding/json"
	"time"

	"table-sync/core/reconcile"
)

// Run is one recorded sync pass.
type Run struct {
	ID                  string    `gorm:"primaryKey;size:36" json:"id"`
	Pipeline            string    `gorm:"size:128;index" json:"pipeline"`
	Mode                string    `gorm:"size:32" json:"mode"`
	Source              string    `gorm:"size:255" json:"source"`
	Target              string    `gorm:"size:255" json:"target"`
	SourceRows          int       `json:"source_rows"`
	TargetRows          int       `json:"target_rows"`
	Inserted            int       `json:"inserted"`
	Deleted             int       `json:"deleted"`
	Updated             int       `json:"updated"`
	CellsUpdated        int       `json:"cells_updated"`
	KeysWritten         int       `json:"keys_written"`
	Protected           int       `json:"protected"`
	PropagationTimedOut bool      `json:"propagation_timed_out"`
	Warnings            string    `gorm:"type:text" json:"warnings"`
	Error               string    `gorm:"type:text" json:"error,omitempty"`
	StartedAt           time.Time `gorm:"index" json:"started_at"`
	DurationMs          int64     `json:"duration_ms"`
}

// TableName overrides the default table name.
func (Run) TableName() string {
	return "sync_runs"
}

// Succeeded reports whether the pass finished without error.
func (r Run) Succeeded() bool {
	return r.Error == ""
}

// WarningList decodes the stored warnings.
func (r Run) WarningList() []string {
	var out []string
	if r.Warnings == "" {
		return out
	}
	_ = json.Unmarshal([]byte(r.Warnings), &out)
	return out
}

func newRun(id string, report *reconcile.Report, runErr error) Run {
	warnings := report.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	encoded, _ := json.Marshal(warnings)

	run := Run{
		ID:                  id,
		Pipeline:            report.Pipeline,
		Mode:                string(report.Mode),
		Source:              report.Source,
		Target:              report.Target,
		SourceRows:          report.SourceRows,
		TargetRows:          report.TargetRows,
		Inserted:            report.Inserted,
		Deleted:             report.Deleted,
		Updated:             report.Updated,
		CellsUpdated:        report.CellsUpdated,
		KeysWritten:         report.KeysWritten,
		Protected:           report.Protected,
		PropagationTimedOut: report.PropagationTimedOut,
		Warnings:            string(encoded),
		StartedAt:           report.StartedAt.UTC(),
		DurationMs:          report.Duration.Milliseconds(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return run
}
