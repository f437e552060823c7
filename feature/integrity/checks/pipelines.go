package checks

import (
	"context"

	"table-sync/feature/pipeline"
)

// Planner computes dry-run plans of named pipelines.
type Planner interface {
	Names() []string
	Plan(ctx context.Context, name string) ([]pipeline.PlanResult, error)
}

// PipelineReport is the reachability of one pipeline.
type PipelineReport struct {
	Name   string      `json:"name"`
	Status string      `json:"status"` // "ok", "error"
	Tables []PairCheck `json:"tables"`
	Error  string      `json:"error,omitempty"`
}

// PairCheck summarises one source → target pair of a pipeline.
type PairCheck struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Columns    []string `json:"columns"`
	SourceRows int      `json:"source_rows"`
	TargetRows int      `json:"target_rows"`
	Pending    int      `json:"pending_changes"`
}

// CheckPipelines plans every pipeline. A pipeline passes when both sides can be read
// and their schemas align; nothing is written.
func CheckPipelines(ctx context.Context, planner Planner) []PipelineReport {
	reports := make([]PipelineReport, 0, len(planner.Names()))
	for _, name := range planner.Names() {
		report := PipelineReport{Name: name, Status: "ok", Tables: []PairCheck{}}

		plans, err := planner.Plan(ctx, name)
		for _, p := range plans {
			check := PairCheck{
				Source:     p.Report.Source,
				Target:     p.Report.Target,
				Columns:    p.Report.Columns,
				SourceRows: p.Report.SourceRows,
				TargetRows: p.Report.TargetRows,
			}
			if p.Diff != nil {
				check.Pending = len(p.Diff.ToInsert) + len(p.Diff.ToDelete) + len(p.Diff.ToUpdate)
			}
			report.Tables = append(report.Tables, check)
		}
		if err != nil {
			report.Status = "error"
			report.Error = err.Error()
		}
		reports = append(reports, report)
	}
	return reports
}
