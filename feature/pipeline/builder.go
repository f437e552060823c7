package pipeline

import (
	"context"
	"fmt"
	"time"

	"table-sync/core/coda"
	"table-sync/core/reconcile"
	"table-sync/core/sheets"

	"go.uber.org/zap"
)

// Job is one reconciliation unit of a pipeline.
type Job interface {
	Run(ctx context.Context) (*reconcile.Report, error)
	Plan(ctx context.Context) (*reconcile.DiffResult, *reconcile.Report, error)
}

// Builder turns a definition into its jobs.
type Builder interface {
	Build(def Definition) ([]Job, error)
}

// ClientBuilder builds jobs on top of the REST clients.
type ClientBuilder struct {
	coda     *coda.Client
	sheets   *sheets.Client
	archiver reconcile.Archiver
	settings Settings
	logger   *zap.Logger
}

// NewClientBuilder creates a builder. archiver may be nil.
func NewClientBuilder(codaClient *coda.Client, sheetsClient *sheets.Client, archiver reconcile.Archiver, settings Settings, logger *zap.Logger) *ClientBuilder {
	return &ClientBuilder{
		coda:     codaClient,
		sheets:   sheetsClient,
		archiver: archiver,
		settings: settings,
		logger:   logger,
	}
}

// Build validates def and creates one job per table pair.
func (b *ClientBuilder) Build(def Definition) ([]Job, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	def = def.WithDefaults()

	if def.Kind == KindSheetsToSheets {
		return []Job{b.copyJob(def)}, nil
	}

	var jobs []Job
	for _, pair := range def.TablePairs() {
		var source reconcile.Table
		var target reconcile.Target

		switch def.Kind {
		case KindSheetsToCoda:
			source = sheets.NewWorksheet(b.sheets, pair.Source.Spreadsheet, pair.Source.Worksheet, def.KeyColumn)
			target = coda.NewTarget(b.coda, pair.Target.Doc, pair.Target.Table, "")
		case KindCodaToSheets:
			source = coda.NewTable(b.coda, pair.Source.Doc, pair.Source.Table, "")
			target = sheets.NewWorksheet(b.sheets, pair.Target.Spreadsheet, pair.Target.Worksheet, def.KeyColumn)
		case KindCodaToCoda:
			source = coda.NewTable(b.coda, pair.Source.Doc, pair.Source.Table, "")
			target = coda.NewTarget(b.coda, pair.Target.Doc, pair.Target.Table, def.KeyColumn)
		}

		spec := reconcile.Spec{
			Name:          def.Name,
			Source:        source,
			Target:        target,
			ProtectColumn: def.ProtectColumn,
			FullRewrite:   def.FullRewrite,
			PollInterval:  seconds(def.PollIntervalSeconds, b.settings.PollIntervalSeconds),
			PollTimeout:   seconds(def.PollTimeoutSeconds, b.settings.PollTimeoutSeconds),
			Archiver:      b.archiver,
		}
		jobs = append(jobs, reconcile.NewOrchestrator(spec, b.logger))
	}
	return jobs, nil
}

func (b *ClientBuilder) copyJob(def Definition) *copyJob {
	return &copyJob{
		name:   def.Name,
		client: b.sheets,
		src:    rangeRef(def.Source),
		dst:    rangeRef(def.Target),
		logger: b.logger.With(zap.String("pipeline", def.Name)),
		now:    time.Now,
	}
}

func rangeRef(e Endpoint) sheets.RangeRef {
	a1 := sheets.QuoteSheet(e.Worksheet)
	if e.Range != "" {
		a1 += "!" + e.Range
	}
	return sheets.RangeRef{SpreadsheetID: e.Spreadsheet, Range: a1}
}

func seconds(override, fallback int) time.Duration {
	if override > 0 {
		return time.Duration(override) * time.Second
	}
	return time.Duration(fallback) * time.Second
}

// copyJob overwrites a worksheet range with another range. Rows are not keyed.
type copyJob struct {
	name   string
	client *sheets.Client
	src    sheets.RangeRef
	dst    sheets.RangeRef
	logger *zap.Logger
	now    func() time.Time
}

func (j *copyJob) report(mode reconcile.Mode) *reconcile.Report {
	return &reconcile.Report{
		Pipeline:  j.name,
		Source:    j.src.SpreadsheetID + "!" + j.src.Range,
		Target:    j.dst.SpreadsheetID + "!" + j.dst.Range,
		Mode:      mode,
		Warnings:  []string{},
		StartedAt: j.now(),
	}
}

// Run copies the source range over the target range.
func (j *copyJob) Run(ctx context.Context) (*reconcile.Report, error) {
	report := j.report(reconcile.ModeCopy)
	j.logger.Info("Copying range", zap.String("source", report.Source), zap.String("target", report.Target))

	n, err := j.client.CopyRange(ctx, j.src, j.dst)
	report.Duration = j.now().Sub(report.StartedAt)
	if err != nil {
		return report, err
	}
	report.SourceRows = n
	report.Inserted = n
	return report, nil
}

// Plan reads the source range and reports its size without writing.
func (j *copyJob) Plan(ctx context.Context) (*reconcile.DiffResult, *reconcile.Report, error) {
	report := j.report(reconcile.ModeDryRun)
	values, err := j.client.GetValues(ctx, j.src.SpreadsheetID, j.src.Range)
	report.Duration = j.now().Sub(report.StartedAt)
	if err != nil {
		return nil, report, fmt.Errorf("%w: %w", reconcile.ErrFetch, err)
	}
	report.SourceRows = len(values)
	return &reconcile.DiffResult{}, report, nil
}
