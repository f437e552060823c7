package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"table-sync/core/utils"

	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is the wait between propagation checks.
	DefaultPollInterval = 2 * time.Second
	// DefaultPollTimeout bounds the total propagation wait.
	DefaultPollTimeout = 60 * time.Second
)

// Spec is the immutable configuration of one source → target pairing.
type Spec struct {
	// Name identifies the pipeline in logs and reports.
	Name string

	// Source is the table of truth.
	Source Table

	// Target is the table mirrored into.
	Target Target

	// ProtectColumn optionally names a target checkbox column that blocks deletion.
	ProtectColumn string

	// FullRewrite deletes and recreates all target rows instead of diffing.
	FullRewrite bool

	// PollInterval and PollTimeout bound the propagation wait.
	// Zero values fall back to DefaultPollInterval and DefaultPollTimeout.
	PollInterval time.Duration
	PollTimeout  time.Duration

	// Archiver optionally stores the target snapshot before any write.
	Archiver Archiver
}

// Orchestrator drives reconciliation passes for one Spec.
// A pass is not re-entrant: callers must not run two passes of the same pair at once.
type Orchestrator struct {
	spec   Spec
	logger *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator for spec.
func NewOrchestrator(spec Spec, logger *zap.Logger) *Orchestrator {
	if spec.PollInterval <= 0 {
		spec.PollInterval = DefaultPollInterval
	}
	if spec.PollTimeout <= 0 {
		spec.PollTimeout = DefaultPollTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		spec:   spec,
		logger: logger.With(zap.String("pipeline", spec.Name)),
		now:    time.Now,
		sleep:  utils.Sleep,
	}
}

// Spec returns the orchestrator configuration.
func (o *Orchestrator) Spec() Spec {
	return o.spec
}

// snapshot holds everything read during FETCH and ALIGN.
type snapshot struct {
	source    []Row
	target    []Row
	alignment *Alignment
}

// fetch reads both schemas and both row sets, then aligns the schemas.
// Nothing is written; any read error aborts the pass.
func (o *Orchestrator) fetch(ctx context.Context) (*snapshot, error) {
	sourceSchema, err := o.spec.Source.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: schema of %s: %w", ErrFetch, o.spec.Source.Name(), err)
	}
	targetSchema, err := o.spec.Target.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: schema of %s: %w", ErrFetch, o.spec.Target.Name(), err)
	}

	alignment, err := Align(sourceSchema, targetSchema)
	if err != nil {
		return nil, err
	}
	if err := ValidateProtectColumn(alignment, o.spec.ProtectColumn); err != nil {
		return nil, err
	}

	source, err := o.spec.Source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: rows of %s: %w", ErrFetch, o.spec.Source.Name(), err)
	}
	target, err := o.spec.Target.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: rows of %s: %w", ErrFetch, o.spec.Target.Name(), err)
	}

	return &snapshot{source: source, target: target, alignment: alignment}, nil
}

func (o *Orchestrator) diffOptions() DiffOptions {
	opts := DiffOptions{
		SourceKey:     o.spec.Source.Key,
		TargetKey:     o.spec.Target.Key,
		ProtectColumn: o.spec.ProtectColumn,
	}
	if n, ok := o.spec.Target.(ValueNormalizer); ok {
		opts.Normalize = n.Normalize
	}
	return opts
}

func (o *Orchestrator) newReport(mode Mode) *Report {
	return &Report{
		Pipeline:  o.spec.Name,
		Source:    o.spec.Source.Name(),
		Target:    o.spec.Target.Name(),
		Mode:      mode,
		Warnings:  []string{},
		StartedAt: o.now(),
	}
}

// Plan performs FETCH, ALIGN and DIFF without writing anything.
func (o *Orchestrator) Plan(ctx context.Context) (*DiffResult, *Report, error) {
	report := o.newReport(ModeDryRun)

	snap, err := o.fetch(ctx)
	if err != nil {
		return nil, report, err
	}

	var diff *DiffResult
	if o.spec.FullRewrite {
		diff = FullRewrite(snap.source, snap.target, o.diffOptions())
	} else {
		diff = Diff(snap.source, snap.target, snap.alignment, o.diffOptions())
	}

	report.Columns = snap.alignment.CommonNames()
	report.SourceRows = len(snap.source)
	report.TargetRows = len(snap.target)
	report.Protected = diff.Protected
	report.Duration = o.now().Sub(report.StartedAt)
	return diff, report, nil
}

// Run performs one full pass and returns its report.
// On a write failure the returned report holds the counts of operations already issued.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	mode := ModeIncremental
	if o.spec.FullRewrite {
		mode = ModeFullRewrite
	}
	report := o.newReport(mode)
	defer func() {
		report.Duration = o.now().Sub(report.StartedAt)
	}()

	keyWriter, writesKeys := o.spec.Source.(KeyWriter)
	if writesKeys && mode == ModeIncremental {
		if err := keyWriter.CheckWritable(ctx); err != nil {
			if !errors.Is(err, ErrPermissionDenied) {
				return report, fmt.Errorf("%w: write check of %s: %w", ErrFetch, o.spec.Source.Name(), err)
			}
			o.logger.Warn("Source is read-only, falling back to full rewrite", zap.Error(err))
			report.warn(fmt.Sprintf("%s is not writable, forced full rewrite", o.spec.Source.Name()))
			mode = ModeFullRewrite
			report.Mode = mode
		}
	}

	o.logger.Info("Sync pass started", zap.String("mode", string(mode)))

	snap, err := o.fetch(ctx)
	if err != nil {
		return report, err
	}
	report.Columns = snap.alignment.CommonNames()
	report.SourceRows = len(snap.source)
	report.TargetRows = len(snap.target)

	var diff *DiffResult
	if mode == ModeFullRewrite {
		diff = FullRewrite(snap.source, snap.target, o.diffOptions())
	} else {
		diff = Diff(snap.source, snap.target, snap.alignment, o.diffOptions())
	}
	report.Protected = diff.Protected

	o.logger.Info("Diff computed",
		zap.Strings("columns", report.Columns),
		zap.Int("source_rows", report.SourceRows),
		zap.Int("target_rows", report.TargetRows),
		zap.Int("to_insert", len(diff.ToInsert)),
		zap.Int("to_delete", len(diff.ToDelete)),
		zap.Int("to_update", len(diff.ToUpdate)),
		zap.Int("protected", diff.Protected),
	)

	if diff.IsEmpty() {
		o.logger.Info("Target already mirrors source")
		return report, nil
	}

	o.archive(ctx, snap.target, report)

	if err := o.applyDeletes(ctx, diff.ToDelete, report); err != nil {
		return report, err
	}

	result, insertErr := o.applyInserts(ctx, snap.alignment, diff.ToInsert, report)

	// Rows created before an insert failure still get their keys, so the next pass
	// does not insert them again.
	if writesKeys && mode == ModeIncremental && snap.alignment.Source.KeyColumn != "" && report.Inserted > 0 {
		inserted := diff.ToInsert[:report.Inserted]
		assignments := o.resolveKeys(ctx, snap.target, inserted, result, report)
		if err := o.writeBackKeys(ctx, keyWriter, assignments, report); err != nil {
			return report, errors.Join(insertErr, err)
		}
	}
	if insertErr != nil {
		return report, insertErr
	}

	if err := o.applyUpdates(ctx, snap.alignment, diff.ToUpdate, report); err != nil {
		return report, err
	}

	o.logger.Info("Sync pass completed",
		zap.Int("inserted", report.Inserted),
		zap.Int("deleted", report.Deleted),
		zap.Int("updated", report.Updated),
		zap.Int("cells_updated", report.CellsUpdated),
		zap.Int("keys_written", report.KeysWritten),
		zap.Int("warnings", len(report.Warnings)),
	)
	return report, nil
}

func (o *Orchestrator) archive(ctx context.Context, rows []Row, report *Report) {
	if o.spec.Archiver == nil {
		return
	}
	if err := o.spec.Archiver.Archive(ctx, o.spec.Name, o.spec.Target.Name(), rows); err != nil {
		o.logger.Warn("Snapshot archive failed", zap.Error(err))
		report.warn(fmt.Sprintf("snapshot archive failed: %v", err))
	}
}
