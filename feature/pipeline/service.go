package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"table-sync/core/history"
	"table-sync/core/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownPipeline is returned for a name with no definition.
	ErrUnknownPipeline = errors.New("unknown pipeline")
	// ErrHistoryDisabled is returned by Runs when no history store is configured.
	ErrHistoryDisabled = errors.New("run history is disabled")
)

// HistoryStore persists pass reports.
type HistoryStore interface {
	Record(ctx context.Context, report *reconcile.Report, runErr error) (*history.Run, error)
	List(ctx context.Context, pipeline string, limit int) ([]history.Run, error)
}

// PlanResult is the dry-run outcome of one job.
type PlanResult struct {
	Report *reconcile.Report     `json:"report"`
	Diff   *reconcile.DiffResult `json:"diff"`
}

// Result is the outcome of one pipeline in RunAll.
type Result struct {
	Pipeline string              `json:"pipeline"`
	Reports  []*reconcile.Report `json:"reports"`
	Err      error               `json:"-"`
}

// Service runs configured pipelines.
//
// Two concurrent runs of the same pipeline share one pass: the second caller waits
// for the pass in progress and receives its reports. Runs and plans of one pipeline
// never overlap, since its jobs hold per-pass table state.
type Service struct {
	defs    []Definition
	jobs    map[string][]Job
	locks   map[string]*sync.Mutex
	history HistoryStore
	logger  *zap.Logger
	group   singleflight.Group
}

// NewService builds the jobs of every definition. store may be nil.
func NewService(defs []Definition, builder Builder, store HistoryStore, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		jobs:    make(map[string][]Job, len(defs)),
		locks:   make(map[string]*sync.Mutex, len(defs)),
		history: store,
		logger:  logger,
	}
	for _, def := range defs {
		if _, dup := s.jobs[def.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate pipeline name %q", reconcile.ErrConfiguration, def.Name)
		}
		jobs, err := builder.Build(def)
		if err != nil {
			return nil, err
		}
		s.jobs[def.Name] = jobs
		s.locks[def.Name] = &sync.Mutex{}
		s.defs = append(s.defs, def.WithDefaults())
	}
	return s, nil
}

// Definitions returns the configured pipelines in configuration order.
func (s *Service) Definitions() []Definition {
	return s.defs
}

// Names returns the configured pipeline names in configuration order.
func (s *Service) Names() []string {
	names := make([]string, len(s.defs))
	for i, def := range s.defs {
		names[i] = def.Name
	}
	return names
}

func (s *Service) lookup(name string) ([]Job, error) {
	jobs, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}
	return jobs, nil
}

// Run performs one pass of every job of the pipeline, in order. It stops at the
// first failing job and returns the reports produced so far.
func (s *Service) Run(ctx context.Context, name string) ([]*reconcile.Report, error) {
	jobs, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	v, err, shared := s.group.Do(name, func() (any, error) {
		lock := s.locks[name]
		lock.Lock()
		defer lock.Unlock()
		return s.run(ctx, name, jobs)
	})
	if shared {
		s.logger.Debug("Joined pass already in progress", zap.String("pipeline", name))
	}
	reports, _ := v.([]*reconcile.Report)
	return reports, err
}

func (s *Service) run(ctx context.Context, name string, jobs []Job) ([]*reconcile.Report, error) {
	reports := make([]*reconcile.Report, 0, len(jobs))
	for i, job := range jobs {
		report, err := job.Run(ctx)
		if report != nil {
			reports = append(reports, report)
			s.record(ctx, report, err)
		}
		if err != nil {
			s.logger.Error("Sync pass failed",
				zap.String("pipeline", name),
				zap.Int("job", i),
				zap.Error(err))
			return reports, err
		}
	}
	return reports, nil
}

func (s *Service) record(ctx context.Context, report *reconcile.Report, runErr error) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Record(context.WithoutCancel(ctx), report, runErr); err != nil {
		s.logger.Warn("Failed to record run", zap.String("pipeline", report.Pipeline), zap.Error(err))
	}
}

// RunAll runs the named pipelines with at most parallel running at once. A failing
// pipeline does not stop the others; the returned error joins every failure.
func (s *Service) RunAll(ctx context.Context, names []string, parallel int) ([]Result, error) {
	for _, name := range names {
		if _, err := s.lookup(name); err != nil {
			return nil, err
		}
	}
	if parallel <= 0 {
		parallel = 1
	}

	results := make([]Result, len(names))
	var g errgroup.Group
	g.SetLimit(parallel)
	for i, name := range names {
		g.Go(func() error {
			reports, err := s.Run(ctx, name)
			results[i] = Result{Pipeline: name, Reports: reports, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Pipeline, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

// Plan computes the changes a run would make without writing anything.
// It waits for a pass of the same pipeline in progress.
func (s *Service) Plan(ctx context.Context, name string) ([]PlanResult, error) {
	jobs, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	lock := s.locks[name]
	lock.Lock()
	defer lock.Unlock()

	plans := make([]PlanResult, 0, len(jobs))
	for _, job := range jobs {
		diff, report, err := job.Plan(ctx)
		if err != nil {
			return plans, err
		}
		plans = append(plans, PlanResult{Report: report, Diff: diff})
	}
	return plans, nil
}

// Runs returns the recorded passes of a pipeline, newest first.
func (s *Service) Runs(ctx context.Context, name string, limit int) ([]history.Run, error) {
	if _, err := s.lookup(name); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, name, limit)
}
