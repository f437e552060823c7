package integrity

import (
	"context"
	"errors"

	"table-sync/core/history"
	"table-sync/core/storage"
	"table-sync/feature/integrity/checks"

	"go.uber.org/zap"
)

var (
	// ErrStorageDisabled is returned by storage checks when archiving is off.
	ErrStorageDisabled = errors.New("snapshot storage is disabled")
	// ErrHistoryDisabled is returned by history checks without a database.
	ErrHistoryDisabled = errors.New("run history is disabled")
)

// HistoryStore is the history store as seen by the checks.
type HistoryStore interface {
	checks.HistoryTable
	Migrate(ctx context.Context) error
}

// Options holds the optional collaborators of the service.
type Options struct {
	// Storage and Bucket locate the snapshot archive. A nil client disables storage checks.
	Storage storage.Client
	Bucket  string
	Prefix  string
	Region  string
	// History is the run history store. Nil disables history checks.
	History HistoryStore
	// Pipelines plans the configured pipelines.
	Pipelines checks.Planner
}

// Service handles integrity checks.
type Service struct {
	opts   Options
	logger *zap.Logger
}

// NewService creates a new integrity service.
func NewService(opts Options, logger *zap.Logger) *Service {
	return &Service{opts: opts, logger: logger}
}

// CheckStorage reports the state of the snapshot bucket.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	if s.opts.Storage == nil {
		return nil, ErrStorageDisabled
	}
	return checks.CheckStorage(ctx, s.opts.Storage, s.opts.Bucket, s.opts.Prefix)
}

// FixStorage creates the snapshot bucket.
func (s *Service) FixStorage(ctx context.Context) error {
	if s.opts.Storage == nil {
		return ErrStorageDisabled
	}
	return checks.FixStorage(ctx, s.opts.Storage, s.opts.Bucket, s.opts.Region, s.logger)
}

// CheckHistory compares the history table with the run model.
func (s *Service) CheckHistory(ctx context.Context) (*checks.HistoryReport, error) {
	if s.opts.History == nil {
		return nil, ErrHistoryDisabled
	}
	return checks.CheckHistory(ctx, s.opts.History, history.Run{}.TableName())
}

// FixHistory migrates the history table.
func (s *Service) FixHistory(ctx context.Context) error {
	if s.opts.History == nil {
		return ErrHistoryDisabled
	}
	return s.opts.History.Migrate(ctx)
}

// CheckPipelines plans every configured pipeline without writing.
func (s *Service) CheckPipelines(ctx context.Context) []checks.PipelineReport {
	if s.opts.Pipelines == nil {
		return []checks.PipelineReport{}
	}
	return checks.CheckPipelines(ctx, s.opts.Pipelines)
}
