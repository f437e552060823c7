package history

import (
	"context"
	"fmt"
	"strings"

	"table-sync/core/database"
	"table-sync/core/reconcile"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// Store persists sync runs with GORM.
type Store struct {
	db    *gorm.DB
	newID func() string
}

// NewStore creates a store on an open connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, newID: uuid.NewString}
}

// Migrate creates or updates the sync_runs table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Run{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", Run{}.TableName(), err)
	}
	return nil
}

// MissingColumns lists the columns of Run absent from the sync_runs table.
// A missing table reports every column.
func (s *Store) MissingColumns(ctx context.Context) ([]string, error) {
	stmt := &gorm.Statement{DB: s.db.WithContext(ctx)}
	if err := stmt.Parse(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to parse run model: %w", err)
	}
	return database.MissingColumns(stmt.DB, Run{}.TableName(), stmt.Schema.DBNames)
}

// Verify checks that the sync_runs table holds every column of Run.
func (s *Store) Verify(ctx context.Context) error {
	missing, err := s.MissingColumns(ctx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %s", Run{}.TableName(), strings.Join(missing, ", "))
	}
	return nil
}

// Record stores the outcome of one pass. runErr may be nil.
func (s *Store) Record(ctx context.Context, report *reconcile.Report, runErr error) (*Run, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}
	run := newRun(s.newID(), report, runErr)
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to record run of %s: %w", report.Pipeline, err)
	}
	return &run, nil
}

// List returns the latest runs, newest first. An empty pipeline lists all pipelines.
func (s *Store) List(ctx context.Context, pipeline string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	q := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if pipeline != "" {
		q = q.Where("pipeline = ?", pipeline)
	}

	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
