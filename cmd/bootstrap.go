package cmd

import (
	"context"
	"fmt"

	"table-sync/core/coda"
	"table-sync/core/config"
	"table-sync/core/database"
	"table-sync/core/history"
	"table-sync/core/logger"
	"table-sync/core/reconcile"
	"table-sync/core/sheets"
	"table-sync/core/storage"
	"table-sync/feature/integrity"
	"table-sync/feature/pipeline"

	"go.uber.org/zap"
)

// deps holds everything a command needs to run pipelines.
type deps struct {
	cfg       *config.Config
	logger    *zap.Logger
	service   *pipeline.Service
	history   *history.Store
	storage   storage.Client
	snapshots *storage.SnapshotArchiver
}

// bootstrap loads the configuration and wires the pipeline service.
// The history database is optional: a failure is logged and runs are not recorded.
func bootstrap(ctx context.Context) (*deps, error) {
	cfg, err := config.LoadConfigFile(".", configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	d := &deps{cfg: cfg, logger: logg}

	var store pipeline.HistoryStore
	if cfg.Sync.RecordHistory {
		if hs, err := openHistory(ctx, cfg.Database); err != nil {
			logg.Warn("Run history disabled", zap.Error(err))
		} else {
			d.history = hs
			store = hs
		}
	}

	var archiver reconcile.Archiver
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		d.storage = client
		d.snapshots = storage.NewSnapshotArchiver(client, cfg.Storage.Bucket, cfg.Storage.Prefix, cfg.Storage.Retain)
		if err := d.snapshots.EnsureBucket(ctx, cfg.Storage.Region); err != nil {
			return nil, err
		}
		archiver = d.snapshots
	}

	sheetsClient, err := sheets.NewClient(ctx, cfg.Sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	builder := pipeline.NewClientBuilder(
		coda.NewClient(cfg.Coda),
		sheetsClient,
		archiver,
		cfg.Sync,
		logg,
	)
	d.service, err = pipeline.NewService(cfg.Pipelines, builder, store, logg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// integrityOptions wires the optional collaborators of the integrity checks.
func (d *deps) integrityOptions() integrity.Options {
	opts := integrity.Options{
		Storage:   d.storage,
		Bucket:    d.cfg.Storage.Bucket,
		Prefix:    d.cfg.Storage.Prefix,
		Region:    d.cfg.Storage.Region,
		Pipelines: d.service,
	}
	if d.history != nil {
		opts.History = d.history
	}
	return opts
}

func openHistory(ctx context.Context, cfg database.Config) (*history.Store, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	store := history.NewStore(db)
	if cfg.AutoMigrate {
		err = store.Migrate(ctx)
	} else {
		err = store.Verify(ctx)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
