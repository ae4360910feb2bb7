package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salesbi/backend/internal/application/pipeline"
	"github.com/salesbi/backend/internal/domain/ingestion"
	"github.com/salesbi/backend/internal/domain/quality"
	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/salesbi/backend/internal/domain/shared"
	"github.com/salesbi/backend/internal/infrastructure/config"
	"github.com/salesbi/backend/internal/infrastructure/export"
	csvimport "github.com/salesbi/backend/internal/infrastructure/import"
	"github.com/salesbi/backend/internal/infrastructure/logger"
	"github.com/salesbi/backend/internal/infrastructure/metrics"
	"github.com/salesbi/backend/internal/infrastructure/persistence"
	"github.com/salesbi/backend/internal/infrastructure/scheduler"
	"github.com/salesbi/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		source     string
		outDir     string
		logLevel   string
	)
	flag.StringVar(&configPath, "config", "", "Config file (default: ./config.toml if present)")
	flag.StringVar(&source, "source", "", "Extract path or s3://bucket/key (default: source.path)")
	flag.StringVar(&outDir, "out", "", "Output directory (default: output.dir)")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: log.level)")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}
	command := flag.Arg(0)

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if source != "" {
		cfg.Source.Path = source
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, cfg, log); err != nil {
		log.Error("Pipeline command failed", zap.String("command", command), zap.Error(err))
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, command string, cfg *config.Config, log *zap.Logger) error {
	var stage ingestion.Stage
	switch command {
	case "ingest":
		stage = ingestion.StageIngest
	case "transform":
		stage = ingestion.StageTransform
	case "audit":
		stage = ingestion.StageAudit
	case "export":
		stage = ingestion.StageExport
	case "run":
		stage = ingestion.StageRun
	case "history", "schedule":
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	fields := []zap.Field{zap.String("driver", db.Driver)}
	if stats, err := db.Stats(); err == nil {
		fields = append(fields, stats.Fields()...)
	}
	log.Info("Database connected", fields...)

	// sqlite has no migration step of its own
	if db.Driver == persistence.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	runs := persistence.NewGormIngestionRunRepository(db.DB)
	if command == "history" {
		return printHistory(ctx, runs)
	}

	runner, registry, err := wire(ctx, cfg, db, runs, log)
	if err != nil {
		return err
	}

	execute := func(ctx context.Context, stage ingestion.Stage) error {
		source := ""
		if stage == ingestion.StageIngest || stage == ingestion.StageRun {
			source = cfg.Source.Path
		}
		r, runErr := runner.Execute(ctx, stage, source)

		if cfg.Metrics.Textfile != "" {
			if err := registry.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				log.Warn("Failed to write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
			}
		}
		if r != nil {
			log.Info("Run recorded",
				zap.String("run_id", r.ID.String()),
				zap.String("status", string(r.Status)),
				zap.Duration("duration", r.Duration()),
			)
		}
		return runErr
	}

	if command == "schedule" {
		return schedule(ctx, cfg.Schedule, func(ctx context.Context) error {
			return execute(ctx, ingestion.StageRun)
		}, log)
	}
	return execute(ctx, stage)
}

// schedule runs job daily until ctx is cancelled
func schedule(ctx context.Context, cfg config.ScheduleConfig, job scheduler.Job, log *zap.Logger) error {
	trigger, err := scheduler.NewDailyTrigger(scheduler.DailyTriggerConfig{
		Hour:          cfg.Hour,
		Minute:        cfg.Minute,
		CheckInterval: cfg.CheckInterval,
	}, job, log)
	if err != nil {
		return err
	}
	if err := trigger.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return trigger.Stop(stopCtx)
}

func wire(ctx context.Context, cfg *config.Config, db *persistence.Database, runs ingestion.RunRepository, log *zap.Logger) (*pipeline.Runner, *metrics.Registry, error) {
	policy, err := sales.ParseNamePolicy(cfg.Normalize.NamePolicy)
	if err != nil {
		return nil, nil, err
	}
	isolation, err := sales.ParseIsolation(cfg.Normalize.Isolation)
	if err != nil {
		return nil, nil, err
	}
	rebuild := sales.RebuildOptions{
		Isolation:  isolation,
		LockTables: cfg.Normalize.LockTables,
		BatchSize:  cfg.Normalize.BatchSize,
	}

	var remote *storage.S3ObjectStorage
	var exportRemote export.RemoteStorage
	if cfg.Storage.Enabled {
		remote, err = storage.NewS3ObjectStorage(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create object storage: %w", err)
		}
		if err := remote.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		exportRemote = remote
	}
	open := func(ctx context.Context, source string) (io.ReadCloser, error) {
		return storage.OpenSource(ctx, source, remote)
	}

	readerOpts := csvimport.ReaderOptions{
		Delimiter:   []rune(cfg.Source.Delimiter)[0],
		Encoding:    cfg.Source.Encoding,
		DateLayouts: cfg.Source.DateLayouts,
		LazyQuotes:  cfg.Source.LazyQuotes,
		Format:      cfg.Source.Format,
		Sheet:       cfg.Source.Sheet,
	}

	staging := persistence.NewGormStagingRepository(db.DB, cfg.Normalize.BatchSize)
	dims := persistence.NewGormDimensionalRepository(db.DB)
	exporter := export.NewExporter(storage.NewLocalObjectStorage(cfg.Output.Dir), exportRemote, log)
	registry := metrics.NewRegistry()

	runner := pipeline.NewRunner(
		pipeline.NewIngestService(open, staging, readerOpts, registry, log),
		pipeline.NewAuditService(staging, quality.NewAuditor(policy), exporter, registry, log),
		pipeline.NewNormalizeService(staging, dims, sales.NewNormalizer(policy), rebuild, registry, log),
		pipeline.NewExportService(dims, exporter, log),
		runs,
		registry,
		log,
	)
	return runner, registry, nil
}

func printHistory(ctx context.Context, runs ingestion.RunRepository) error {
	recent, err := runs.FindRecent(ctx, 20)
	if err != nil {
		return err
	}
	fmt.Printf("%-36s  %-9s  %-10s  %8s  %8s  %s\n", "RUN", "STAGE", "STATUS", "RAW", "KEPT", "STARTED")
	for _, r := range recent {
		started := ""
		if r.StartedAt != nil {
			started = r.StartedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-36s  %-9s  %-10s  %8d  %8d  %s\n", r.ID, r.Stage, r.Status, r.RawRows, r.KeptRows, started)
	}

	last, err := runs.FindLastSuccessful(ctx)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		fmt.Println("\nNo successful run yet")
	case err != nil:
		return err
	default:
		fmt.Printf("\nLast successful run: %s (%s)\n", last.ID, last.CompletedAt.Format(time.RFC3339))
	}
	return nil
}

// exitCode separates bad input from storage failures for schedulers
func exitCode(err error) int {
	switch {
	case errors.Is(err, sales.ErrSchemaMismatch):
		return 3
	case errors.Is(err, sales.ErrTransactionFailure):
		return 4
	case errors.Is(err, sales.ErrReconciliation):
		return 5
	}
	return 1
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Sales BI batch pipeline

Usage:
  pipeline [flags] <command>

Commands:
  ingest      Load the extract into the staging table
  audit       Write the data quality report for the staged extract
  transform   Rebuild customers, products, orders and order_items from staging
  export      Write KPI files from the derived tables
  run         ingest, audit, transform and export under one recorded run
  history     List recent runs
  schedule    Run the full pipeline daily at schedule.hour:schedule.minute

Flags:
  -config string      Config file
  -source string      Extract path or s3://bucket/key
  -out string         Output directory
  -log-level string   Log level: debug, info, warn, error

Settings come from config.toml or SALESBI_* variables.

Exit codes: 1 general failure, 3 schema mismatch, 4 rebuild rolled back,
5 reconciliation failure.`)
}
