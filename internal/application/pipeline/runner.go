package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/salesbi/backend/internal/domain/ingestion"
	"github.com/salesbi/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// StagingSource labels runs that start from the staged extract
const StagingSource = "staging:retail_raw"

// Runner executes a stage, or the whole pipeline, under one recorded run
type Runner struct {
	ingest    *IngestService
	audit     *AuditService
	normalize *NormalizeService
	export    *ExportService
	runs      ingestion.RunRepository
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewRunner creates a new Runner
func NewRunner(
	ingest *IngestService,
	audit *AuditService,
	normalize *NormalizeService,
	export *ExportService,
	runs ingestion.RunRepository,
	recorder Recorder,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		ingest:    ingest,
		audit:     audit,
		normalize: normalize,
		export:    export,
		runs:      runs,
		recorder:  recorderOrNop(recorder),
		logger:    logger,
		now:       time.Now,
	}
}

// Execute runs stage and records the outcome. For StageRun the steps are
// ingest, audit, transform, export; auditing precedes the rebuild so the two
// never touch storage at the same time. The returned run is saved even when
// a step fails.
func (r *Runner) Execute(ctx context.Context, stage ingestion.Stage, source string) (*ingestion.Run, error) {
	if source == "" {
		source = StagingSource
	}
	run, err := ingestion.NewRun(stage, source)
	if err != nil {
		return nil, err
	}
	if err := run.Start(); err != nil {
		return nil, err
	}
	if err := r.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	ctx, log := logger.WithRunID(ctx, r.logger, run.ID.String())
	log.Info("Run started", zap.String("stage", string(stage)), zap.String("source", source))

	stepErr := r.steps(ctx, run, stage, source)
	if stepErr != nil {
		_ = run.Fail(stepErr)
		log.Error("Run failed", zap.String("error_code", run.ErrorCode), zap.Error(stepErr))
	} else {
		_ = run.Complete()
		r.recorder.MarkSuccess(r.now())
		log.Info("Run completed", zap.Duration("duration", run.Duration()))
	}

	// a cancelled run is still recorded
	if err := r.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		log.Error("Failed to record run outcome", zap.Error(err))
		if stepErr == nil {
			return run, fmt.Errorf("failed to record run: %w", err)
		}
	}
	return run, stepErr
}

func (r *Runner) steps(ctx context.Context, run *ingestion.Run, stage ingestion.Stage, source string) error {
	switch stage {
	case ingestion.StageIngest:
		return r.doIngest(ctx, run, source)
	case ingestion.StageAudit:
		return r.doAudit(ctx)
	case ingestion.StageTransform:
		return r.doTransform(ctx, run)
	case ingestion.StageExport:
		return r.doExport(ctx)
	case ingestion.StageRun:
		if err := r.doIngest(ctx, run, source); err != nil {
			return err
		}
		if err := r.doAudit(ctx); err != nil {
			return err
		}
		if err := r.doTransform(ctx, run); err != nil {
			return err
		}
		return r.doExport(ctx)
	}
	return fmt.Errorf("unknown stage %q", stage)
}

func (r *Runner) doIngest(ctx context.Context, run *ingestion.Run, source string) error {
	res, err := r.ingest.Ingest(logger.WithStage(ctx, string(ingestion.StageIngest)), source)
	if err != nil {
		return err
	}
	run.RecordIngest(res.RawRows, res.CoercionErrors)
	return nil
}

func (r *Runner) doAudit(ctx context.Context) error {
	_, err := r.audit.Audit(logger.WithStage(ctx, string(ingestion.StageAudit)))
	return err
}

func (r *Runner) doTransform(ctx context.Context, run *ingestion.Run) error {
	res, err := r.normalize.Transform(logger.WithStage(ctx, string(ingestion.StageTransform)))
	if err != nil {
		return err
	}
	run.RecordFilter(res.Filter)
	run.RecordTables(res.TableCounts)
	return nil
}

func (r *Runner) doExport(ctx context.Context) error {
	_, err := r.export.Export(logger.WithStage(ctx, string(ingestion.StageExport)))
	return err
}
