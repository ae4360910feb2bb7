package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/salesbi/backend/internal/domain/sales"
	"go.uber.org/zap"
)

// maxLoggedGaps bounds the per-order referential gap warnings
const maxLoggedGaps = 20

// TransformResult summarizes one rebuild
type TransformResult struct {
	Filter      sales.FilterResult
	TableCounts map[string]int
	Gaps        int
	Duration    time.Duration
}

// NormalizeService rebuilds the dimensional tables from staging
type NormalizeService struct {
	staging    sales.StagingRepository
	dims       sales.DimensionalRepository
	normalizer *sales.Normalizer
	opts       sales.RebuildOptions
	recorder   Recorder
	logger     *zap.Logger
}

// NewNormalizeService creates a new NormalizeService
func NewNormalizeService(
	staging sales.StagingRepository,
	dims sales.DimensionalRepository,
	normalizer *sales.Normalizer,
	opts sales.RebuildOptions,
	recorder Recorder,
	logger *zap.Logger,
) *NormalizeService {
	return &NormalizeService{
		staging:    staging,
		dims:       dims,
		normalizer: normalizer,
		opts:       opts,
		recorder:   recorderOrNop(recorder),
		logger:     logger,
	}
}

// Transform rebuilds from the staged extract
func (s *NormalizeService) Transform(ctx context.Context) (*TransformResult, error) {
	set, err := s.staging.LoadRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load staged extract: %w", err)
	}
	return s.Rebuild(ctx, set)
}

// Rebuild derives the four relations from set and replaces them atomically.
// On any failure the previously committed relations are left untouched.
func (s *NormalizeService) Rebuild(ctx context.Context, set sales.RawRowSet) (*TransformResult, error) {
	log := stageLogger(ctx, s.logger)

	tables, filtered, err := s.normalizer.Derive(set)
	if err != nil {
		var schemaErr *sales.SchemaMismatchError
		if errors.As(err, &schemaErr) {
			log.Error("Staged extract is missing required columns", zap.Strings("missing", schemaErr.Missing))
		}
		return nil, err
	}
	s.recorder.ObserveFilter(filtered)

	if dropped := filtered.DroppedCount(); dropped > 0 {
		fields := []zap.Field{zap.Int("dropped", dropped), zap.Int("kept", len(filtered.Kept))}
		for _, reason := range sales.DropReasons {
			if n := filtered.Dropped[reason]; n > 0 {
				fields = append(fields, zap.Int(string(reason), n))
			}
		}
		log.Info("Rows with null critical fields excluded", fields...)
	}

	if err := sales.ReconcileError(sales.Reconcile(tables)); err != nil {
		log.Error("Derived orders disagree with their items", zap.Error(err))
		return nil, err
	}

	gaps := sales.ReferentialGaps(tables)
	for i, g := range gaps {
		if i == maxLoggedGaps {
			log.Warn("Further referential gaps not logged", zap.Int("remaining", len(gaps)-i))
			break
		}
		log.Warn("Referential gap",
			zap.String("table", g.Table),
			zap.String("order_id", g.OrderID),
			zap.String("region", g.Region),
			zap.Int64("customer_id", g.CustomerID),
		)
	}

	start := time.Now()
	err = s.dims.Replace(ctx, tables, s.opts)
	elapsed := time.Since(start)
	s.recorder.ObserveRebuild(elapsed, err)
	if err != nil {
		var txErr *sales.TransactionError
		if errors.As(err, &txErr) {
			log.Error("Rebuild rolled back", zap.String("failed_stage", txErr.Stage), zap.Error(txErr.Err))
		}
		return nil, err
	}

	counts := tables.Counts()
	s.recorder.ObserveTables(counts)
	log.Info("Dimensional tables rebuilt",
		zap.Int("customers", counts["customers"]),
		zap.Int("products", counts["products"]),
		zap.Int("orders", counts["orders"]),
		zap.Int("order_items", counts["order_items"]),
		zap.Duration("elapsed", elapsed),
	)

	return &TransformResult{
		Filter:      filtered,
		TableCounts: counts,
		Gaps:        len(gaps),
		Duration:    elapsed,
	}, nil
}
