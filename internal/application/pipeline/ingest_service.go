package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/salesbi/backend/internal/domain/sales"
	csvimport "github.com/salesbi/backend/internal/infrastructure/import"
	"go.uber.org/zap"
)

// SourceOpener opens an extract by path or URL
type SourceOpener func(ctx context.Context, source string) (io.ReadCloser, error)

// IngestResult summarizes one load into staging
type IngestResult struct {
	Source         string
	RawRows        int
	CoercionErrors int
	ErrorsByColumn map[string]int
	Errors         []csvimport.RowError
}

// IngestService reads an extract and replaces the staging relation with it
type IngestService struct {
	open     SourceOpener
	staging  sales.StagingRepository
	opts     csvimport.ReaderOptions
	recorder Recorder
	logger   *zap.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(
	open SourceOpener,
	staging sales.StagingRepository,
	opts csvimport.ReaderOptions,
	recorder Recorder,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		open:     open,
		staging:  staging,
		opts:     opts,
		recorder: recorderOrNop(recorder),
		logger:   logger,
	}
}

// Ingest loads source into staging. Coercion problems are reported, not fatal.
func (s *IngestService) Ingest(ctx context.Context, source string) (*IngestResult, error) {
	log := stageLogger(ctx, s.logger).With(zap.String("source", source))

	rc, err := s.open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open extract: %w", err)
	}
	defer rc.Close()

	opts := s.opts
	if opts.Format == "" {
		opts.Format = csvimport.FormatFor(source)
	}
	extract, err := csvimport.ReadExtract(rc, opts)
	if err != nil {
		log.Error("Failed to read extract", zap.Error(err))
		return nil, fmt.Errorf("failed to read extract: %w", err)
	}

	result := &IngestResult{
		Source:         source,
		RawRows:        extract.Set.Len(),
		CoercionErrors: extract.Errors.TotalCount(),
		ErrorsByColumn: extract.Errors.ErrorSummary(),
		Errors:         extract.Errors.Errors(),
	}
	if extract.Errors.HasErrors() {
		log.Warn("Extract values coerced to null",
			zap.Int("errors", result.CoercionErrors),
			zap.Bool("truncated", extract.Errors.IsTruncated()),
			zap.Any("by_column", result.ErrorsByColumn),
		)
	}

	if err := s.staging.ReplaceRaw(ctx, extract.Set.Rows); err != nil {
		log.Error("Failed to stage extract", zap.Error(err))
		return nil, fmt.Errorf("failed to stage extract: %w", err)
	}
	s.recorder.ObserveRawRows(result.RawRows)

	log.Info("Extract staged", zap.Int("rows", result.RawRows), zap.String("format", opts.Format))
	return result, nil
}
