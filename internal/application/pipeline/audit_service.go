package pipeline

import (
	"context"
	"fmt"

	"github.com/salesbi/backend/internal/domain/quality"
	"github.com/salesbi/backend/internal/domain/sales"
	"go.uber.org/zap"
)

// QualityExporter writes a quality report somewhere durable
type QualityExporter interface {
	ExportQuality(ctx context.Context, r *quality.Report) ([]string, error)
}

// AuditService measures the staged extract. It only reads from storage.
type AuditService struct {
	staging  sales.StagingRepository
	auditor  *quality.Auditor
	exporter QualityExporter
	recorder Recorder
	logger   *zap.Logger
}

// NewAuditService creates a new AuditService. exporter may be nil.
func NewAuditService(
	staging sales.StagingRepository,
	auditor *quality.Auditor,
	exporter QualityExporter,
	recorder Recorder,
	logger *zap.Logger,
) *AuditService {
	return &AuditService{
		staging:  staging,
		auditor:  auditor,
		exporter: exporter,
		recorder: recorderOrNop(recorder),
		logger:   logger,
	}
}

// Audit builds the quality report over the unfiltered staged rows and
// exports it when an exporter is configured.
func (s *AuditService) Audit(ctx context.Context) (*quality.Report, error) {
	log := stageLogger(ctx, s.logger)

	set, err := s.staging.LoadRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load staged extract: %w", err)
	}
	r, err := s.auditor.Audit(set)
	if err != nil {
		log.Error("Audit failed", zap.Error(err))
		return nil, err
	}
	s.recorder.ObserveQuality(r)

	fields := make([]zap.Field, 0, 16)
	for _, m := range r.Metrics() {
		if m.Null {
			fields = append(fields, zap.Skip())
			continue
		}
		fields = append(fields, zap.String(m.Name, m.Value))
	}
	log.Info("Quality report computed", fields...)
	if r.DroppedCriticalRows > 0 {
		log.Warn("Extract has rows with null critical fields", zap.Int("rows", r.DroppedCriticalRows))
	}

	if s.exporter != nil {
		files, err := s.exporter.ExportQuality(ctx, r)
		if err != nil {
			return r, fmt.Errorf("failed to export quality report: %w", err)
		}
		log.Info("Quality report exported", zap.Strings("files", files))
	}
	return r, nil
}
