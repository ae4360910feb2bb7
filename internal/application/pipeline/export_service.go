package pipeline

import (
	"context"
	"fmt"

	"github.com/salesbi/backend/internal/domain/report"
	"github.com/salesbi/backend/internal/domain/sales"
	"go.uber.org/zap"
)

// KPIExporter writes KPI read models somewhere durable
type KPIExporter interface {
	ExportKPIs(ctx context.Context, k *report.KPIs) ([]string, error)
}

// ExportService computes KPI read models from the committed derived tables
type ExportService struct {
	dims     sales.DimensionalRepository
	exporter KPIExporter
	logger   *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(dims sales.DimensionalRepository, exporter KPIExporter, logger *zap.Logger) *ExportService {
	return &ExportService{
		dims:     dims,
		exporter: exporter,
		logger:   logger,
	}
}

// Export loads the derived tables, computes the KPIs and writes them
func (s *ExportService) Export(ctx context.Context) (*report.KPIs, error) {
	log := stageLogger(ctx, s.logger)

	tables, err := s.dims.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load derived tables: %w", err)
	}
	kpis := report.Compute(tables)

	files, err := s.exporter.ExportKPIs(ctx, kpis)
	if err != nil {
		return kpis, fmt.Errorf("failed to export KPIs: %w", err)
	}
	log.Info("KPIs exported",
		zap.Int("days", len(kpis.Daily)),
		zap.Int("products", len(kpis.Products)),
		zap.Int("customers", len(kpis.RFM)),
		zap.Strings("files", files),
	)
	return kpis, nil
}
