package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/salesbi/backend/internal/domain/quality"
	"github.com/salesbi/backend/internal/domain/report"
	"github.com/salesbi/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

const contentTypeCSV = "text/csv"

// RemoteStorage is an upload target that maps file names onto object keys
type RemoteStorage interface {
	storage.ObjectStorage
	OutputKey(name string) string
}

// Exporter writes output files locally and mirrors them to remote storage when set
type Exporter struct {
	local  storage.ObjectStorage
	remote RemoteStorage
	logger *zap.Logger
}

// NewExporter creates an Exporter. remote may be nil.
func NewExporter(local storage.ObjectStorage, remote RemoteStorage, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{local: local, remote: remote, logger: logger}
}

type file struct {
	name  string
	write func(io.Writer) error
}

// ExportQuality writes the quality report and its two rankings.
// It returns the written file names.
func (e *Exporter) ExportQuality(ctx context.Context, r *quality.Report) ([]string, error) {
	return e.export(ctx, []file{
		{FileQualityReport, func(w io.Writer) error { return WriteQualityReport(w, r) }},
		{FileTopCountries, func(w io.Writer) error { return WriteTopCountries(w, r.TopCountries) }},
		{FileTopProducts, func(w io.Writer) error { return WriteTopProducts(w, r.TopProducts) }},
	})
}

// ExportKPIs writes the daily, product and customer read models
func (e *Exporter) ExportKPIs(ctx context.Context, k *report.KPIs) ([]string, error) {
	return e.export(ctx, []file{
		{FileDailyKPIs, func(w io.Writer) error { return WriteDailyKPIs(w, k.Daily) }},
		{FileProductPerformance, func(w io.Writer) error { return WriteProductPerformance(w, k.Products) }},
		{FileCustomerRFM, func(w io.Writer) error { return WriteCustomerRFM(w, k.RFM) }},
	})
}

func (e *Exporter) export(ctx context.Context, files []file) ([]string, error) {
	names := make([]string, 0, len(files))
	for _, f := range files {
		var buf bytes.Buffer
		if err := f.write(&buf); err != nil {
			return names, fmt.Errorf("failed to render %s: %w", f.name, err)
		}
		data := buf.Bytes()

		if err := e.local.Upload(ctx, f.name, bytes.NewReader(data), contentTypeCSV); err != nil {
			return names, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		if e.remote != nil {
			key := e.remote.OutputKey(f.name)
			if err := e.remote.Upload(ctx, key, bytes.NewReader(data), contentTypeCSV); err != nil {
				return names, fmt.Errorf("failed to upload %s: %w", f.name, err)
			}
		}
		e.logger.Info("Wrote output file", zap.String("file", f.name), zap.Int("bytes", len(data)))
		names = append(names, f.name)
	}
	return names, nil
}
