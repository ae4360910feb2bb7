package pipeline

import (
	"context"
	"time"

	"github.com/salesbi/backend/internal/domain/quality"
	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/salesbi/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Recorder receives batch measurements. metrics.Registry implements it.
type Recorder interface {
	ObserveRawRows(n int)
	ObserveFilter(f sales.FilterResult)
	ObserveTables(counts map[string]int)
	ObserveRebuild(d time.Duration, err error)
	ObserveQuality(r *quality.Report)
	MarkSuccess(at time.Time)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRawRows(int) {}
func (nopRecorder) ObserveFilter(sales.FilterResult) {}
func (nopRecorder) ObserveTables(map[string]int) {}
func (nopRecorder) ObserveRebuild(time.Duration, error) {}
func (nopRecorder) ObserveQuality(*quality.Report) {}
func (nopRecorder) MarkSuccess(time.Time) {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// stageLogger prefers the run-scoped logger carried by ctx
func stageLogger(ctx context.Context, fallback *zap.Logger) *logger.ContextLogger {
	return logger.WithLogger(ctx, logger.FromContextOr(ctx, fallback))
}
