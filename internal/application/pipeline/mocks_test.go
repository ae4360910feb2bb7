package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/salesbi/backend/internal/domain/ingestion"
	"github.com/salesbi/backend/internal/domain/quality"
	"github.com/salesbi/backend/internal/domain/report"
	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockStagingRepository is a mock implementation of sales.StagingRepository
type MockStagingRepository struct {
	mock.Mock
}

func (m *MockStagingRepository) ReplaceRaw(ctx context.Context, rows []sales.RawRow) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockStagingRepository) LoadRaw(ctx context.Context) (sales.RawRowSet, error) {
	args := m.Called(ctx)
	return args.Get(0).(sales.RawRowSet), args.Error(1)
}

// MockDimensionalRepository is a mock implementation of sales.DimensionalRepository
type MockDimensionalRepository struct {
	mock.Mock
}

func (m *MockDimensionalRepository) Replace(ctx context.Context, tables *sales.Tables, opts sales.RebuildOptions) error {
	args := m.Called(ctx, tables, opts)
	return args.Error(0)
}

func (m *MockDimensionalRepository) Load(ctx context.Context) (*sales.Tables, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Tables), args.Error(1)
}

// MockRunRepository is a mock implementation of ingestion.RunRepository.
// It snapshots the status of every saved run.
type MockRunRepository struct {
	mock.Mock
	mu       sync.Mutex
	statuses []ingestion.Status
}

func (m *MockRunRepository) Save(ctx context.Context, run *ingestion.Run) error {
	m.mu.Lock()
	m.statuses = append(m.statuses, run.Status)
	m.mu.Unlock()
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*ingestion.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingestion.Run), args.Error(1)
}

func (m *MockRunRepository) FindRecent(ctx context.Context, limit int) ([]*ingestion.Run, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*ingestion.Run), args.Error(1)
}

func (m *MockRunRepository) FindLastSuccessful(ctx context.Context) (*ingestion.Run, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingestion.Run), args.Error(1)
}

// MockQualityExporter is a mock implementation of QualityExporter
type MockQualityExporter struct {
	mock.Mock
}

func (m *MockQualityExporter) ExportQuality(ctx context.Context, r *quality.Report) ([]string, error) {
	args := m.Called(ctx, r)
	return args.Get(0).([]string), args.Error(1)
}

// MockKPIExporter is a mock implementation of KPIExporter
type MockKPIExporter struct {
	mock.Mock
}

func (m *MockKPIExporter) ExportKPIs(ctx context.Context, k *report.KPIs) ([]string, error) {
	args := m.Called(ctx, k)
	return args.Get(0).([]string), args.Error(1)
}

// fakeRecorder keeps the last value passed to each observation
type fakeRecorder struct {
	rawRows   int
	filter    *sales.FilterResult
	tables    map[string]int
	rebuilds  int
	failures  int
	quality   *quality.Report
	successAt time.Time
}

func (f *fakeRecorder) ObserveRawRows(n int) { f.rawRows += n }
func (f *fakeRecorder) ObserveFilter(r sales.FilterResult) { f.filter = &r }
func (f *fakeRecorder) ObserveTables(counts map[string]int) { f.tables = counts }
func (f *fakeRecorder) ObserveQuality(r *quality.Report) { f.quality = r }
func (f *fakeRecorder) MarkSuccess(at time.Time) { f.successAt = at }
func (f *fakeRecorder) ObserveRebuild(_ time.Duration, err error) {
	f.rebuilds++
	if err != nil {
		f.failures++
	}
}

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func num(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func cust(id int64) *int64 {
	return &id
}

// stagedSet is a small extract: two sales in one invoice, one cancellation,
// and one row without a unit price.
func stagedSet() sales.RawRowSet {
	return sales.NewRawRowSet([]sales.RawRow{
		{InvoiceID: "536365", ProductID: "85123A", Description: "WHITE HANGING HEART T-LIGHT HOLDER",
			Quantity: num("6"), UnitPrice: num("2.55"), Timestamp: ts("2010-12-01 08:26"),
			CustomerID: cust(17850), Country: "United Kingdom"},
		{InvoiceID: "536365", ProductID: "71053", Description: "WHITE METAL LANTERN",
			Quantity: num("6"), UnitPrice: num("3.39"), Timestamp: ts("2010-12-01 08:26"),
			CustomerID: cust(17850), Country: "United Kingdom"},
		{InvoiceID: "C536379", ProductID: "D", Description: "Discount",
			Quantity: num("-1"), UnitPrice: num("27.50"), Timestamp: ts("2010-12-01 09:41"),
			CustomerID: cust(14527), Country: "United Kingdom"},
		{InvoiceID: "536414", ProductID: "22139", Description: "nan",
			Quantity: num("56"), Timestamp: ts("2010-12-01 11:52"), Country: "United Kingdom"},
	})
}
