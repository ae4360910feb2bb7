package quality

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// TopN is the maximum length of each ranked list in a Report.
const TopN = 10

// Metric names in report order.
const (
	MetricTotalRows            = "total_rows"
	MetricDistinctInvoices     = "distinct_invoices"
	MetricDistinctCustomers    = "distinct_customers_non_null"
	MetricDistinctProducts     = "distinct_products"
	MetricMissingCustomerRows  = "missing_customer_rows"
	MetricMissingCustomerPct   = "missing_customer_pct"
	MetricCancellationRows     = "cancellation_rows"
	MetricCancellationPct      = "cancellation_pct"
	MetricNegativeQuantityRows = "negative_quantity_rows"
	MetricNegativeQuantityPct  = "negative_quantity_pct"
	MetricZeroQuantityRows     = "zero_quantity_rows"
	MetricNegativePriceRows    = "negative_price_rows"
	MetricNullInvoiceDateRows  = "null_invoice_date_rows"
	MetricDroppedCriticalRows  = "dropped_critical_rows"
	MetricDateRangeStart       = "date_range_start"
	MetricDateRangeEnd         = "date_range_end"
)

// TimestampLayout is how date range metrics are rendered.
const TimestampLayout = "2006-01-02 15:04:05"

// CountryCount is one entry of the country ranking.
type CountryCount struct {
	Country  string `json:"country"`
	RowCount int    `json:"row_count"`
}

// ProductRevenue is one entry of the product ranking.
type ProductRevenue struct {
	ProductID   string          `json:"product_id"`
	Description string          `json:"description"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// Report is a snapshot of raw extract health.
// Percentages are nil when there are no rows to divide by.
type Report struct {
	TotalRows            int
	DistinctInvoices     int
	DistinctCustomers    int
	DistinctProducts     int
	MissingCustomerRows  int
	MissingCustomerPct   *decimal.Decimal
	CancellationRows     int
	CancellationPct      *decimal.Decimal
	NegativeQuantityRows int
	NegativeQuantityPct  *decimal.Decimal
	ZeroQuantityRows     int
	NegativePriceRows    int
	NullInvoiceDateRows  int
	DroppedCriticalRows  int
	DateRangeStart       *time.Time
	DateRangeEnd         *time.Time
	TopCountries         []CountryCount
	TopProducts          []ProductRevenue
}

// Metric is one rendered key-value pair of a Report.
// Null is set when the value is the empty sentinel.
type Metric struct {
	Name  string
	Value string
	Null  bool
}

// Metrics returns the report as ordered key-value pairs.
func (r *Report) Metrics() []Metric {
	return []Metric{
		intMetric(MetricTotalRows, r.TotalRows),
		intMetric(MetricDistinctInvoices, r.DistinctInvoices),
		intMetric(MetricDistinctCustomers, r.DistinctCustomers),
		intMetric(MetricDistinctProducts, r.DistinctProducts),
		intMetric(MetricMissingCustomerRows, r.MissingCustomerRows),
		pctMetric(MetricMissingCustomerPct, r.MissingCustomerPct),
		intMetric(MetricCancellationRows, r.CancellationRows),
		pctMetric(MetricCancellationPct, r.CancellationPct),
		intMetric(MetricNegativeQuantityRows, r.NegativeQuantityRows),
		pctMetric(MetricNegativeQuantityPct, r.NegativeQuantityPct),
		intMetric(MetricZeroQuantityRows, r.ZeroQuantityRows),
		intMetric(MetricNegativePriceRows, r.NegativePriceRows),
		intMetric(MetricNullInvoiceDateRows, r.NullInvoiceDateRows),
		intMetric(MetricDroppedCriticalRows, r.DroppedCriticalRows),
		timeMetric(MetricDateRangeStart, r.DateRangeStart),
		timeMetric(MetricDateRangeEnd, r.DateRangeEnd),
	}
}

// Percentages returns the non-null percentage metrics keyed by name.
func (r *Report) Percentages() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, 3)
	for name, v := range map[string]*decimal.Decimal{
		MetricMissingCustomerPct:  r.MissingCustomerPct,
		MetricCancellationPct:     r.CancellationPct,
		MetricNegativeQuantityPct: r.NegativeQuantityPct,
	} {
		if v != nil {
			out[name] = *v
		}
	}
	return out
}

func intMetric(name string, v int) Metric {
	return Metric{Name: name, Value: strconv.Itoa(v)}
}

func pctMetric(name string, v *decimal.Decimal) Metric {
	if v == nil {
		return Metric{Name: name, Null: true}
	}
	return Metric{Name: name, Value: v.StringFixed(2)}
}

func timeMetric(name string, v *time.Time) Metric {
	if v == nil {
		return Metric{Name: name, Null: true}
	}
	return Metric{Name: name, Value: v.Format(TimestampLayout)}
}
