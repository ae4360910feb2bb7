package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical column names of the raw extract.
const (
	ColumnInvoiceID   = "invoice_id"
	ColumnProductID   = "product_id"
	ColumnDescription = "description"
	ColumnQuantity    = "quantity"
	ColumnUnitPrice   = "unit_price"
	ColumnTimestamp   = "timestamp"
	ColumnCustomerID  = "customer_id"
	ColumnCountry     = "country"
)

// RequiredColumns lists every column a RawRowSet must carry.
var RequiredColumns = []string{
	ColumnInvoiceID,
	ColumnProductID,
	ColumnDescription,
	ColumnQuantity,
	ColumnUnitPrice,
	ColumnTimestamp,
	ColumnCustomerID,
	ColumnCountry,
}

// CancellationPrefix marks an invoice as a reversal rather than a sale.
const CancellationPrefix = "C"

// SalesPlaces is the number of decimal places money is rounded to.
const SalesPlaces = 2

// RawRow is one order line of the denormalized extract.
// Empty strings, nil pointers and invalid NullDecimals represent nulls.
type RawRow struct {
	InvoiceID   string
	ProductID   string
	Description string
	Quantity    decimal.NullDecimal
	UnitPrice   decimal.NullDecimal
	Timestamp   *time.Time
	CustomerID  *int64
	Country     string
}

// IsCancellation reports whether the invoice carries the cancellation marker.
func (r RawRow) IsCancellation() bool {
	return strings.HasPrefix(r.InvoiceID, CancellationPrefix)
}

// LineSales returns quantity × unit_price rounded to two places.
// The second return value is false when either factor is null.
func (r RawRow) LineSales() (decimal.Decimal, bool) {
	if !r.Quantity.Valid || !r.UnitPrice.Valid {
		return decimal.Zero, false
	}
	return r.Quantity.Decimal.Mul(r.UnitPrice.Decimal).Round(SalesPlaces), true
}

// Date returns the civil date of the row timestamp as midnight UTC.
func (r RawRow) Date() (time.Time, bool) {
	if r.Timestamp == nil {
		return time.Time{}, false
	}
	return CivilDate(*r.Timestamp), true
}

// CivilDate truncates t to its wall-clock date, expressed as midnight UTC.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RawRowSet is the extract together with the columns it was read with.
type RawRowSet struct {
	Columns []string
	Rows    []RawRow
}

// NewRawRowSet builds a set carrying the full canonical column list.
func NewRawRowSet(rows []RawRow) RawRowSet {
	cols := make([]string, len(RequiredColumns))
	copy(cols, RequiredColumns)
	return RawRowSet{Columns: cols, Rows: rows}
}

// MissingColumns returns the required columns absent from the set.
func (s RawRowSet) MissingColumns() []string {
	present := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		present[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// RequireColumns fails with a SchemaMismatchError when required columns are absent.
func (s RawRowSet) RequireColumns() error {
	if missing := s.MissingColumns(); len(missing) > 0 {
		return NewSchemaMismatchError(missing)
	}
	return nil
}

// Len returns the number of rows in the set.
func (s RawRowSet) Len() int {
	return len(s.Rows)
}

var placeholderDescriptions = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
	"null": {},
}

// ValidDescription returns the trimmed description and whether it is a real
// value rather than a null placeholder left behind by upstream tooling.
func ValidDescription(s string) (string, bool) {
	v := strings.TrimSpace(s)
	if _, ok := placeholderDescriptions[strings.ToLower(v)]; ok {
		return "", false
	}
	return v, true
}
