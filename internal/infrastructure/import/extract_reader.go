package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// headerAliases maps lower-cased source headers to canonical column names
var headerAliases = map[string]string{
	"invoiceno":   sales.ColumnInvoiceID,
	"invoice":     sales.ColumnInvoiceID,
	"stockcode":   sales.ColumnProductID,
	"description": sales.ColumnDescription,
	"quantity":    sales.ColumnQuantity,
	"invoicedate": sales.ColumnTimestamp,
	"unitprice":   sales.ColumnUnitPrice,
	"price":       sales.ColumnUnitPrice,
	"customerid":  sales.ColumnCustomerID,
	"customer id": sales.ColumnCustomerID,
	"country":     sales.ColumnCountry,
}

// DefaultDateLayouts are tried in order when no layouts are configured
var DefaultDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"1/2/2006",
}

// CanonicalColumn maps a source header onto its canonical column name.
// Matching is case-insensitive; unknown headers are returned lower-cased.
func CanonicalColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if c, ok := headerAliases[h]; ok {
		return c
	}
	return h
}

// Extract formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// FormatFor picks the extract format from the extension of a path or URL
func FormatFor(source string) string {
	switch strings.ToLower(path.Ext(source)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	}
	return FormatCSV
}

// ReaderOptions configures ReadExtract. Delimiter, Encoding and LazyQuotes
// apply to delimited text only; Sheet applies to workbooks only.
type ReaderOptions struct {
	Format      string
	Delimiter   rune
	Encoding    string
	DateLayouts []string
	MaxErrors   int
	LazyQuotes  bool
	Sheet       string
}

type rowReader interface {
	ParseHeader(canonical func(string) string) error
	MissingHeaders(required []string) []string
	ReadRow() (*Row, error)
	CurrentRow() int
}

// ExtractResult is a parsed extract with its coercion problems
type ExtractResult struct {
	Set    sales.RawRowSet
	Errors *ErrorCollection
}

// ReadExtract parses a delimited extract or a workbook into raw rows. Values
// that fail to coerce become nulls and are recorded in the result's
// ErrorCollection; only unreadable input or missing required headers abort.
func ReadExtract(r io.Reader, opts ReaderOptions) (*ExtractResult, error) {
	c := &coercer{
		layouts: opts.DateLayouts,
		errs:    NewErrorCollection(opts.MaxErrors),
	}
	if len(c.layouts) == 0 {
		c.layouts = DefaultDateLayouts
	}

	var p rowReader
	switch opts.Format {
	case FormatCSV, "":
		parserOpts := []ParserOption{WithEncoding(opts.Encoding), WithLazyQuotes(opts.LazyQuotes)}
		if opts.Delimiter != 0 {
			parserOpts = append(parserOpts, WithDelimiter(opts.Delimiter))
		}
		cp, err := NewCSVParser(r, parserOpts...)
		if err != nil {
			return nil, err
		}
		p = cp
	case FormatXLSX:
		xp, err := NewXLSXParser(r, opts.Sheet)
		if err != nil {
			return nil, err
		}
		defer func() { _ = xp.Close() }()
		c.serial = xp.SerialTime
		p = xp
	default:
		return nil, fmt.Errorf("unsupported extract format %q", opts.Format)
	}

	if err := p.ParseHeader(CanonicalColumn); err != nil {
		return nil, err
	}
	if missing := p.MissingHeaders(sales.RequiredColumns); len(missing) > 0 {
		return nil, sales.NewSchemaMismatchError(missing)
	}

	var rows []sales.RawRow
	for {
		row, err := p.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				c.errs.Add(RowError{Row: p.CurrentRow(), Code: ErrCodeImportCSVParsing, Message: err.Error()})
				continue
			}
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, c.rawRow(row))
	}

	return &ExtractResult{
		Set:    sales.NewRawRowSet(rows),
		Errors: c.errs,
	}, nil
}

type coercer struct {
	layouts []string
	serial  func(string) (time.Time, bool)
	errs    *ErrorCollection
}

func (c *coercer) rawRow(row *Row) sales.RawRow {
	return sales.RawRow{
		InvoiceID:   row.Get(sales.ColumnInvoiceID),
		ProductID:   row.Get(sales.ColumnProductID),
		Description: row.Get(sales.ColumnDescription),
		Quantity:    c.decimal(row, sales.ColumnQuantity),
		UnitPrice:   c.decimal(row, sales.ColumnUnitPrice),
		Timestamp:   c.timestamp(row, sales.ColumnTimestamp),
		CustomerID:  c.customerID(row, sales.ColumnCustomerID),
		Country:     row.Get(sales.ColumnCountry),
	}
}

func (c *coercer) decimal(row *Row, column string) decimal.NullDecimal {
	v := row.Get(column)
	if v == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		c.errs.AddTypeError(row.LineNumber, column, "decimal", v)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// customerID accepts integral values, including spreadsheet exports such as "17850.0"
func (c *coercer) customerID(row *Row, column string) *int64 {
	v := row.Get(column)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		c.errs.AddTypeError(row.LineNumber, column, "integer", v)
		return nil
	}
	if !d.Equal(d.Truncate(0)) || !d.Truncate(0).BigInt().IsInt64() {
		c.errs.Add(RowError{Row: row.LineNumber, Column: column, Code: ErrCodeImportNotIntegral,
			Message: "expected a whole number", Value: v})
		return nil
	}
	id := d.IntPart()
	return &id
}

func (c *coercer) timestamp(row *Row, column string) *time.Time {
	v := row.Get(column)
	if v == "" {
		return nil
	}
	for _, layout := range c.layouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			// keep the wall clock of zoned values; the extract has no time zone semantics
			wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
			return &wall
		}
	}
	if c.serial != nil {
		if t, ok := c.serial(v); ok {
			return &t
		}
	}
	c.errs.AddFormatError(row.LineNumber, column, fmt.Sprintf("one of %d date layouts", len(c.layouts)), v)
	return nil
}
