package csvimport

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var retailColumns = []any{"InvoiceNo", "StockCode", "Description", "Quantity", "InvoiceDate", "UnitPrice", "CustomerID", "Country"}

// newWorkbook writes rows to the first sheet of a fresh workbook
func newWorkbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadExtract_Workbook(t *testing.T) {
	invoiced := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	wb := newWorkbook(t,
		retailColumns,
		[]any{"536365", "85123A", "WHITE HANGING HEART T-LIGHT HOLDER", 6, invoiced, 2.55, 17850, "United Kingdom"},
		[]any{"C536379", "D", "Discount", -1, "12/1/2010 9:41", 27.5, nil, "United Kingdom"},
	)

	res, err := ReadExtract(wb, ReaderOptions{Format: FormatXLSX})
	require.NoError(t, err)
	require.Len(t, res.Set.Rows, 2)
	assert.False(t, res.Errors.HasErrors(), res.Errors.String())

	first := res.Set.Rows[0]
	assert.Equal(t, "536365", first.InvoiceID)
	assert.Equal(t, "WHITE HANGING HEART T-LIGHT HOLDER", first.Description)
	assert.True(t, first.Quantity.Decimal.Equal(decimal.NewFromInt(6)))
	assert.True(t, first.UnitPrice.Decimal.Equal(decimal.RequireFromString("2.55")))
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, invoiced, *first.Timestamp)
	require.NotNil(t, first.CustomerID)
	assert.Equal(t, int64(17850), *first.CustomerID)

	second := res.Set.Rows[1]
	assert.True(t, second.IsCancellation())
	assert.Nil(t, second.CustomerID)
	require.NotNil(t, second.Timestamp)
	assert.Equal(t, time.Date(2010, 12, 1, 9, 41, 0, 0, time.UTC), *second.Timestamp)
}

func TestReadExtract_WorkbookErrors(t *testing.T) {
	t.Run("missing columns", func(t *testing.T) {
		wb := newWorkbook(t, []any{"InvoiceNo", "StockCode", "Quantity"}, []any{"1", "A", 1})

		_, err := ReadExtract(wb, ReaderOptions{Format: FormatXLSX})
		require.Error(t, err)
		assert.ErrorIs(t, err, sales.ErrSchemaMismatch)
	})

	t.Run("empty sheet has no header", func(t *testing.T) {
		_, err := ReadExtract(newWorkbook(t), ReaderOptions{Format: FormatXLSX})
		assert.ErrorIs(t, err, ErrMissingHeader)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		wb := newWorkbook(t, retailColumns)

		_, err := ReadExtract(wb, ReaderOptions{Format: FormatXLSX, Sheet: "Year 2011"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Year 2011")
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := ReadExtract(strings.NewReader(retailHeader), ReaderOptions{Format: FormatXLSX})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open workbook")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := ReadExtract(strings.NewReader(retailHeader), ReaderOptions{Format: "parquet"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported extract format")
	})
}

func TestXLSXParser_SerialTime(t *testing.T) {
	p := &XLSXParser{}

	got, ok := p.SerialTime("40513.35138888889")
	require.True(t, ok)
	assert.Equal(t, time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), got)

	_, ok = p.SerialTime("yesterday")
	assert.False(t, ok)
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"data/raw/Online Retail.xlsx", FormatXLSX},
		{"s3://extracts/2011/online_retail.XLSX", FormatXLSX},
		{"data/raw/online_retail.csv", FormatCSV},
		{"data/raw/extract", FormatCSV},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFor(tt.source))
		})
	}
}
