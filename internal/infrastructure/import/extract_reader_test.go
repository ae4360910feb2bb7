package csvimport

import (
	"strings"
	"testing"
	"time"

	"github.com/salesbi/backend/internal/domain/sales"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const retailHeader = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n"

func TestReadExtract(t *testing.T) {
	input := retailHeader +
		"536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,2010-12-01 08:26:00,2.55,17850.0,United Kingdom\n" +
		"C536379,D,Discount,-1,12/1/2010 9:41,27.50,14527,United Kingdom\n" +
		"536414,22139,,56,2010-12-01 11:52:00,,,United Kingdom\n" +
		",,,,,,,\n"

	res, err := ReadExtract(strings.NewReader(input), ReaderOptions{})
	require.NoError(t, err)
	require.NoError(t, res.Set.RequireColumns())
	require.Equal(t, 3, res.Set.Len(), "blank lines are skipped")
	assert.False(t, res.Errors.HasErrors())

	first := res.Set.Rows[0]
	assert.Equal(t, "536365", first.InvoiceID)
	assert.Equal(t, "85123A", first.ProductID)
	assert.Equal(t, "2.55", first.UnitPrice.Decimal.String())
	require.NotNil(t, first.CustomerID)
	assert.Equal(t, int64(17850), *first.CustomerID)
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), *first.Timestamp)

	second := res.Set.Rows[1]
	assert.True(t, second.IsCancellation())
	require.NotNil(t, second.Timestamp)
	assert.Equal(t, time.Date(2010, 12, 1, 9, 41, 0, 0, time.UTC), *second.Timestamp)

	third := res.Set.Rows[2]
	assert.Empty(t, third.Description)
	assert.False(t, third.UnitPrice.Valid)
	assert.Nil(t, third.CustomerID)
}

func TestReadExtract_Coercion(t *testing.T) {
	input := retailHeader +
		"1,A,x,two,2010-12-01 08:26:00,1.00,17850.5,UK\n" +
		"2,B,y,1,someday,abc,not-a-number,UK\n"

	res, err := ReadExtract(strings.NewReader(input), ReaderOptions{MaxErrors: 10})
	require.NoError(t, err)
	require.Equal(t, 2, res.Set.Len(), "coercion failures null the cell, not the row")

	assert.False(t, res.Set.Rows[0].Quantity.Valid)
	assert.Nil(t, res.Set.Rows[0].CustomerID)
	assert.Nil(t, res.Set.Rows[1].Timestamp)
	assert.False(t, res.Set.Rows[1].UnitPrice.Valid)

	assert.Equal(t, 5, res.Errors.TotalCount())
	codes := make(map[string]int)
	for _, e := range res.Errors.Errors() {
		codes[e.Code]++
	}
	assert.Equal(t, 1, codes[ErrCodeImportNotIntegral])
	assert.Equal(t, 1, codes[ErrCodeImportInvalidFormat])
	assert.Equal(t, 3, codes[ErrCodeImportInvalidType])
	assert.Equal(t, 2, res.Errors.Errors()[0].Row)
}

func TestReadExtract_Options(t *testing.T) {
	t.Run("canonical headers, delimiter and layouts", func(t *testing.T) {
		input := "invoice_id;product_id;description;quantity;timestamp;unit_price;customer_id;country\n" +
			"1;A;Widget;2;01.12.2010 08:26;1,5;;DE\n"

		res, err := ReadExtract(strings.NewReader(input), ReaderOptions{
			Delimiter:   ';',
			DateLayouts: []string{"02.01.2006 15:04"},
		})
		require.NoError(t, err)
		require.Equal(t, 1, res.Set.Len())

		row := res.Set.Rows[0]
		require.NotNil(t, row.Timestamp)
		assert.Equal(t, time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), *row.Timestamp)
		assert.False(t, row.UnitPrice.Valid, "decimal comma is not a number")
		assert.Equal(t, 1, res.Errors.TotalCount())
	})

	t.Run("zoned timestamps keep their wall clock", func(t *testing.T) {
		input := retailHeader + "1,A,x,1,2010-12-01T23:30:00-05:00,1,,US\n"

		res, err := ReadExtract(strings.NewReader(input), ReaderOptions{})
		require.NoError(t, err)
		d, ok := res.Set.Rows[0].Date()
		require.True(t, ok)
		assert.Equal(t, time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("latin1 extract", func(t *testing.T) {
		input := retailHeader + "1,A,CR\xc8ME BRUL\xc9E,1,2010-12-01,1,,France\n"

		res, err := ReadExtract(strings.NewReader(input), ReaderOptions{Encoding: "latin1"})
		require.NoError(t, err)
		assert.Equal(t, "CRÈME BRULÉE", res.Set.Rows[0].Description)
	})

	t.Run("lazy quotes keep a stray quote", func(t *testing.T) {
		input := retailHeader + "1,A,12\" RULER,1,2010-12-01,1,,UK\n"

		res, err := ReadExtract(strings.NewReader(input), ReaderOptions{LazyQuotes: true})
		require.NoError(t, err)
		require.Len(t, res.Set.Rows, 1)
		assert.Equal(t, "12\" RULER", res.Set.Rows[0].Description)
		assert.False(t, res.Errors.HasErrors())
	})
}

func TestReadExtract_SchemaMismatch(t *testing.T) {
	input := "InvoiceNo,StockCode,Quantity\n1,A,1\n"

	_, err := ReadExtract(strings.NewReader(input), ReaderOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, sales.ErrSchemaMismatch)

	var mismatch *sales.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Missing, sales.ColumnTimestamp)
	assert.NotContains(t, mismatch.Missing, sales.ColumnInvoiceID)
}

func TestCanonicalColumn(t *testing.T) {
	assert.Equal(t, "invoice_id", CanonicalColumn("InvoiceNo"))
	assert.Equal(t, "customer_id", CanonicalColumn(" Customer ID "))
	assert.Equal(t, "unit_price", CanonicalColumn("Price"))
	assert.Equal(t, "unit_price", CanonicalColumn("unit_price"))
	assert.Equal(t, "extra", CanonicalColumn("Extra"))
}
