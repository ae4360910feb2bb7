package csvimport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFname,age\nAlice,30"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader(nil))
		assert.Equal(t, "name", parser.Headers()[0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.Nil(t, parser)
	})

	t.Run("Invalid UTF-8 is rejected", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("name\nCaf\xe9\n"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("Latin-1 is transcoded", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("name\nCaf\xe9\n"), WithEncoding("LATIN1"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader(nil))

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "Café", row.Get("name"))
	})

	t.Run("Windows-1252 is transcoded", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("price\n\x8010\n"), WithEncoding(EncodingWindows1252))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader(nil))

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "€10", row.Get("price"))
	})

	t.Run("Unknown encoding", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("a\n1"), WithEncoding("ebcdic"))
		assert.ErrorIs(t, err, ErrUnsupportedEncoding)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("name;age;city\nAlice;30;NYC"), WithDelimiter(';'))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader(nil))
		assert.Equal(t, []string{"name", "age", "city"}, parser.Headers())
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("Headers are trimmed and canonicalized", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(" InvoiceNo , StockCode\n1,A"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader(CanonicalColumn))

		assert.Equal(t, []string{"invoice_id", "product_id"}, parser.Headers())
		assert.True(t, parser.HasHeader("invoice_id"))
		assert.Equal(t, []string{"country"}, parser.MissingHeaders([]string{"invoice_id", "country"}))
	})

	t.Run("Header only file has no rows", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("a,b\n"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader(nil))

		_, err = parser.ReadRow()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("Missing header on empty decoded input", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(""), WithEncoding(EncodingLatin1))
		require.NoError(t, err)
		assert.ErrorIs(t, parser.ParseHeader(nil), ErrMissingHeader)
	})
}

func TestReadRow(t *testing.T) {
	parser, err := NewCSVParser(strings.NewReader("a,b,c\n 1 , 2\n\n,,\n"))
	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader(nil))

	row, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, "1", row.Get("a"))
	assert.Equal(t, "2", row.Get("b"))
	assert.Equal(t, "", row.Get("c"), "short rows pad with empty values")
	assert.False(t, row.IsEmpty())

	row, err = parser.ReadRow()
	require.NoError(t, err)
	assert.True(t, row.IsEmpty())

	assert.Equal(t, 2, parser.TotalRows())
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	assert.False(t, ec.HasErrors())
	assert.Equal(t, "no errors", ec.String())

	ec.AddTypeError(2, "quantity", "decimal", "abc")
	ec.AddFormatError(3, "timestamp", "date", "yesterday")
	ec.AddTypeError(4, "quantity", "decimal", "x")

	assert.True(t, ec.HasErrors())
	assert.True(t, ec.IsTruncated())
	assert.Equal(t, 2, ec.Count())
	assert.Equal(t, 3, ec.TotalCount())
	assert.Equal(t, map[string]int{"quantity": 1, "timestamp": 1}, ec.ErrorSummary())
	assert.Contains(t, ec.String(), "3 error(s) found (showing first 2)")
	assert.Equal(t, "row 2, column 'quantity': expected decimal", ec.Errors()[0].Error())
	assert.Equal(t, "row 7: bad quote", RowError{Row: 7, Message: "bad quote"}.Error())
}
