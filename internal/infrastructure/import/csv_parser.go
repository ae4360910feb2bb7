package csvimport

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Supported source encodings
const (
	EncodingUTF8        = "utf-8"
	EncodingLatin1      = "latin1"
	EncodingWindows1252 = "windows-1252"
)

// CSVParser reads a delimited extract row by row, keyed by header name
type CSVParser struct {
	delimiter  rune
	encoding   string
	lazyQuotes bool
	reader     *csv.Reader
	table
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithEncoding sets the source encoding (default utf-8)
func WithEncoding(enc string) ParserOption {
	return func(p *CSVParser) {
		p.encoding = strings.ToLower(strings.TrimSpace(enc))
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// NewCSVParser wraps r. UTF-8 input may start with a BOM; single-byte
// encodings are transcoded to UTF-8 before parsing.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	p := &CSVParser{
		delimiter:  ',',
		encoding:   EncodingUTF8,
		lazyQuotes: true,
		table:      newTable(),
	}
	for _, opt := range opts {
		opt(p)
	}

	var src io.Reader
	switch p.encoding {
	case EncodingUTF8, "utf8", "":
		buf := bufio.NewReader(r)
		if err := skipBOM(buf); err != nil {
			return nil, err
		}
		if err := validateUTF8(buf); err != nil {
			return nil, err
		}
		src = buf
	case EncodingLatin1, "iso-8859-1":
		src = charmap.ISO8859_1.NewDecoder().Reader(r)
	case EncodingWindows1252, "cp1252":
		src = charmap.Windows1252.NewDecoder().Reader(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, p.encoding)
	}

	p.reader = csv.NewReader(src)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = p.lazyQuotes
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1
	p.reader.ReuseRecord = false
	return p, nil
}

// skipBOM discards a leading UTF-8 byte order mark
func skipBOM(r *bufio.Reader) error {
	head, err := r.Peek(3)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return nil
}

// validateUTF8 checks the first block of input. A multi-byte rune cut at
// the block boundary is not an error.
func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}
	for len(content) > 0 {
		rn, size := utf8.DecodeRune(content)
		if rn == utf8.RuneError && size <= 1 {
			if len(content) < utf8.UTFMax && !utf8.FullRune(content) {
				return nil
			}
			return ErrInvalidEncoding
		}
		content = content[size:]
	}
	return nil
}

// ParseHeader reads the header row. Names are trimmed and mapped through
// canonical before indexing.
func (p *CSVParser) ParseHeader(canonical func(string) string) error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	return p.setHeader(record, canonical)
}

// ReadRow reads the next row. io.EOF marks the end of input.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	return p.row(record), nil
}
