package csvimport

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads one worksheet of a workbook row by row, keyed by header name.
// Cells are read raw, so date cells arrive as serial numbers; SerialTime
// converts them.
type XLSXParser struct {
	file     *excelize.File
	rows     *excelize.Rows
	date1904 bool
	table
}

// NewXLSXParser opens the workbook in r. An empty sheet name selects the first sheet.
func NewXLSXParser(r io.Reader, sheet string) (*XLSXParser, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			_ = f.Close()
			return nil, ErrEmptyFile
		}
		sheet = sheets[0]
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	p := &XLSXParser{file: f, rows: rows, table: newTable()}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		p.date1904 = *props.Date1904
	}
	return p, nil
}

func (p *XLSXParser) next() ([]string, error) {
	if !p.rows.Next() {
		if err := p.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return p.rows.Columns(excelize.Options{RawCellValue: true})
}

// ParseHeader reads the first row as the header
func (p *XLSXParser) ParseHeader(canonical func(string) string) error {
	record, err := p.next()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	return p.setHeader(record, canonical)
}

// ReadRow reads the next row. io.EOF marks the end of the sheet.
func (p *XLSXParser) ReadRow() (*Row, error) {
	record, err := p.next()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	return p.row(record), nil
}

// SerialTime converts a spreadsheet date serial such as "40513.35" to a
// wall-clock time, rounded to the second.
func (p *XLSXParser) SerialTime(v string) (time.Time, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, p.date1904)
	if err != nil {
		return time.Time{}, false
	}
	t = t.Round(time.Second)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
}

// Close releases the workbook
func (p *XLSXParser) Close() error {
	if err := p.rows.Close(); err != nil {
		_ = p.file.Close()
		return err
	}
	return p.file.Close()
}
