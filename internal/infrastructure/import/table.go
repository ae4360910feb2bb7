package csvimport

import "strings"

// table indexes records by header name. Both extract formats share it.
type table struct {
	headerMap  map[string]int
	headers    []string
	currentRow int
	totalRows  int
}

func newTable() table {
	return table{headerMap: make(map[string]int)}
}

// setHeader indexes record as the header row. The first of duplicate names wins.
func (t *table) setHeader(record []string, canonical func(string) string) error {
	t.headers = make([]string, len(record))
	for i, h := range record {
		name := strings.TrimSpace(h)
		if canonical != nil {
			name = canonical(name)
		}
		t.headers[i] = name
		if _, dup := t.headerMap[name]; !dup {
			t.headerMap[name] = i
		}
	}
	if len(t.headers) == 0 {
		return ErrMissingHeader
	}
	t.currentRow = 1
	return nil
}

// row keys record by header. Short records pad with empty values.
func (t *table) row(record []string) *Row {
	t.totalRows++
	row := &Row{
		LineNumber: t.currentRow,
		Data:       make(map[string]string, len(t.headers)),
	}
	for name, i := range t.headerMap {
		if i < len(record) {
			row.Data[name] = strings.TrimSpace(record[i])
		} else {
			row.Data[name] = ""
		}
	}
	return row
}

// Headers returns the parsed header names
func (t *table) Headers() []string {
	return t.headers
}

// HasHeader checks if a header exists
func (t *table) HasHeader(name string) bool {
	_, ok := t.headerMap[name]
	return ok
}

// CurrentRow returns the current row number (1-indexed, header included)
func (t *table) CurrentRow() int {
	return t.currentRow
}

// TotalRows returns the total number of data rows read
func (t *table) TotalRows() int {
	return t.totalRows
}

// MissingHeaders returns the required headers not present
func (t *table) MissingHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !t.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row represents a parsed row with its line number
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the trimmed value for a column, or "" when absent
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}
