package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// Source character encodings accepted by ReadTable.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1" // census population files ship as ISO-8859-1
)

// TableOptions configures CSV table reading.
type TableOptions struct {
	Encoding   string // "" or EncodingUTF8, or EncodingLatin1
	LazyQuotes bool
}

// Table is a fully-read CSV table with header-based column access.
// All cells are strings; type coercion is the cleaning stage's job.
type Table struct {
	Header []string
	Rows   [][]string

	colIdx map[string]int
}

// ReadTable reads an entire CSV table. The first row is the header; column
// lookups are case-insensitive.
func ReadTable(r io.Reader, opts TableOptions) (*Table, error) {
	switch opts.Encoding {
	case "", EncodingUTF8:
	case EncodingLatin1:
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	default:
		return nil, eris.Errorf("csv: unsupported encoding %q", opts.Encoding)
	}

	reader := csv.NewReader(r)
	reader.LazyQuotes = opts.LazyQuotes
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: empty table")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}

	return &Table{Header: header, Rows: rows, colIdx: colIdx}, nil
}

// HasColumns verifies the table contains all named columns.
func (t *Table) HasColumns(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := t.colIdx[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("csv: missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Col gets a column value by name from a row, returning "" if absent.
func (t *Table) Col(row []string, name string) string {
	idx, ok := t.colIdx[strings.ToLower(name)]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
