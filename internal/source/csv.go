// Package source reads the schema and grants spreadsheets exported as CSV.
//
// Rows are returned keyed by normalized header name so that column order in
// the file does not matter and columns may be added or dropped between
// versions of the template. Blank rows and repeated header rows are skipped.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Row is one data record keyed by normalized header.
type Row struct {
	Line   int
	Values map[string]string
}

// Get returns the trimmed cell for the first header key present.
func (r Row) Get(keys ...string) string {
	for _, k := range keys {
		if v, ok := r.Values[k]; ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Raw returns the cell for key without trimming.
func (r Row) Raw(key string) (string, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// Has reports whether any of keys is a header of the file.
func (r Row) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r.Values[k]; ok {
			return true
		}
	}
	return false
}

// Table is a parsed CSV file.
type Table struct {
	Headers []string
	Rows    []Row
}

// ReadFile opens path and parses it with the given encoding
// ("utf-8" or "windows-1252").
func ReadFile(path, enc string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f, enc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. A UTF-8 BOM is always stripped.
func Read(r io.Reader, enc string) (*Table, error) {
	dec, err := decoder(enc)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(dec.NewDecoder())))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = NormalizeHeader(h)
	}

	t := &Table{Headers: keys}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("line %d: %w", perr.StartLine, err)
		}
		if err != nil {
			return nil, err
		}
		if isBlank(rec) || isHeader(rec, keys) {
			continue
		}
		// Start line of the record; quoted cells may span lines.
		line, _ := cr.FieldPos(0)

		values := make(map[string]string, len(keys))
		for i, k := range keys {
			if k == "" {
				continue
			}
			if i < len(rec) {
				values[k] = rec[i]
			} else {
				values[k] = ""
			}
		}
		t.Rows = append(t.Rows, Row{Line: line, Values: values})
	}

	return t, nil
}

func decoder(enc string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}

// NormalizeHeader maps a header cell to its lookup key: lower case, with any
// parenthesized hint dropped and runs of non-alphanumerics collapsed to "_".
// "LOB Compression (LOW, MEDIUM, HIGH)" becomes "lob_compression".
func NormalizeHeader(h string) string {
	if i := strings.IndexByte(h, '('); i >= 0 {
		h = h[:i]
	}
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// isHeader detects a header row repeated further down the sheet: every
// non-empty cell names its own column.
func isHeader(rec []string, keys []string) bool {
	matched := false
	for i, v := range rec {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if i >= len(keys) || keys[i] == "" || NormalizeHeader(v) != keys[i] {
			return false
		}
		matched = true
	}
	return matched
}
