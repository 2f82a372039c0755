package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hurou927/ora-schema-gen/internal/source"
)

// maxCharLength is the largest VARCHAR2/CHAR length in a standard database
// configuration.
const maxCharLength = 4000

// defaultKeywords are column defaults emitted unquoted on character columns.
var defaultKeywords = map[string]bool{
	"SYSDATE":           true,
	"SYSTIMESTAMP":      true,
	"USER":              true,
	"CURRENT_DATE":      true,
	"CURRENT_TIMESTAMP": true,
	"NULL":              true,
}

// Row is a normalized schema input record: one column plus the table-level
// attributes repeated on every row of its table.
type Row struct {
	Line   int
	Schema string
	Table  string
	Column Column

	Audit        bool
	History      bool
	TableComment string

	// Warnings lists non-fatal adjustments made while normalizing.
	Warnings []string
}

// NormalizeRow converts one raw CSV record into a typed Row.
func NormalizeRow(raw source.Row) (Row, error) {
	line := raw.Line
	r := Row{
		Line:         line,
		Schema:       upper(raw.Get("schema")),
		Table:        upper(raw.Get("table", "table_name")),
		TableComment: stripQuotes(raw.Get("table_comment")),
	}

	c := Column{
		Name:    upper(raw.Get("field", "column", "column_name")),
		Type:    upper(raw.Get("type", "data_type")),
		Check:   raw.Get("check_constraint", "simple_check_constraint"),
		Comment: stripQuotes(raw.Get("column_comment")),
	}
	if r.Table == "" {
		return Row{}, malformed(line, "table", "", errors.New("table name is required"))
	}
	if c.Name == "" {
		return Row{}, malformed(line, "field", "", errors.New("field name is required"))
	}
	if c.Type == "" {
		return Row{}, malformed(line, "type", "", errors.New("type is required"))
	}

	var err error
	bools := []struct {
		field string
		keys  []string
		dst   *bool
	}{
		{"invisible", []string{"invisible"}, &c.Invisible},
		{"virtual", []string{"virtual"}, &c.Virtual},
		{"gen audit columns", []string{"gen_audit_columns"}, &r.Audit},
		{"gen history table", []string{"gen_history_table", "gen_history_tables"}, &r.History},
	}
	for _, b := range bools {
		if *b.dst, err = parseBool(line, b.field, raw.Get(b.keys...)); err != nil {
			return Row{}, err
		}
	}

	if c.PrimaryKey, err = parsePrimaryKey(line, raw.Get("primary_key")); err != nil {
		return Row{}, err
	}

	switch {
	case raw.Has("not_null"):
		if c.NotNull, err = parseBool(line, "not null", raw.Get("not_null")); err != nil {
			return Row{}, err
		}
	case raw.Has("nullable"):
		// An empty Nullable cell keeps the column nullable.
		v := raw.Get("nullable")
		nullable := v == ""
		if !nullable {
			if nullable, err = parseBool(line, "nullable", v); err != nil {
				return Row{}, err
			}
		}
		c.NotNull = !nullable
	}

	if c.Size, err = parseSize(line, c.Type, raw.Get("size"), &r.Warnings); err != nil {
		return Row{}, err
	}
	if c.Units, err = parseUnits(line, raw.Get("units")); err != nil {
		return Row{}, err
	}
	if !c.IsCharacter() {
		c.Units = ""
	}

	if v, ok := raw.Raw("default"); ok && strings.TrimSpace(v) != "" {
		c.Default = formatDefault(c.Type, strings.TrimSpace(v))
	}

	if c.Index, err = ParseIndexTokens(raw.Get("index")); err != nil {
		return Row{}, malformed(line, "index", raw.Get("index"), err)
	}

	c.VirtualExpr = raw.Get("virtual_expression", "virtual_expr")
	switch {
	case c.Virtual && c.VirtualExpr == "":
		return Row{}, missingPair(line, "virtual", "virtual expression")
	case !c.Virtual && c.VirtualExpr != "":
		return Row{}, missingPair(line, "virtual expression", "virtual")
	}

	fkTable, fkField := upper(raw.Get("fk_to_table")), upper(raw.Get("fk_to_field"))
	switch {
	case fkTable != "" && fkField == "":
		return Row{}, missingPair(line, "fk to table", "fk to field")
	case fkTable == "" && fkField != "":
		return Row{}, missingPair(line, "fk to field", "fk to table")
	case fkTable != "":
		c.FK = &ColumnRef{Table: fkTable, Column: fkField}
	}

	if c.Sequence, err = parseSequence(line, raw); err != nil {
		return Row{}, err
	}

	if c.LOBOptions, err = parseLOBOptions(line, raw); err != nil {
		return Row{}, err
	}

	r.Column = c
	return r, nil
}

// ParseIndexTokens parses an Index cell such as "Y", "U1" or "Y,U2".
func ParseIndexTokens(cell string) ([]IndexToken, error) {
	var tokens []IndexToken
	for _, part := range strings.Split(cell, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		var tok IndexToken
		switch part[0] {
		case 'Y':
			tok.Kind = NonUnique
		case 'U':
			tok.Kind = Unique
		default:
			return nil, fmt.Errorf("%w %q: expected Y or U", ErrInvalidToken, part)
		}
		if rest := part[1:]; rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 0 || strings.ContainsAny(rest, "+-") {
				return nil, fmt.Errorf("%w %q: group id must be a number", ErrInvalidToken, part)
			}
			tok.Group, tok.Grouped = n, true
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// NormalizeGrant converts one grants record. Every header other than the
// table identification columns is a privilege; a cell of X or Y grants it.
func NormalizeGrant(raw source.Row, headers []string) (Grant, error) {
	g := Grant{
		Schema:  upper(raw.Get("schema")),
		Table:   upper(raw.Get("table", "table_name")),
		Grantee: upper(raw.Get("grantee", "user")),
	}
	if g.Table == "" {
		return Grant{}, malformed(raw.Line, "table", "", errors.New("table name is required"))
	}
	if g.Grantee == "" {
		return Grant{}, malformed(raw.Line, "grantee", "", errors.New("grantee is required"))
	}

	for _, h := range headers {
		switch h {
		case "", "schema", "table", "table_name", "grantee", "user", "select":
			continue
		}
		v := strings.ToUpper(raw.Get(h))
		switch v {
		case "X", "Y":
			g.Privileges = append(g.Privileges, strings.ToUpper(strings.ReplaceAll(h, "_", " ")))
		case "", "N":
		default:
			return Grant{}, malformed(raw.Line, h, v, fmt.Errorf("%w: expected X, Y, N or empty", ErrInvalidToken))
		}
	}
	return g, nil
}

func parseBool(line int, field, v string) (bool, error) {
	switch strings.ToUpper(v) {
	case "Y":
		return true, nil
	case "N", "":
		return false, nil
	default:
		return false, malformed(line, field, v, fmt.Errorf("%w: expected Y, N or empty", ErrInvalidToken))
	}
}

func parseFlag(line int, field, v string) (Flag, error) {
	switch strings.ToUpper(v) {
	case "Y":
		return Yes, nil
	case "N":
		return No, nil
	case "":
		return Unset, nil
	default:
		return Unset, malformed(line, field, v, fmt.Errorf("%w: expected Y, N or empty", ErrInvalidToken))
	}
}

func parsePrimaryKey(line int, v string) (bool, error) {
	switch strings.ToUpper(v) {
	case "Y":
		return true, nil
	case "":
		return false, nil
	default:
		return false, malformed(line, "primary key", v, fmt.Errorf("%w: expected Y or empty", ErrInvalidToken))
	}
}

func parseSize(line int, typ, v string, warnings *[]string) (*Size, error) {
	if v == "" {
		return nil, nil
	}

	switch {
	case isCharType(typ):
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, malformed(line, "size", v, errors.New("must be an integer"))
		}
		if n < 1 {
			*warnings = append(*warnings, fmt.Sprintf("size %d below 1 ignored", n))
			return nil, nil
		}
		if n > maxCharLength {
			*warnings = append(*warnings, fmt.Sprintf("size %d clamped to %d", n, maxCharLength))
			n = maxCharLength
		}
		return &Size{Length: n}, nil

	case typ == "NUMBER":
		p, s, hasScale := strings.Cut(v, ",")
		prec, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, malformed(line, "size", v, errors.New("must be precision or precision,scale"))
		}
		size := &Size{Length: prec}
		if hasScale {
			scale, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, malformed(line, "size", v, errors.New("must be precision or precision,scale"))
			}
			size.Scale, size.HasScale = scale, true
		}
		return size, nil

	case typ == "RAW", typ == "FLOAT", typ == "TIMESTAMP":
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, malformed(line, "size", v, errors.New("must be an integer"))
		}
		return &Size{Length: n}, nil

	default:
		*warnings = append(*warnings, fmt.Sprintf("size ignored for type %s", typ))
		return nil, nil
	}
}

func parseUnits(line int, v string) (string, error) {
	switch u := strings.ToUpper(v); u {
	case "", "BYTE", "CHAR":
		return u, nil
	default:
		return "", malformed(line, "units", v, fmt.Errorf("%w: expected BYTE, CHAR or empty", ErrInvalidToken))
	}
}

func parseSequence(line int, raw source.Row) (*SequenceSpec, error) {
	start := raw.Get("sequence_start")
	name := upper(raw.Get("sequence_name"))

	cycle, err := parseBool(line, "sequence cycle", raw.Get("sequence_cycle"))
	if err != nil {
		return nil, err
	}
	pop, err := parseBool(line, "pop by trigger", raw.Get("pop_by_trigger"))
	if err != nil {
		return nil, err
	}

	if start == "" {
		switch {
		case pop:
			return nil, missingPair(line, "pop by trigger", "sequence start")
		case cycle:
			return nil, missingPair(line, "sequence cycle", "sequence start")
		case name != "":
			return nil, missingPair(line, "sequence name", "sequence start")
		}
		return nil, nil
	}

	// A non-numeric start names another sequence and is kept as written.
	if _, err := strconv.Atoi(start); err != nil {
		start = upper(start)
	}
	return &SequenceSpec{Start: start, Name: name, Cycle: cycle, PopByTrigger: pop}, nil
}

func parseLOBOptions(line int, raw source.Row) (LOBOptions, error) {
	var o LOBOptions
	var err error
	if o.Deduplication, err = parseFlag(line, "lob deduplication", raw.Get("lob_deduplication")); err != nil {
		return o, err
	}
	if o.Caching, err = parseFlag(line, "lob caching", raw.Get("lob_caching")); err != nil {
		return o, err
	}
	if o.Logging, err = parseFlag(line, "lob logging", raw.Get("lob_logging")); err != nil {
		return o, err
	}

	v := strings.ToUpper(raw.Get("lob_compression"))
	switch v {
	case "", "N", "LOW", "MEDIUM", "HIGH":
		o.Compression = v
	default:
		return o, malformed(line, "lob compression", v, fmt.Errorf("%w: expected N, LOW, MEDIUM or HIGH", ErrInvalidToken))
	}
	return o, nil
}

// formatDefault quotes character defaults unless they are keywords or
// already quoted.
func formatDefault(typ, v string) string {
	if !isCharType(typ) {
		return v
	}
	if defaultKeywords[strings.ToUpper(v)] {
		return v
	}
	if len(v) >= 2 && strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), "'")
}
