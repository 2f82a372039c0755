package schema

import (
	"strconv"
	"strings"
)

// Flag is a tri-state Y/N option that may be left blank.
type Flag int8

const (
	Unset Flag = iota
	Yes
	No
)

// Or resolves the flag, falling back to def when unset.
func (f Flag) Or(def bool) bool {
	switch f {
	case Yes:
		return true
	case No:
		return false
	default:
		return def
	}
}

// IndexKind distinguishes unique from non-unique index tokens.
type IndexKind int

const (
	NonUnique IndexKind = iota
	Unique
)

func (k IndexKind) String() string {
	if k == Unique {
		return "U"
	}
	return "Y"
}

// IndexToken is one entry of the Index cell: a kind plus an optional group id.
// Tokens sharing a group id within a table form one compound index.
type IndexToken struct {
	Kind    IndexKind
	Group   int
	Grouped bool
}

func (t IndexToken) String() string {
	if !t.Grouped {
		return t.Kind.String()
	}
	return t.Kind.String() + strconv.Itoa(t.Group)
}

// Size is a column length or numeric precision/scale.
type Size struct {
	Length   int
	Scale    int
	HasScale bool
}

// LOBOptions are the per-row LOB storage settings before defaulting.
type LOBOptions struct {
	Deduplication Flag
	Caching       Flag
	Logging       Flag
	Compression   string // N, LOW, MEDIUM, HIGH or "" when unset
}

// LOB is the resolved storage of a LOB column.
type LOB struct {
	Deduplicate bool
	Compression string // N, LOW, MEDIUM, HIGH
	Cache       bool
	Logging     bool
	Chunk       int
}

// SequenceSpec is the sequence request carried by a column.
type SequenceSpec struct {
	// Start is an integer literal or the name of another sequence.
	Start        string
	Name         string
	Cycle        bool
	PopByTrigger bool
}

// ColumnRef points at a column of another table. Never validated.
type ColumnRef struct {
	Table  string
	Column string
}

// Column represents a table column in input order.
type Column struct {
	Name        string
	Type        string // Oracle type name (e.g. "VARCHAR2", "NUMBER", "CLOB")
	Size        *Size
	Units       string // BYTE, CHAR or ""
	NotNull     bool
	Default     string
	Invisible   bool
	Virtual     bool
	VirtualExpr string
	OrdPos      int // ordinal position (1-based)
	Comment     string

	PrimaryKey bool
	Index      []IndexToken
	Check      string
	FK         *ColumnRef
	Sequence   *SequenceSpec
	LOBOptions LOBOptions

	// LOB is set by the resolver for LOB-typed columns.
	LOB *LOB
	// Derived marks columns injected by the resolver (audit, history).
	Derived bool
}

// IsCharacter reports whether the column type takes a length with units.
func (c *Column) IsCharacter() bool { return isCharType(c.Type) }

// IsLOB reports whether the column type is stored as a LOB.
func (c *Column) IsLOB() bool { return isLOBType(c.Type) }

// PrimaryKey represents a table's primary key.
type PrimaryKey struct {
	Name    string
	Columns []string
}

// Index is a resolved index. Unique indexes are backed by a constraint of
// the same name.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// ForeignKey is a single-column reference from a child table to a parent.
type ForeignKey struct {
	Name          string
	ChildSchema   string
	ChildTable    string
	ChildColumns  []string
	ParentSchema  string
	ParentTable   string
	ParentColumns []string
	IsSelfRef     bool
}

// CheckConstraint holds a raw condition applied to one column.
type CheckConstraint struct {
	Name      string
	Column    string
	Condition string
}

// Sequence is a resolved sequence owned by a table column.
type Sequence struct {
	Name   string
	Column string
	// Start is emitted verbatim: an integer or a referenced sequence name.
	Start        string
	Cycle        bool
	PopByTrigger bool
	// Shared marks a sequence created by an earlier column. It is not
	// created again.
	Shared       bool
}

// Table represents a table with its columns and resolved keys.
type Table struct {
	Schema     string
	Name       string
	Tablespace string
	Comment    string
	Audit      bool
	History    bool

	Columns     []Column
	PrimaryKey  *PrimaryKey
	Indexes     []Index
	ForeignKeys []ForeignKey
	Checks      []CheckConstraint
	Sequences   []Sequence

	// HistoryOf names the source table when this is a derived history table.
	HistoryOf string
	// HistoryTable is the derived history table, when requested.
	HistoryTable *Table

	// lines records the input line of each column for error reporting.
	lines map[string]int
}

// FullName returns the schema-qualified table name, or the bare name when
// the table has no schema.
func (t *Table) FullName() string {
	return Qualify(t.Schema, t.Name)
}

// ColumnNames returns all column names in ordinal order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// InputColumns returns the columns read from the input, without derived ones.
func (t *Table) InputColumns() []Column {
	var cols []Column
	for _, c := range t.Columns {
		if !c.Derived {
			cols = append(cols, c)
		}
	}
	return cols
}

// Grant is one row of the grants input. SELECT is always implied.
type Grant struct {
	Schema     string
	Table      string
	Grantee    string
	Privileges []string
}

// FullTable returns the schema-qualified grant target.
func (g Grant) FullTable() string {
	return Qualify(g.Schema, g.Table)
}

// Model is the schema model for one run.
type Model struct {
	Tables []*Table
	Grants []Grant

	byName map[string]*Table
}

// Table looks up a table by its full name.
func (m *Model) Table(fullName string) *Table {
	return m.byName[fullName]
}

// Qualify joins schema and name with a dot, omitting an empty schema.
func Qualify(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

var charTypes = map[string]bool{
	"CHAR":      true,
	"NCHAR":     true,
	"VARCHAR2":  true,
	"NVARCHAR2": true,
	"VARCHAR":   true,
}

var lobTypes = map[string]bool{
	"BLOB":  true,
	"CLOB":  true,
	"NCLOB": true,
}

func isCharType(t string) bool { return charTypes[strings.ToUpper(t)] }
func isLOBType(t string) bool  { return lobTypes[strings.ToUpper(t)] }
