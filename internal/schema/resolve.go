package schema

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/hurou927/ora-schema-gen/internal/config"
)

// ResolveOptions controls naming and defaulting during resolution.
type ResolveOptions struct {
	Naming      config.Naming
	LOBDefaults config.LOBDefaults
	// Tablespace overrides the per-schema tablespace when set.
	Tablespace string
	Logger     *slog.Logger
}

// Resolve turns the per-column flags of every table into primary keys,
// indexes, foreign keys, check constraints and sequences, and derives audit
// columns and history tables. The model is read-only afterwards.
func Resolve(m *Model, opts ResolveOptions) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &resolver{
		opts:  opts,
		log:   log,
		names: make(map[string]*registry),
	}

	// History tables are derived from the input columns, before audit
	// columns are injected into the source.
	tables := make([]*Table, 0, len(m.Tables))
	for _, t := range m.Tables {
		t.Tablespace = tablespaceFor(t.Schema, opts.Tablespace)
		r.applyLOBDefaults(t)
		tables = append(tables, t)

		if t.History {
			h, err := deriveHistory(t)
			if err != nil {
				return err
			}
			if _, exists := m.byName[h.FullName()]; exists {
				return &DuplicateEntityError{Kind: "table", Name: h.FullName()}
			}
			m.byName[h.FullName()] = h
			t.HistoryTable = h
			tables = append(tables, h)
			log.Debug("history table derived", "table", t.FullName(), "history", h.FullName())
		}
		if t.Audit {
			if err := addAuditColumns(t); err != nil {
				return err
			}
		}
	}
	m.Tables = tables

	// Table names occupy the schema namespace before any generated name.
	for _, t := range m.Tables {
		r.registry(t.Schema).reserve(t.Name)
	}

	for _, t := range m.Tables {
		if err := r.resolveTable(t); err != nil {
			return err
		}
	}
	return nil
}

type resolver struct {
	opts  ResolveOptions
	log   *slog.Logger
	names map[string]*registry
}

func (r *resolver) registry(schema string) *registry {
	reg, ok := r.names[schema]
	if !ok {
		reg = &registry{used: make(map[string]bool), sequences: make(map[string]bool)}
		r.names[schema] = reg
	}
	return reg
}

func (r *resolver) applyLOBDefaults(t *Table) {
	d := r.opts.LOBDefaults
	for i := range t.Columns {
		c := &t.Columns[i]
		if !c.IsLOB() {
			continue
		}
		o := c.LOBOptions
		lob := &LOB{
			Deduplicate: o.Deduplication.Or(d.Deduplication == "Y"),
			Cache:       o.Caching.Or(d.Caching == "Y"),
			Logging:     o.Logging.Or(d.Logging == "Y"),
			Compression: o.Compression,
			Chunk:       d.Chunk,
		}
		if lob.Compression == "" {
			lob.Compression = d.Compression
		}
		c.LOB = lob
	}
}

func (r *resolver) resolveTable(t *Table) error {
	reg := r.registry(t.Schema)
	n := r.opts.Naming

	var pkCols []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pkCols = append(pkCols, c.Name)
		}
	}
	if len(pkCols) > 0 {
		t.PrimaryKey = &PrimaryKey{
			Name:    reg.claim(expand(n.PrimaryKey, t, "", pkCols)),
			Columns: pkCols,
		}
	}

	for _, b := range bucketIndexes(t) {
		if slices.Equal(b.columns, pkCols) {
			r.log.Debug("index covered by primary key", "table", t.FullName(), "columns", b.columns)
			continue
		}
		if b.grouped && len(b.columns) == 1 {
			r.log.Debug("single-column index group", "table", t.FullName(), "group", b.group, "column", b.columns[0])
		}
		pattern := n.Index
		if b.unique {
			pattern = n.Unique
		}
		t.Indexes = append(t.Indexes, Index{
			Name:    reg.claim(expand(pattern, t, b.columns[0], b.columns)),
			Columns: b.columns,
			Unique:  b.unique,
		})
	}

	for _, c := range t.Columns {
		if c.FK != nil {
			parentSchema, parentTable := t.Schema, c.FK.Table
			if s, tbl, ok := strings.Cut(c.FK.Table, "."); ok {
				parentSchema, parentTable = s, tbl
			}
			t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
				Name:          reg.claim(expand(n.ForeignKey, t, c.Name, []string{c.Name})),
				ChildSchema:   t.Schema,
				ChildTable:    t.Name,
				ChildColumns:  []string{c.Name},
				ParentSchema:  parentSchema,
				ParentTable:   parentTable,
				ParentColumns: []string{c.FK.Column},
				IsSelfRef:     parentSchema == t.Schema && parentTable == t.Name,
			})
		}

		if c.Check != "" {
			t.Checks = append(t.Checks, CheckConstraint{
				Name:      reg.claim(expand(n.Check, t, c.Name, []string{c.Name})),
				Column:    c.Name,
				Condition: c.Check,
			})
		}

		if c.Sequence != nil {
			var name string
			shared := false
			switch {
			case c.Sequence.Name == "":
				name = reg.claim(expand(n.Sequence, t, c.Name, []string{c.Name}))
			case reg.sequences[c.Sequence.Name]:
				name, shared = c.Sequence.Name, true
				r.log.Debug("sequence shared", "table", t.FullName(), "column", c.Name, "sequence", name)
			case reg.reserve(c.Sequence.Name):
				name = c.Sequence.Name
			default:
				return &DuplicateEntityError{Kind: "sequence", Name: c.Sequence.Name, Table: t.FullName(), Line: t.lines[c.Name]}
			}
			reg.sequences[name] = true
			t.Sequences = append(t.Sequences, Sequence{
				Name:         name,
				Column:       c.Name,
				Start:        c.Sequence.Start,
				Cycle:        c.Sequence.Cycle,
				PopByTrigger: c.Sequence.PopByTrigger,
				Shared:       shared,
			})
		}
	}
	return nil
}

type indexBucket struct {
	grouped bool
	group   int
	columns []string
	unique  bool
}

// bucketIndexes groups index tokens by group id (grouped) or by column
// (ungrouped), in order of first appearance. Unique dominates within a
// bucket, and buckets over an identical column list are merged.
func bucketIndexes(t *Table) []*indexBucket {
	var order []*indexBucket
	byKey := make(map[string]*indexBucket)

	for _, c := range t.Columns {
		for _, tok := range c.Index {
			key := "c:" + c.Name
			if tok.Grouped {
				key = "g:" + strconv.Itoa(tok.Group)
			}
			b, ok := byKey[key]
			if !ok {
				b = &indexBucket{grouped: tok.Grouped, group: tok.Group}
				byKey[key] = b
				order = append(order, b)
			}
			if !slices.Contains(b.columns, c.Name) {
				b.columns = append(b.columns, c.Name)
			}
			if tok.Kind == Unique {
				b.unique = true
			}
		}
	}

	var out []*indexBucket
	for _, b := range order {
		merged := false
		for _, prev := range out {
			if slices.Equal(prev.columns, b.columns) {
				prev.unique = prev.unique || b.unique
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, b)
		}
	}
	return out
}

// registry tracks object names used within one schema. Names in sequences
// may be claimed again by another column.
type registry struct {
	used      map[string]bool
	sequences map[string]bool
}

// reserve marks name as used, reporting false if it already was.
func (r *registry) reserve(name string) bool {
	if r.used[name] {
		return false
	}
	r.used[name] = true
	return true
}

// claim returns base, or base with the first free numeric suffix from 2.
func (r *registry) claim(base string) string {
	if r.reserve(base) {
		return base
	}
	for i := 2; ; i++ {
		name := base + strconv.Itoa(i)
		if r.reserve(name) {
			return name
		}
	}
}

// expand fills a naming pattern for table t.
func expand(pattern string, t *Table, column string, columns []string) string {
	out := strings.NewReplacer(
		"{schema}", t.Schema,
		"{table}", t.Name,
		"{column}", column,
		"{columns}", strings.Join(columns, "_"),
	).Replace(pattern)
	return strings.ToUpper(out)
}

// tablespaceFor derives the tablespace from the owning schema: APP_OWNER
// stores in APP.
func tablespaceFor(schema, override string) string {
	if override != "" {
		return strings.ToUpper(override)
	}
	return strings.TrimSuffix(schema, "_OWNER")
}

// AppName returns the application name used for schema-wide objects such
// as the history package.
func AppName(schema string) string {
	if schema == "" {
		return "APP"
	}
	return strings.TrimSuffix(schema, "_OWNER")
}

func addAuditColumns(t *Table) error {
	for _, c := range auditColumns() {
		if t.Column(c.Name) != nil {
			return &DuplicateEntityError{Kind: "column", Name: c.Name, Table: t.FullName()}
		}
		c.OrdPos = len(t.Columns) + 1
		t.Columns = append(t.Columns, c)
	}
	return nil
}

func auditColumns() []Column {
	return []Column{
		{
			Name:    "U_NAME",
			Type:    "VARCHAR2",
			Size:    &Size{Length: 250},
			Units:   "CHAR",
			NotNull: true,
			Default: "USER",
			Comment: "User Name for audit logging purposes",
			Derived: true,
		},
		{
			Name:    "U_DATE",
			Type:    "DATE",
			NotNull: true,
			Default: "SYSDATE",
			Comment: "Date / Time for audit logging purposes",
			Derived: true,
		},
	}
}

// HistoryPrefix is prepended to a table name to name its history table.
const HistoryPrefix = "H_"

func deriveHistory(src *Table) (*Table, error) {
	h := &Table{
		Schema:     src.Schema,
		Name:       HistoryPrefix + src.Name,
		Tablespace: src.Tablespace,
		Comment:    fmt.Sprintf("History table for %s", src.Name),
		HistoryOf:  src.FullName(),
		lines:      make(map[string]int),
	}

	cols := []Column{
		{
			Name:       "HIST_ID",
			Type:       "NUMBER",
			NotNull:    true,
			PrimaryKey: true,
			Sequence:   &SequenceSpec{Start: "1", PopByTrigger: true},
			Comment:    "Unique ID for History record",
			Derived:    true,
		},
		{
			Name:    "CHANGE",
			Type:    "VARCHAR2",
			Size:    &Size{Length: 10},
			Units:   "CHAR",
			NotNull: true,
			Comment: "Type of change performed",
			Derived: true,
		},
		{
			Name:    "CHANGE_DATE",
			Type:    "DATE",
			NotNull: true,
			Default: "SYSDATE",
			Comment: "Time of change performed",
			Derived: true,
		},
		{
			Name:    "CHANGE_USER",
			Type:    "VARCHAR2",
			Size:    &Size{Length: 50},
			Units:   "CHAR",
			NotNull: true,
			Default: "USER",
			Comment: "User who performed change",
			Derived: true,
		},
	}

	for _, c := range src.InputColumns() {
		c.NotNull = false
		c.PrimaryKey = false
		c.Default = ""
		c.Index = nil
		c.Sequence = nil
		c.FK = nil
		c.Check = ""
		c.Virtual = false
		c.VirtualExpr = ""
		cols = append(cols, c)
	}

	for _, c := range cols {
		if h.Column(c.Name) != nil {
			return nil, &DuplicateEntityError{Kind: "column", Name: c.Name, Table: h.FullName()}
		}
		c.OrdPos = len(h.Columns) + 1
		h.Columns = append(h.Columns, c)
	}
	return h, nil
}
