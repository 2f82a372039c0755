package schema

import (
	"log/slog"
	"slices"
)

// Builder folds normalized rows into per-table aggregates. The first row of a
// table decides its table-level attributes; later rows only add columns.
type Builder struct {
	log    *slog.Logger
	model  *Model
	grants map[string]int
}

// NewBuilder returns an empty Builder.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		log:    log,
		model:  &Model{byName: make(map[string]*Table)},
		grants: make(map[string]int),
	}
}

// Add appends the row's column to its table, creating the table on first
// sight.
func (b *Builder) Add(r Row) error {
	for _, w := range r.Warnings {
		b.log.Warn("adjusted input", "line", r.Line, "table", r.Table, "field", r.Column.Name, "detail", w)
	}

	key := Qualify(r.Schema, r.Table)
	t, ok := b.model.byName[key]
	if !ok {
		t = &Table{
			Schema:  r.Schema,
			Name:    r.Table,
			Audit:   r.Audit,
			History: r.History,
			Comment: r.TableComment,
			lines:   make(map[string]int),
		}
		b.model.byName[key] = t
		b.model.Tables = append(b.model.Tables, t)
		b.log.Debug("table added", "table", key, "line", r.Line)
	} else if r.Audit != t.Audit || r.History != t.History ||
		(r.TableComment != "" && r.TableComment != t.Comment) {
		b.log.Debug("table attributes ignored after first row", "table", key, "line", r.Line)
	}

	if first, dup := t.lines[r.Column.Name]; dup {
		b.log.Debug("duplicate column", "table", key, "field", r.Column.Name, "first_line", first)
		return &DuplicateEntityError{Kind: "column", Name: r.Column.Name, Table: key, Line: r.Line}
	}

	col := r.Column
	col.OrdPos = len(t.Columns) + 1
	t.Columns = append(t.Columns, col)
	t.lines[col.Name] = r.Line
	return nil
}

// AddGrant records a grant. Repeated rows for the same table and grantee
// merge their privileges.
func (b *Builder) AddGrant(g Grant) {
	key := g.FullTable() + " " + g.Grantee
	if i, ok := b.grants[key]; ok {
		existing := &b.model.Grants[i]
		for _, p := range g.Privileges {
			if !slices.Contains(existing.Privileges, p) {
				existing.Privileges = append(existing.Privileges, p)
			}
		}
		return
	}
	b.grants[key] = len(b.model.Grants)
	b.model.Grants = append(b.model.Grants, g)
}

// Model returns the populated model. Index and key flags are still
// unresolved; see Resolve.
func (b *Builder) Model() *Model {
	return b.model
}
