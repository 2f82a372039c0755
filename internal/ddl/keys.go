package ddl

import (
	"fmt"
	"strings"

	"github.com/hurou927/ora-schema-gen/internal/build"
	"github.com/hurou927/ora-schema-gen/internal/schema"
)

// PrimaryKey renders the unique index backing the primary key and the
// constraint using it.
func (e *Emitter) PrimaryKey(t *schema.Table) (build.Artifact, bool) {
	pk := t.PrimaryKey
	if pk == nil {
		return build.Artifact{}, false
	}
	tab := e.f.tab(1)
	table := t.FullName()
	index := qualify(t.Schema, pk.Name)
	cols := strings.Join(pk.Columns, ", ")

	var b strings.Builder
	b.WriteString(e.createIndex(t, index, pk.Columns, true))
	fmt.Fprintf(&b, "\nprompt --Adding %s primary key constraint\n\n", index)
	fmt.Fprintf(&b, "ALTER TABLE %s ADD (\n", table)
	fmt.Fprintf(&b, "%sCONSTRAINT %s\n", tab, pk.Name)
	fmt.Fprintf(&b, "%sPRIMARY KEY (%s)\n", tab, cols)
	fmt.Fprintf(&b, "%sUSING INDEX %s\n", tab, index)
	b.WriteString(");\n")

	return build.Artifact{
		Phase: build.PhasePrimaryKeys,
		Name:  pk.Name,
		Table: table,
		SQL:   b.String(),
		Objects: []build.Object{
			{Kind: build.KindIndex, Name: index},
			{Kind: build.KindConstraint, Name: pk.Name, Table: table},
		},
	}, true
}

// Indexes renders one artifact per index. Unique indexes also add a unique
// constraint of the same name.
func (e *Emitter) Indexes(t *schema.Table) []build.Artifact {
	tab := e.f.tab(1)
	table := t.FullName()

	out := make([]build.Artifact, 0, len(t.Indexes))
	for _, ix := range t.Indexes {
		index := qualify(t.Schema, ix.Name)
		objs := []build.Object{{Kind: build.KindIndex, Name: index}}

		var b strings.Builder
		b.WriteString(e.createIndex(t, index, ix.Columns, ix.Unique))
		if ix.Unique {
			fmt.Fprintf(&b, "\nprompt --Adding %s unique constraint\n\n", index)
			fmt.Fprintf(&b, "ALTER TABLE %s ADD (\n", table)
			fmt.Fprintf(&b, "%sCONSTRAINT %s\n", tab, ix.Name)
			fmt.Fprintf(&b, "%sUNIQUE (%s)\n", tab, strings.Join(ix.Columns, ", "))
			fmt.Fprintf(&b, "%sUSING INDEX %s\n", tab, index)
			b.WriteString(");\n")
			objs = append(objs, build.Object{Kind: build.KindConstraint, Name: ix.Name, Table: table})
		}

		out = append(out, build.Artifact{
			Phase:   build.PhaseIndexes,
			Name:    ix.Name,
			Table:   table,
			SQL:     b.String(),
			Objects: objs,
		})
	}
	return out
}

func (e *Emitter) createIndex(t *schema.Table, index string, columns []string, unique bool) string {
	tab := e.f.tab(1)
	cols := strings.Join(columns, ", ")
	create := "CREATE INDEX"
	if unique {
		create = "CREATE UNIQUE INDEX"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "prompt --Adding %s index for %s\n\n", index, cols)
	fmt.Fprintf(&b, "%s %s ON %s\n", create, index, t.FullName())
	fmt.Fprintf(&b, "%s(%s)", tab, cols)
	if t.Tablespace != "" {
		fmt.Fprintf(&b, "\n%sTABLESPACE %s", tab, t.Tablespace)
	}
	b.WriteString(";\n")
	return b.String()
}

// ForeignKeys renders one constraint per foreign key. The referenced table
// is not checked.
func (e *Emitter) ForeignKeys(t *schema.Table) []build.Artifact {
	tab := e.f.tab(1)
	table := t.FullName()

	out := make([]build.Artifact, 0, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		child := strings.Join(fk.ChildColumns, ", ")

		var b strings.Builder
		fmt.Fprintf(&b, "prompt --Adding %s constraint for %s\n\n", qualify(t.Schema, fk.Name), child)
		fmt.Fprintf(&b, "ALTER TABLE %s ADD (\n", table)
		fmt.Fprintf(&b, "%sCONSTRAINT %s\n", tab, fk.Name)
		fmt.Fprintf(&b, "%sFOREIGN KEY (%s)\n", tab, child)
		fmt.Fprintf(&b, "%sREFERENCES %s (%s)\n", tab,
			qualify(fk.ParentSchema, fk.ParentTable), strings.Join(fk.ParentColumns, ", "))
		b.WriteString(");\n")

		out = append(out, build.Artifact{
			Phase:   build.PhaseForeignKeys,
			Name:    fk.Name,
			Table:   table,
			SQL:     b.String(),
			Objects: []build.Object{{Kind: build.KindConstraint, Name: fk.Name, Table: table}},
		})
	}
	return out
}

// Checks renders one check constraint per condition. The condition follows
// the column name verbatim, e.g. "IN ('Y', 'N')".
func (e *Emitter) Checks(t *schema.Table) []build.Artifact {
	tab := e.f.tab(1)
	table := t.FullName()

	out := make([]build.Artifact, 0, len(t.Checks))
	for _, ck := range t.Checks {
		var b strings.Builder
		fmt.Fprintf(&b, "prompt --Adding %s check constraint\n\n", qualify(t.Schema, ck.Name))
		fmt.Fprintf(&b, "ALTER TABLE %s ADD (\n", table)
		fmt.Fprintf(&b, "%sCONSTRAINT %s\n", tab, ck.Name)
		fmt.Fprintf(&b, "%sCHECK (%s %s)\n", tab, ck.Column, ck.Condition)
		b.WriteString(");\n")

		out = append(out, build.Artifact{
			Phase:   build.PhaseChecks,
			Name:    ck.Name,
			Table:   table,
			SQL:     b.String(),
			Objects: []build.Object{{Kind: build.KindConstraint, Name: ck.Name, Table: table}},
		})
	}
	return out
}
