package ddl

import (
	"fmt"
	"strings"

	"github.com/hurou927/ora-schema-gen/internal/build"
	"github.com/hurou927/ora-schema-gen/internal/output"
	"github.com/hurou927/ora-schema-gen/internal/schema"
)

// Comments renders the table comment and all column comments of a table.
func (e *Emitter) Comments(t *schema.Table) (build.Artifact, bool) {
	table := t.FullName()

	var stmts []string
	if t.Comment != "" {
		stmts = append(stmts, fmt.Sprintf("COMMENT ON TABLE %s IS %s;", table, output.QuoteLiteral(t.Comment)))
	}
	for _, c := range t.Columns {
		if c.Comment != "" {
			stmts = append(stmts, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s;", table, c.Name, output.QuoteLiteral(c.Comment)))
		}
	}
	if len(stmts) == 0 {
		return build.Artifact{}, false
	}

	objs := make([]build.Object, len(stmts))
	for i := range objs {
		objs[i] = build.Object{Kind: build.KindComment, Table: table}
	}

	return build.Artifact{
		Phase:   build.PhaseComments,
		Name:    t.Name + "_COMMENTS",
		Table:   table,
		SQL:     fmt.Sprintf("prompt --Adding comments for %s\n\n%s\n", table, strings.Join(stmts, "\n")),
		Objects: objs,
	}, true
}
