package ddl

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hurou927/ora-schema-gen/internal/build"
	"github.com/hurou927/ora-schema-gen/internal/schema"
)

// Privileges returns the granted privileges of g: SELECT first, then the
// marked privileges in input order.
func Privileges(g schema.Grant) []string {
	privs := []string{"SELECT"}
	for _, p := range g.Privileges {
		if !slices.Contains(privs, p) {
			privs = append(privs, p)
		}
	}
	return privs
}

// Grants renders one artifact per granted table, holding a GRANT per
// grantee. Tables keep their first-seen order.
func (e *Emitter) Grants(grants []schema.Grant) []build.Artifact {
	var order []string
	byTable := make(map[string][]schema.Grant)
	for _, g := range grants {
		key := g.FullTable()
		if _, ok := byTable[key]; !ok {
			order = append(order, key)
		}
		byTable[key] = append(byTable[key], g)
	}

	out := make([]build.Artifact, 0, len(order))
	for _, table := range order {
		gs := byTable[table]

		var b strings.Builder
		fmt.Fprintf(&b, "prompt --Adding grants on %s\n\n", table)
		objs := make([]build.Object, 0, len(gs))
		for _, g := range gs {
			privs := Privileges(g)
			fmt.Fprintf(&b, "GRANT %s ON %s TO %s;\n", strings.Join(privs, ", "), table, g.Grantee)
			objs = append(objs, build.Object{
				Kind:       build.KindGrant,
				Table:      table,
				Grantee:    g.Grantee,
				Privileges: privs,
			})
		}

		out = append(out, build.Artifact{
			Phase:   build.PhaseGrants,
			Name:    gs[0].Table + "_GRANTS",
			Table:   table,
			SQL:     b.String(),
			Objects: objs,
		})
	}
	return out
}
