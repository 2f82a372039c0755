package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteMermaid writes the graph as a Mermaid flowchart, one subgraph per
// connected component. Edges point from child to parent.
func WriteMermaid(w io.Writer, g *Graph) error {
	components := FindComponents(g)

	fmt.Fprintln(w, "graph TD")

	for i, comp := range components {
		fmt.Fprintf(w, "    subgraph component_%d\n", i+1)

		members := make(map[string]bool, len(comp.Tables))
		for _, t := range comp.Tables {
			members[t] = true
		}

		seen := make(map[string]bool)
		for _, edge := range g.Edges {
			if !members[edge.ChildTable] {
				continue
			}
			line := fmt.Sprintf("        %s -->|%s| %s",
				mermaidID(edge.ChildTable), strings.Join(edge.FK.ChildColumns, ", "), mermaidID(edge.ParentTable))
			if seen[line] {
				continue
			}
			seen[line] = true
			fmt.Fprintln(w, line)
		}

		for _, t := range comp.Tables {
			for _, fk := range g.SelfRefs[t] {
				fmt.Fprintf(w, "        %s -->|%s| %s\n",
					mermaidID(t), strings.Join(fk.ChildColumns, ", "), mermaidID(t))
			}
		}

		// Isolated tables still need a node.
		for _, t := range comp.Tables {
			if !hasEdge(g, t) {
				fmt.Fprintf(w, "        %s\n", mermaidID(t))
			}
		}

		fmt.Fprintln(w, "    end")
		if i < len(components)-1 {
			fmt.Fprintln(w)
		}
	}

	return nil
}

// WriteText writes a summary of the graph and the table creation order.
func WriteText(w io.Writer, g *Graph) error {
	components := FindComponents(g)

	fmt.Fprintf(w, "Tables: %d\n", len(g.Tables))
	fmt.Fprintf(w, "Foreign Keys: %d\n", len(g.Edges)+countSelfRefs(g)+len(g.External))
	fmt.Fprintf(w, "Connected Components: %d\n\n", len(components))

	topo := TopoSortAll(g)
	if topo.HasCycle {
		fmt.Fprintf(w, "WARNING: Circular dependencies detected: %v\n\n", topo.CycleTables)
	}

	var noPK []string
	for _, name := range g.Order {
		if g.Tables[name].PrimaryKey == nil {
			noPK = append(noPK, name)
		}
	}
	if len(noPK) > 0 {
		fmt.Fprintf(w, "WARNING: Tables without primary key: %v\n\n", noPK)
	}

	if len(g.SelfRefs) > 0 {
		var self []string
		for t := range g.SelfRefs {
			self = append(self, t)
		}
		sort.Strings(self)
		fmt.Fprintf(w, "Self-referencing tables: %v\n\n", self)
	}

	if len(g.External) > 0 {
		fmt.Fprintln(w, "References outside the input:")
		for _, e := range g.External {
			fmt.Fprintf(w, "  %s.%s -> %s.%s\n",
				e.ChildTable, strings.Join(e.FK.ChildColumns, ", "),
				e.ParentTable, strings.Join(e.FK.ParentColumns, ", "))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Root tables (no FK parents): %v\n\n", g.Roots())

	fmt.Fprintln(w, "Creation order:")
	for i, t := range topo.Sequence() {
		tbl := g.Tables[t]
		pkInfo := "no PK"
		if tbl.PrimaryKey != nil {
			pkInfo = "PK: " + strings.Join(tbl.PrimaryKey.Columns, ", ")
		}
		var extra string
		if tbl.HistoryOf != "" {
			extra = ", history of " + tbl.HistoryOf
		}
		fmt.Fprintf(w, "  %d. %s (%d cols, %s, %d FKs%s)\n",
			i+1, t, len(tbl.Columns), pkInfo, len(tbl.ForeignKeys), extra)
	}

	return nil
}

// mermaidID converts a schema.table name to a Mermaid-safe node ID.
func mermaidID(fullName string) string {
	return strings.ReplaceAll(fullName, ".", "_")
}

func hasEdge(g *Graph, table string) bool {
	return len(g.Parents[table]) > 0 || len(g.Children[table]) > 0 || len(g.SelfRefs[table]) > 0
}

func countSelfRefs(g *Graph) int {
	count := 0
	for _, fks := range g.SelfRefs {
		count += len(fks)
	}
	return count
}
