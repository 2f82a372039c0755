// Package graph models foreign-key dependencies between the tables of a
// schema model so tables can be created parents-first.
package graph

import (
	"github.com/hurou927/ora-schema-gen/internal/schema"
)

// Edge represents a directed edge from child to parent (FK direction).
type Edge struct {
	FK          schema.ForeignKey
	ChildTable  string // full name
	ParentTable string // full name
}

// Graph is a directed graph built from FK relationships.
type Graph struct {
	// Tables maps full name -> table
	Tables map[string]*schema.Table

	// Order is the input order of the tables; it breaks ties when sorting.
	Order []string

	// Edges are non-self-referential FK edges (child → parent)
	Edges []Edge

	// SelfRefs holds self-referential FKs, keyed by table full name
	SelfRefs map[string][]schema.ForeignKey

	// External holds FKs whose parent is not part of the model.
	External []Edge

	// Children maps parent full name → list of child full names
	Children map[string][]string

	// Parents maps child full name → list of parent full names
	Parents map[string][]string

	// adjacency for undirected connectivity
	Adjacency map[string]map[string]bool
}

// Build constructs the dependency graph of a resolved model. FKs naming a
// table outside the model are kept in External and do not order anything.
func Build(m *schema.Model) *Graph {
	g := &Graph{
		Tables:    make(map[string]*schema.Table, len(m.Tables)),
		SelfRefs:  make(map[string][]schema.ForeignKey),
		Children:  make(map[string][]string),
		Parents:   make(map[string][]string),
		Adjacency: make(map[string]map[string]bool),
	}

	for _, tbl := range m.Tables {
		name := tbl.FullName()
		g.Tables[name] = tbl
		g.Order = append(g.Order, name)
		g.Adjacency[name] = make(map[string]bool)
	}

	for _, name := range g.Order {
		for _, fk := range g.Tables[name].ForeignKeys {
			parentKey := schema.Qualify(fk.ParentSchema, fk.ParentTable)
			edge := Edge{FK: fk, ChildTable: name, ParentTable: parentKey}

			if _, ok := g.Tables[parentKey]; !ok {
				g.External = append(g.External, edge)
				continue
			}
			if fk.IsSelfRef || parentKey == name {
				g.SelfRefs[name] = append(g.SelfRefs[name], fk)
				continue
			}

			g.Edges = append(g.Edges, edge)
			if !g.Adjacency[name][parentKey] {
				g.Children[parentKey] = append(g.Children[parentKey], name)
				g.Parents[name] = append(g.Parents[name], parentKey)
			}
			g.Adjacency[name][parentKey] = true
			g.Adjacency[parentKey][name] = true
		}
	}

	return g
}

// Roots returns tables with no FK parents, in input order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, name := range g.Order {
		if len(g.Parents[name]) == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}
