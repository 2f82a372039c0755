package graph

import (
	"slices"
	"strings"
)

// Component is a set of tables connected by foreign keys, ignoring direction.
type Component struct {
	Tables []string
}

// FindComponents groups tables into connected components. Components and
// their tables are sorted by name.
func FindComponents(g *Graph) []Component {
	seen := make(map[string]bool, len(g.Order))
	var comps []Component

	for _, start := range g.Order {
		if seen[start] {
			continue
		}
		members := g.reach(start, seen)
		slices.Sort(members)
		comps = append(comps, Component{Tables: members})
	}

	slices.SortFunc(comps, func(a, b Component) int {
		return strings.Compare(a.Tables[0], b.Tables[0])
	})
	return comps
}

// reach collects every table connected to start through parents or
// children, marking them in seen.
func (g *Graph) reach(start string, seen map[string]bool) []string {
	seen[start] = true
	stack := []string{start}
	var out []string

	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, t)

		for _, next := range append(append([]string(nil), g.Parents[t]...), g.Children[t]...) {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return out
}

