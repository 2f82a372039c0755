package graph

import "fmt"

// TopoResult holds the result of topological sorting.
type TopoResult struct {
	// Order is the topological order (parents before children).
	Order []string
	// HasCycle is true if the graph contains a cycle.
	HasCycle bool
	// CycleTables lists tables involved in cycles, in input order.
	CycleTables []string
}

// Sequence returns Order followed by the tables left in cycles, so every
// table appears exactly once.
func (r TopoResult) Sequence() []string {
	out := make([]string, 0, len(r.Order)+len(r.CycleTables))
	out = append(out, r.Order...)
	return append(out, r.CycleTables...)
}

// TopoSort performs Kahn's algorithm on the given set of tables within the
// graph. Among tables that are ready at the same time, the one listed first
// in tables goes first, so the result is stable for a given input.
func TopoSort(g *Graph, tables []string) TopoResult {
	rank := make(map[string]int, len(tables))
	for i, t := range tables {
		rank[t] = i
	}

	// In-degree = number of distinct parents within the subset
	inDegree := make(map[string]int, len(tables))
	localChildren := make(map[string][]string)
	for _, t := range tables {
		inDegree[t] = 0
	}
	for _, t := range tables {
		for _, p := range g.Parents[t] {
			if _, ok := rank[p]; ok {
				localChildren[p] = append(localChildren[p], t)
				inDegree[t]++
			}
		}
	}

	var ready []string
	for _, t := range tables {
		if inDegree[t] == 0 {
			ready = append(ready, t)
		}
	}

	var order []string
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		order = append(order, node)

		for _, child := range localChildren[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = insertByRank(ready, child, rank)
			}
		}
	}

	result := TopoResult{Order: order}

	if len(order) < len(tables) {
		result.HasCycle = true
		for _, t := range tables {
			if inDegree[t] > 0 {
				result.CycleTables = append(result.CycleTables, t)
			}
		}
	}

	return result
}

// insertByRank keeps ready sorted by input position.
func insertByRank(ready []string, t string, rank map[string]int) []string {
	i := len(ready)
	for i > 0 && rank[ready[i-1]] > rank[t] {
		i--
	}
	ready = append(ready, "")
	copy(ready[i+1:], ready[i:])
	ready[i] = t
	return ready
}

// TopoSortAll performs topological sort across all tables in the graph.
func TopoSortAll(g *Graph) TopoResult {
	return TopoSort(g, g.Order)
}

// ValidateCycles checks for cycles and returns a descriptive error if found.
func ValidateCycles(result TopoResult) error {
	if !result.HasCycle {
		return nil
	}
	return fmt.Errorf("circular dependency detected among tables: %v", result.CycleTables)
}
