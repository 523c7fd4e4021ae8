package nested

import (
	"slices"
	"sort"
)

// GraphNode is one registered diagram with its outgoing (dependencies) and
// incoming (dependents) embed edges.
type GraphNode struct {
	ID           string   `json:"id"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

// Graph is the embed dependency graph over a full definition registry.
type Graph struct {
	nodes map[string]*GraphNode
	ids   []string // sorted

	// Dangling maps a definition id to embedded ids that have no definition.
	Dangling map[string][]string
}

// BuildGraph scans every registered body for embed references. Every
// registered id becomes a node, reachable from the root or not.
func BuildGraph(reg Registry) *Graph {
	g := &Graph{
		nodes:    make(map[string]*GraphNode, len(reg)),
		ids:      make([]string, 0, len(reg)),
		Dangling: make(map[string][]string),
	}
	for id := range reg {
		g.ids = append(g.ids, id)
		g.nodes[id] = &GraphNode{ID: id, Dependencies: []string{}, Dependents: []string{}}
	}
	sort.Strings(g.ids)

	for _, id := range g.ids {
		for _, dep := range referencedIDs(reg[id].RawText) {
			target, ok := g.nodes[dep]
			if !ok {
				g.Dangling[id] = append(g.Dangling[id], dep)
				continue
			}
			g.nodes[id].Dependencies = append(g.nodes[id].Dependencies, dep)
			target.Dependents = append(target.Dependents, id)
		}
	}
	return g
}

// Node returns the graph node for id.
func (g *Graph) Node(id string) (GraphNode, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return GraphNode{}, false
	}
	return copyNode(n), true
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.ids)
}

// Report returns a copy of every node, sorted by id.
func (g *Graph) Report() []GraphNode {
	out := make([]GraphNode, 0, len(g.ids))
	for _, id := range g.ids {
		out = append(out, copyNode(g.nodes[id]))
	}
	return out
}

func copyNode(n *GraphNode) GraphNode {
	return GraphNode{
		ID:           n.ID,
		Dependencies: slices.Clone(n.Dependencies),
		Dependents:   slices.Clone(n.Dependents),
	}
}

// FindCycle runs a depth-first search from every unvisited node and returns
// the first cycle found as a closed path, e.g. [a b a]. It returns nil for an
// acyclic graph.
func (g *Graph) FindCycle() []string {
	visited := make(map[string]bool, len(g.ids))
	onStack := make(map[string]bool)
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, next := range g.nodes[id].Dependencies {
			if onStack[next] {
				start := slices.Index(path, next)
				cycle := slices.Clone(path[start:])
				return append(cycle, next)
			}
			if !visited[next] {
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}

		onStack[id] = false
		path = path[:len(path)-1]
		return nil
	}

	for _, id := range g.ids {
		if visited[id] {
			continue
		}
		if cycle := visit(id); cycle != nil {
			return cycle
		}
	}
	return nil
}

const (
	white = iota
	gray
	black
)

// TopologicalOrder lists every node with dependencies before dependents.
func (g *Graph) TopologicalOrder() ([]string, error) {
	color := make(map[string]int, len(g.ids))
	order := make([]string, 0, len(g.ids))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range g.nodes[id].Dependencies {
			switch color[next] {
			case gray:
				start := slices.Index(stack, next)
				return cycleError(append(slices.Clone(stack[start:]), next))
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range g.ids {
		if color[id] != white {
			continue
		}
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}
