package graph

import "sync"

// Graph is a dependency graph between component keys. Nodes keep the
// order in which they were first added.
type Graph struct {
	mu    sync.RWMutex
	order []string
	edges map[string][]string
}

func New() *Graph {
	return &Graph{
		edges: make(map[string][]string),
	}
}

// AddNode sets the outgoing edges of id, replacing earlier ones.
func (g *Graph) AddNode(id string, dependencies []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[id]; !exists {
		g.order = append(g.order, id)
	}
	deps := make([]string, len(dependencies))
	copy(deps, dependencies)
	g.edges[id] = deps
}

func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.edges[id]
	return exists
}

func (g *Graph) GetDependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps, exists := g.edges[id]
	if !exists {
		return nil
	}
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// GetDependents lists the nodes with an edge to id, in node order.
func (g *Graph) GetDependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, node := range g.order {
		for _, dep := range g.edges[node] {
			if dep == id {
				dependents = append(dependents, node)
				break
			}
		}
	}
	return dependents
}

func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.order)
}

// Missing returns the edge targets that are not nodes of the graph.
func (g *Graph) Missing() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []string
	seen := make(map[string]bool)
	for _, node := range g.order {
		for _, dep := range g.edges[node] {
			if _, exists := g.edges[dep]; !exists && !seen[dep] {
				missing = append(missing, dep)
				seen[dep] = true
			}
		}
	}
	return missing
}

// Order returns the nodes with every dependency before its dependents.
// Nodes taking part in a cycle are appended in node order.
func (g *Graph) Order() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(g.order))
	out := make([]string, 0, len(g.order))

	var visit func(id string)
	visit = func(id string) {
		if state[id] != unvisited {
			return
		}
		state[id] = visiting
		for _, dep := range g.edges[id] {
			if _, exists := g.edges[dep]; exists {
				visit(dep)
			}
		}
		state[id] = visited
		out = append(out, id)
	}

	for _, id := range g.order {
		visit(id)
	}
	return out
}
