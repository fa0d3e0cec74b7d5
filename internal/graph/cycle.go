package graph

// tarjan finds strongly connected components.
type tarjan struct {
	edges   map[string][]string
	next    int
	stack   []string
	onStack map[string]bool
	index   map[string]int
	low     map[string]int
	sccs    [][]string
}

// Cycles returns every group of nodes depending on each other, including
// nodes depending on themselves.
func (g *Graph) Cycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t := &tarjan{
		edges:   g.edges,
		onStack: make(map[string]bool),
		index:   make(map[string]int),
		low:     make(map[string]int),
	}
	for _, id := range g.order {
		if _, seen := t.index[id]; !seen {
			t.connect(id)
		}
	}

	var cycles [][]string
	for _, scc := range t.sccs {
		if len(scc) > 1 || g.selfLoop(scc[0]) {
			cycles = append(cycles, scc)
		}
	}
	return cycles
}

func (g *Graph) HasCycle() bool {
	return len(g.Cycles()) > 0
}

func (g *Graph) selfLoop(id string) bool {
	for _, dep := range g.edges[id] {
		if dep == id {
			return true
		}
	}
	return false
}

func (t *tarjan) connect(id string) {
	t.index[id] = t.next
	t.low[id] = t.next
	t.next++
	t.stack = append(t.stack, id)
	t.onStack[id] = true

	for _, dep := range t.edges[id] {
		if _, exists := t.edges[dep]; !exists {
			continue
		}
		if _, seen := t.index[dep]; !seen {
			t.connect(dep)
			t.low[id] = min(t.low[id], t.low[dep])
		} else if t.onStack[dep] {
			t.low[id] = min(t.low[id], t.index[dep])
		}
	}

	if t.low[id] != t.index[id] {
		return
	}

	var scc []string
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[top] = false
		scc = append(scc, top)
		if top == id {
			break
		}
	}
	t.sccs = append(t.sccs, scc)
}

// CyclePath returns a path start > ... > start when start lies on a
// cycle, nil otherwise.
func (g *Graph) CyclePath(start string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	var path []string

	var walk func(id string) []string
	walk = func(id string) []string {
		path = append(path, id)
		defer func() { path = path[:len(path)-1] }()

		for _, dep := range g.edges[id] {
			if dep == start {
				out := make([]string, len(path), len(path)+1)
				copy(out, path)
				return append(out, start)
			}
			if _, exists := g.edges[dep]; !exists || visited[dep] {
				continue
			}
			visited[dep] = true
			if found := walk(dep); found != nil {
				return found
			}
		}
		return nil
	}

	if _, exists := g.edges[start]; !exists {
		return nil
	}
	return walk(start)
}
