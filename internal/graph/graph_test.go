package graph

import (
	"slices"
	"testing"
)

func TestGraph_AddNode(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"B", "C"})

	if !g.HasNode("A") {
		t.Error("node A should exist")
	}
	if deps := g.GetDependencies("A"); len(deps) != 2 {
		t.Errorf("expected 2 dependencies, got %d", len(deps))
	}
}

func TestGraph_AddNodeReplacesEdges(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"B"})
	g.AddNode("B", nil)
	g.AddNode("A", []string{"C"})

	if !slices.Equal(g.Nodes(), []string{"A", "B"}) {
		t.Errorf("expected node order kept, got %v", g.Nodes())
	}
	if !slices.Equal(g.GetDependencies("A"), []string{"C"}) {
		t.Errorf("expected replaced edges, got %v", g.GetDependencies("A"))
	}
}

func TestGraph_GetDependents(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"C"})
	g.AddNode("B", []string{"C"})
	g.AddNode("C", nil)

	if got := g.GetDependents("C"); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("expected [A B], got %v", got)
	}
}

func TestGraph_Missing(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"B", "C"})
	g.AddNode("B", []string{"C"})

	missing := g.Missing()
	if len(missing) != 1 || missing[0] != "C" {
		t.Errorf("expected missing dependency C, got %v", missing)
	}
}

func TestGraph_Order(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("api", []string{"service"})
	g.AddNode("service", []string{"repo", "cache"})
	g.AddNode("repo", []string{"db"})
	g.AddNode("cache", nil)
	g.AddNode("db", nil)

	order := g.Order()
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}

	if len(order) != 5 {
		t.Fatalf("expected 5 nodes, got %v", order)
	}
	if pos["db"] > pos["repo"] || pos["repo"] > pos["service"] || pos["cache"] > pos["service"] {
		t.Errorf("dependencies after dependents: %v", order)
	}
	if pos["service"] > pos["api"] {
		t.Errorf("service after api: %v", order)
	}
}

func TestGraph_OrderWithCycle(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"B"})
	g.AddNode("B", []string{"A"})

	if order := g.Order(); len(order) != 2 {
		t.Errorf("expected both nodes in order, got %v", order)
	}
}

func TestGraph_Cycles_NoCycle(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"B"})
	g.AddNode("B", []string{"C"})
	g.AddNode("C", nil)

	if cycles := g.Cycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
	if g.HasCycle() {
		t.Error("expected HasCycle false")
	}
}

func TestGraph_Cycles_SimpleCycle(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"B"})
	g.AddNode("B", []string{"A"})

	cycles := g.Cycles()
	if len(cycles) != 1 || len(cycles[0]) != 2 {
		t.Errorf("expected one cycle of 2, got %v", cycles)
	}
}

func TestGraph_Cycles_SelfCycle(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"A"})

	if !g.HasCycle() {
		t.Error("expected self cycle")
	}
}

func TestGraph_Cycles_Complex(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"B"})
	g.AddNode("B", []string{"C"})
	g.AddNode("C", []string{"A"})
	g.AddNode("D", []string{"E"})
	g.AddNode("E", []string{"D"})
	g.AddNode("F", []string{"A"})

	if cycles := g.Cycles(); len(cycles) != 2 {
		t.Errorf("expected 2 cycles, got %v", cycles)
	}
}

func TestGraph_CyclePath(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("A", []string{"B"})
	g.AddNode("B", []string{"C"})
	g.AddNode("C", []string{"A"})
	g.AddNode("D", []string{"A"})

	path := g.CyclePath("A")
	if !slices.Equal(path, []string{"A", "B", "C", "A"}) {
		t.Errorf("expected A B C A, got %v", path)
	}
	if g.CyclePath("D") != nil {
		t.Error("D is not on a cycle")
	}
	if g.CyclePath("missing") != nil {
		t.Error("missing node has no path")
	}
}

func BenchmarkGraph_Cycles(b *testing.B) {
	g := New()
	for i := range 100 {
		id := string(rune('a' + i%26))
		g.AddNode(id+string(rune('0'+i/26)), []string{string(rune('a' + (i+1)%26))})
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = g.Cycles()
	}
}
