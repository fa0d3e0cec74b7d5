package trellis

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danpasecinic/trellis/internal/reflect"
)

type GraphInfo struct {
	Components []ComponentInfo
}

type ComponentInfo struct {
	Key          string
	Dependencies []string
	Dependents   []string
	PostInject   string
	Initialized  bool
}

// Graph describes the stored components, dependencies first.
func (m *DIModule) Graph() GraphInfo {
	if m.container == nil {
		return GraphInfo{}
	}

	g := m.container.Graph()
	entries := make(map[string]bool)
	postInject := make(map[string]string)
	for _, e := range m.container.Entries() {
		entries[e.Key] = e.PostInject == nil || e.Done()
		postInject[e.Key] = e.PostInjectID
	}

	var components []ComponentInfo
	for _, key := range g.Order() {
		initialized, ok := entries[key]
		if !ok {
			continue
		}
		components = append(components, ComponentInfo{
			Key:          key,
			Dependencies: g.GetDependencies(key),
			Dependents:   g.GetDependents(key),
			PostInject:   postInject[key],
			Initialized:  initialized,
		})
	}
	return GraphInfo{Components: components}
}

func (m *DIModule) PrintGraph() {
	m.FprintGraph(os.Stdout)
}

func (m *DIModule) FprintGraph(w io.Writer) {
	info := m.Graph()

	if len(info.Components) == 0 {
		_, _ = fmt.Fprintln(w, "(no components)")
		return
	}

	for _, c := range info.Components {
		status := "○"
		if c.Initialized {
			status = "●"
		}

		line := status + " " + c.Key
		if c.PostInject != "" {
			line += " (" + c.PostInject + ")"
		}
		if len(c.Dependencies) > 0 {
			line += " ← " + strings.Join(c.Dependencies, ", ")
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

func (m *DIModule) SprintGraph() string {
	var sb strings.Builder
	m.FprintGraph(&sb)
	return sb.String()
}

func (m *DIModule) FprintGraphDOT(w io.Writer) {
	info := m.Graph()

	_, _ = fmt.Fprintln(w, "digraph components {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, c := range info.Components {
		style := ""
		if c.PostInject != "" {
			style = ", style=rounded"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", c.Key, reflect.ShortName(c.Key), style)
	}

	_, _ = fmt.Fprintln(w)

	for _, c := range info.Components {
		for _, dep := range c.Dependencies {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", c.Key, dep)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (m *DIModule) SprintGraphDOT() string {
	var sb strings.Builder
	m.FprintGraphDOT(&sb)
	return sb.String()
}
