package trellis_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/trellistest"
)

func TestPrintGraphEmpty(t *testing.T) {
	ctx := context.Background()
	app := trellistest.New(t)
	app.RequireRegister(ctx, trellis.NewDIModule())
	app.RequireInit(ctx)

	var buf bytes.Buffer
	app.RequireDI().FprintGraph(&buf)

	if !strings.Contains(buf.String(), "no components") {
		t.Errorf("expected empty graph message, got: %s", buf.String())
	}
}

func TestPrintGraph(t *testing.T) {
	ctx := context.Background()
	app := trellistest.New(t)
	app.RequireRegister(ctx, trellis.NewDIModule(
		trellis.NewComponent[Service](),
		trellis.NewComponent[Repository](trellis.WithPostInject("Open")),
	))
	app.RequireInit(ctx)

	output := app.RequireDI().SprintGraph()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got: %s", output)
	}
	if !strings.Contains(lines[0], "Repository") || !strings.Contains(lines[0], "(Open)") {
		t.Errorf("expected the repository first, got: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Service") || !strings.Contains(lines[1], "←") {
		t.Errorf("expected the service with its dependency, got: %s", lines[1])
	}
	if !strings.Contains(output, "●") {
		t.Errorf("expected initialized markers, got: %s", output)
	}
}

func TestGraphInfo(t *testing.T) {
	ctx := context.Background()
	app := trellistest.New(t)
	app.RequireRegister(ctx, trellis.NewDIModule(
		trellis.NewComponent[Service](),
		trellis.NewComponent[Repository](),
	))
	app.RequireInit(ctx)

	info := app.RequireDI().Graph()
	if len(info.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(info.Components))
	}

	repo := info.Components[0]
	if len(repo.Dependents) != 1 || !strings.HasSuffix(repo.Dependents[0], "Service") {
		t.Errorf("expected the service as dependent, got %v", repo.Dependents)
	}
	if !repo.Initialized {
		t.Error("components without post-inject are initialized")
	}
}

func TestPrintGraphDOT(t *testing.T) {
	ctx := context.Background()
	app := trellistest.New(t)
	app.RequireRegister(ctx, trellis.NewDIModule(
		trellis.NewComponent[Service](),
		trellis.NewComponent[Repository](),
	))
	app.RequireInit(ctx)

	output := app.RequireDI().SprintGraphDOT()

	if !strings.Contains(output, "digraph components") {
		t.Errorf("expected digraph header, got: %s", output)
	}
	if !strings.Contains(output, "->") {
		t.Errorf("expected an edge, got: %s", output)
	}
	if !strings.Contains(output, `label="*trellis_test.Repository"`) {
		t.Errorf("expected short labels, got: %s", output)
	}
}

func TestDependencyTrace(t *testing.T) {
	ctx := context.Background()
	cfg := trellistest.Config()
	cfg.CreateDependencyTree = true

	app := trellistest.New(t, trellis.WithConfig(cfg))
	app.RequireRegister(ctx, trellis.NewDIModule(
		trellis.NewInstance(&ComponentB{}, trellis.WithIdentifier("b")),
		trellis.NewInstance(&ComponentA{}, trellis.WithIdentifier("a")),
	))
	app.RequireInit(ctx)

	trace := app.RequireDI().DependencyTrace()
	if len(trace) < 2 || trace[0] != "b" || trace[1] != "a" {
		t.Errorf("expected b then a in the trace, got %v", trace)
	}
}
