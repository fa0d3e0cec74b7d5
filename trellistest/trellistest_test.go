package trellistest_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/trellistest"
)

type Greeter struct {
	Prefix string
}

type Welcome struct {
	Greeter *Greeter `inject:"greeter"`
}

func (w *Welcome) Say(name string) string {
	return w.Greeter.Prefix + " " + name
}

type recordingTB struct {
	failed   bool
	message  string
	cleanups []func()
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatal(args ...any) {
	r.failed = true
	r.message = fmt.Sprint(args...)
}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
}

func (r *recordingTB) Cleanup(f func()) {
	r.cleanups = append(r.cleanups, f)
}

func (r *recordingTB) runCleanups() {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	app := trellistest.New(t)

	app.RequireRegister(ctx, trellis.NewDIModule(
		trellis.NewInstance(&Greeter{Prefix: "hello"}, trellis.WithIdentifier("greeter")),
		trellis.NewComponent[Welcome](),
	))
	app.RequireInit(ctx)
	app.RequireValidate()

	trellistest.AssertHas(app, "greeter")
	trellistest.AssertNotHas(app, "farewell")

	w := trellistest.MustInvoke[*Welcome](app)
	if got := w.Say("world"); got != "hello world" {
		t.Errorf("expected hello world, got %q", got)
	}

	g := trellistest.MustInvokeNamed[*Greeter](app, "greeter")
	if g != w.Greeter {
		t.Error("expected the injected greeter")
	}
}

func TestRequireInitFailure(t *testing.T) {
	tb := &recordingTB{}
	app := trellistest.New(tb)

	app.RequireInit(context.Background())

	if !tb.failed {
		t.Error("expected a failure without a DI module")
	}
	tb.runCleanups()
}

func TestAssertHasFailure(t *testing.T) {
	tb := &recordingTB{}
	app := trellistest.New(tb)
	app.RequireRegister(context.Background(), trellis.NewDIModule())

	trellistest.AssertHas(app, "greeter")

	if !tb.failed {
		t.Error("expected a failure for a missing component")
	}
	tb.runCleanups()
}

func TestCleanupResetsContext(t *testing.T) {
	ctx := context.Background()
	tb := &recordingTB{}
	app := trellistest.New(tb)
	app.RequireRegister(ctx, trellis.NewDIModule())
	app.RequireInit(ctx)

	if !trellis.IsStarted() {
		t.Fatal("expected the application to be started")
	}

	tb.runCleanups()

	if trellis.IsStarted() || trellis.Instance() != nil {
		t.Error("expected cleanup to reset the context")
	}
	if tb.failed {
		t.Errorf("unexpected failure: %s", tb.message)
	}
}
