// Package trellistest builds applications for tests.
package trellistest

import (
	"context"
	"io"
	"log/slog"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/config"
	"github.com/danpasecinic/trellis/internal/reflect"
)

// NoDeclaredComponents is a base path no package matches, so the DI
// module only registers the components it is given explicitly.
const NoDeclaredComponents = "trellistest.invalid/none"

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestApp struct {
	*trellis.App
	tb TB
}

// Config returns an in-memory configuration ignoring declared components.
func Config() *config.Configuration {
	cfg := config.Default()
	cfg.BasePath = NoDeclaredComponents
	return cfg
}

// New resets the process-wide context and returns an App that reads no
// configuration file and logs nowhere. Options override those defaults.
// The context is reset again and the modules shut down on cleanup.
func New(tb TB, opts ...trellis.Option) *TestApp {
	tb.Helper()

	trellis.ResetContext()

	base := []trellis.Option{
		trellis.WithConfig(Config()),
		trellis.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	app := trellis.New(append(base, opts...)...)
	ta := &TestApp{
		App: app,
		tb:  tb,
	}

	tb.Cleanup(func() {
		if err := app.Shutdown(context.Background()); err != nil {
			tb.Fatalf("failed to shut down application: %v", err)
		}
		trellis.ResetContext()
	})

	return ta
}

func (ta *TestApp) RequireRegister(ctx context.Context, modules ...trellis.Module) {
	ta.tb.Helper()

	if err := ta.RegisterModules(ctx, modules...); err != nil {
		ta.tb.Fatalf("failed to register modules: %v", err)
	}
}

func (ta *TestApp) RequireInit(ctx context.Context) {
	ta.tb.Helper()

	if err := ta.Init(ctx); err != nil {
		ta.tb.Fatalf("failed to initialize application: %v", err)
	}
}

// RequireDI returns the DI module of the application.
func (ta *TestApp) RequireDI() *trellis.DIModule {
	ta.tb.Helper()

	m, err := ta.DI()
	if err != nil {
		ta.tb.Fatalf("no DI module: %v", err)
	}
	return m
}

func (ta *TestApp) RequireValidate() {
	ta.tb.Helper()

	if err := ta.RequireDI().Validate(); err != nil {
		ta.tb.Fatalf("component validation failed: %v", err)
	}
}

func AssertHas(ta *TestApp, key string) {
	ta.tb.Helper()

	if !ta.RequireDI().HasComponent(key) {
		ta.tb.Fatalf("expected component %s", key)
	}
}

func AssertNotHas(ta *TestApp, key string) {
	ta.tb.Helper()

	if ta.RequireDI().HasComponent(key) {
		ta.tb.Fatalf("expected no component %s", key)
	}
}

func MustInvoke[T any](ta *TestApp) T {
	ta.tb.Helper()

	v, err := trellis.Invoke[T](ta.RequireDI())
	if err != nil {
		ta.tb.Fatalf("failed to invoke %s: %v", reflect.TypeKey[T](), err)
	}
	return v
}

func MustInvokeNamed[T any](ta *TestApp, identifier string) T {
	ta.tb.Helper()

	v, err := trellis.InvokeNamed[T](ta.RequireDI(), identifier)
	if err != nil {
		ta.tb.Fatalf("failed to invoke %s: %v", identifier, err)
	}
	return v
}
