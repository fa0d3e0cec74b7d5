package trellis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danpasecinic/trellis/config"
	"github.com/danpasecinic/trellis/internal/hook"
	"github.com/danpasecinic/trellis/internal/reflect"
)

const tracerName = "github.com/danpasecinic/trellis"

// App sequences the lifecycle of an application: it owns the modules and
// runs the hooks of every phase in a fixed order.
type App struct {
	cfg     *appConfig
	logger  *slog.Logger
	level   *slog.LevelVar
	tracer  trace.Tracer
	metrics *lifecycleMetrics
	hooks   [len(phaseNames)]*hook.Storage

	mu          sync.Mutex
	settings    *config.Configuration
	modules     *moduleMap
	initialized bool
	started     atomic.Bool
}

func New(opts ...Option) *App {
	cfg := &appConfig{
		configPath: config.DefaultPath,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	level := new(slog.LevelVar)
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		level:   level,
		tracer:  tp.Tracer(tracerName),
		metrics: newLifecycleMetrics(cfg.registerer),
		modules: newModuleMap(),
	}
	for i := range a.hooks {
		a.hooks[i] = hook.New()
	}
	return a
}

func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Config returns the loaded configuration, or the defaults before the
// first module registration.
func (a *App) Config() *config.Configuration {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.settings == nil {
		return config.Default()
	}
	return a.settings
}

func (a *App) Started() bool {
	return a.started.Load()
}

// DI returns the registered DI module.
func (a *App) DI() (*DIModule, error) {
	m, ok := a.ModuleByType(ModuleTypeDI).(*DIModule)
	if !ok {
		return nil, errLifecycle("no DI module registered")
	}
	return m, nil
}

func (a *App) loadConfig() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.settings != nil {
		return nil
	}

	settings := a.cfg.configuration
	if settings == nil {
		loaded, err := config.Load(a.cfg.configPath)
		if err != nil {
			return translate(err)
		}
		settings = loaded
	} else {
		config.ApplyDefaults(settings)
		if err := config.Validate(settings); err != nil {
			return translate(err)
		}
	}

	a.settings = settings
	a.level.Set(settings.SlogLevel())
	return nil
}

// Init runs the whole initialization sequence once:
//
//	beforeInit
//	database connection
//	component scan, diAfterComponentScan
//	injection, diAfterInject
//	post-inject, diAfterPostInject
//	contextAvailable
//	controller scan, controllersAfterScan
//	controller injection, controllersReady
//	contextReady
//
// The first failure stops the sequence and is returned.
func (a *App) Init(ctx context.Context) error {
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return errLifecycle("application already initialized")
	}
	a.initialized = true
	a.mu.Unlock()

	start := time.Now()

	if err := a.loadConfig(); err != nil {
		return err
	}
	if err := defineInstance(a); err != nil {
		return err
	}

	a.logger.Info("initializing application", "modules", len(a.Modules()))

	if err := a.runPhase(ctx, PhaseBeforeInit); err != nil {
		return err
	}
	if err := a.initDatabase(ctx); err != nil {
		return err
	}
	if err := a.initDI(ctx); err != nil {
		return err
	}
	if err := a.runPhase(ctx, PhaseContextAvailable); err != nil {
		return err
	}
	if err := a.initControllers(ctx); err != nil {
		return err
	}
	if err := a.runPhase(ctx, PhaseContextReady); err != nil {
		return err
	}

	a.started.Store(true)
	defineStarted()

	a.logger.Info("application started", "duration", time.Since(start))
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	mods := a.ModulesByType(ModuleTypeDatabase)
	if len(mods) == 0 {
		return nil
	}
	if len(mods) > 1 {
		return errNotImplemented("only one database module is supported")
	}

	db, ok := mods[0].(DatabaseModule)
	if !ok {
		return errBadInput(fmt.Sprintf("module %s is not a database module", reflect.TypeKeyFromValue(mods[0])))
	}

	return a.step(ctx, "database.setupConnection", func(ctx context.Context) error {
		if err := db.SetupConnection(ctx); err != nil {
			return errModuleFailed(reflect.TypeKeyFromValue(db), err)
		}
		return nil
	})
}

func (a *App) initDI(ctx context.Context) error {
	mods := a.ModulesByType(ModuleTypeDI)
	if len(mods) == 0 {
		return errBadInput("a DI module is required")
	}
	if len(mods) > 1 {
		return errNotImplemented("only one DI module is supported")
	}

	m, ok := mods[0].(*DIModule)
	if !ok {
		return errBadInput(fmt.Sprintf("module %s is not a DI module", reflect.TypeKeyFromValue(mods[0])))
	}
	setDIModule(m)

	if err := a.step(ctx, "di.scan", m.FindAndRegisterComponents); err != nil {
		return err
	}
	a.metrics.setComponents(m.Size())
	if err := a.runPhase(ctx, PhaseDIAfterComponentScan); err != nil {
		return err
	}

	if err := a.step(ctx, "di.inject", func(context.Context) error { return m.InjectAllDependencies() }); err != nil {
		return err
	}
	if err := a.runPhase(ctx, PhaseDIAfterInject); err != nil {
		return err
	}

	if err := a.step(ctx, "di.postInject", m.TriggerPostInject); err != nil {
		return err
	}
	if a.Config().CreateDependencyTree {
		a.logger.Debug("dependency graph\n"+m.SprintGraph(), "trace_steps", len(m.DependencyTrace()))
	}
	return a.runPhase(ctx, PhaseDIAfterPostInject)
}

// initControllers runs both controller phases whether or not a
// controller module is registered; only the module steps are skipped.
func (a *App) initControllers(ctx context.Context) error {
	mods := a.ModulesByType(ModuleTypeController)
	if len(mods) > 1 {
		return errNotImplemented("only one controller module is supported")
	}

	var c ControllerModule
	if len(mods) == 1 {
		var ok bool
		if c, ok = mods[0].(ControllerModule); !ok {
			return errBadInput(fmt.Sprintf("module %s is not a controller module", reflect.TypeKeyFromValue(mods[0])))
		}
	}

	if c != nil {
		if err := a.step(ctx, "controllers.scan", c.ScanControllers); err != nil {
			return err
		}
	}
	if err := a.runPhase(ctx, PhaseControllersAfterScan); err != nil {
		return err
	}
	if c != nil {
		if err := a.step(ctx, "controllers.contextAvailable", c.HandleContextAvailable); err != nil {
			return err
		}
	}
	return a.runPhase(ctx, PhaseControllersReady)
}

func (a *App) runPhase(ctx context.Context, phase Phase) error {
	ctx, span := a.tracer.Start(
		ctx, "trellis.phase."+phase.String(),
		trace.WithAttributes(
			attribute.String("trellis.phase", phase.String()),
			attribute.Int("trellis.hooks", a.hooks[phase].Len()),
		),
	)
	defer span.End()

	a.logger.Debug("running phase", "phase", phase.String(), "hooks", a.hooks[phase].Len())

	start := time.Now()
	err := translate(a.hooks[phase].Run(ctx))
	a.observePhase(phase, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error("phase failed", "phase", phase.String(), "error", err)
	}
	return err
}

func (a *App) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := a.tracer.Start(ctx, "trellis.step."+name)
	defer span.End()

	err := translate(fn(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error("initialization step failed", "step", name, "error", err)
	}
	return err
}

// Run initializes the application, waits for ctx to end or for SIGINT
// or SIGTERM, then shuts the modules down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)

	shutdownCtx := context.Background()
	if a.cfg.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, a.cfg.shutdownTimeout)
		defer cancel()
	}
	return a.Shutdown(shutdownCtx)
}

// Shutdown calls Shutdown on every module implementing Shutdowner, last
// registered first, and joins their errors.
func (a *App) Shutdown(ctx context.Context) error {
	mods := a.Modules()
	var errs []error

	for i := len(mods) - 1; i >= 0; i-- {
		s, ok := mods[i].(Shutdowner)
		if !ok {
			continue
		}
		key := reflect.TypeKeyFromValue(mods[i])
		a.logger.Debug("shutting down module", "module", key)
		if err := s.Shutdown(ctx); err != nil {
			errs = append(errs, errModuleFailed(key, err))
		}
	}
	return errors.Join(errs...)
}
