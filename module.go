package trellis

import (
	"context"
	"fmt"
	"time"

	"github.com/danpasecinic/trellis/internal/reflect"
)

type ModuleType uint8

const (
	ModuleTypeOther ModuleType = iota
	ModuleTypeController
	ModuleTypeDI
	ModuleTypeDatabase
	ModuleTypeControllerSecurity
)

var moduleTypeNames = map[ModuleType]string{
	ModuleTypeOther:              "OTHER",
	ModuleTypeController:         "CONTROLLER",
	ModuleTypeDI:                 "DI",
	ModuleTypeDatabase:           "DATABASE",
	ModuleTypeControllerSecurity: "CONTROLLER_SECURITY",
}

func (t ModuleType) String() string {
	if name, ok := moduleTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ModuleType(%d)", t)
}

// Module is a capability plugged into an App. RegisterModule runs once,
// when the module is handed to App.RegisterModules, and is the place to
// register hooks.
type Module interface {
	ModuleType() ModuleType
	RegisterModule(ctx context.Context, app *App) error
}

// DatabaseModule is the contract of modules of type ModuleTypeDatabase.
type DatabaseModule interface {
	Module
	SetupConnection(ctx context.Context) error
	Connection() any
}

// ControllerModule is the contract of modules of type ModuleTypeController.
type ControllerModule interface {
	Module
	ScanControllers(ctx context.Context) error
	HandleContextAvailable(ctx context.Context) error
}

// Shutdowner is implemented by modules holding resources released by
// App.Shutdown.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// moduleMap keys modules by their Go type, so a second module of the
// same type replaces the first one in place.
type moduleMap struct {
	keys    []string
	modules map[string]Module
}

func newModuleMap() *moduleMap {
	return &moduleMap{modules: make(map[string]Module)}
}

func (m *moduleMap) put(key string, module Module) {
	if _, exists := m.modules[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.modules[key] = module
}

func (m *moduleMap) list() []Module {
	out := make([]Module, 0, len(m.keys))
	for _, key := range m.keys {
		out = append(out, m.modules[key])
	}
	return out
}

// RegisterModules adds modules to the application and runs their
// RegisterModule entry point in order. The configuration is loaded on
// the first call.
func (a *App) RegisterModules(ctx context.Context, modules ...Module) error {
	if a.Started() || IsStarted() {
		return errLifecycle("cannot register modules: application already started")
	}
	if err := a.loadConfig(); err != nil {
		return err
	}

	for _, module := range modules {
		if reflect.IsNil(module) {
			return errBadInput("cannot register a nil module")
		}

		key := reflect.TypeKeyFromValue(module)
		a.mu.Lock()
		a.modules.put(key, module)
		a.mu.Unlock()

		start := time.Now()
		err := module.RegisterModule(ctx, a)
		a.observeModule(key, module.ModuleType(), time.Since(start), err)
		if err != nil {
			return errModuleFailed(key, err)
		}

		a.logger.Debug("registered module", "module", key, "type", module.ModuleType().String())
	}
	return nil
}

// Modules returns every registered module in registration order.
func (a *App) Modules() []Module {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.modules.list()
}

func (a *App) ModulesByType(t ModuleType) []Module {
	var out []Module
	for _, m := range a.Modules() {
		if m.ModuleType() == t {
			out = append(out, m)
		}
	}
	return out
}

// ModuleByType returns the first module of type t, or nil.
func (a *App) ModuleByType(t ModuleType) Module {
	mods := a.ModulesByType(t)
	if len(mods) == 0 {
		return nil
	}
	return mods[0]
}

// ControllerAdapters returns the controller modules of the application.
func (a *App) ControllerAdapters() []ControllerModule {
	var out []ControllerModule
	for _, m := range a.ModulesByType(ModuleTypeController) {
		if cm, ok := m.(ControllerModule); ok {
			out = append(out, cm)
		}
	}
	return out
}
