package trellis

import (
	"context"
	"fmt"
	"log/slog"
	goreflect "reflect"
	"strings"

	"github.com/danpasecinic/trellis/internal/di"
	"github.com/danpasecinic/trellis/internal/reflect"
)

// DatabaseConnectionIdentifier is the component identifier under which a
// database module publishes its connection.
const DatabaseConnectionIdentifier = "DatabaseConnection"

// DIModule owns the component container. Every App needs exactly one.
type DIModule struct {
	explicit  []Descriptor
	logger    *slog.Logger
	basePath  string
	container *di.Container
}

// NewDIModule creates the DI module. Components passed here are
// registered in addition to the declared ones, whatever their package.
func NewDIModule(components ...Descriptor) *DIModule {
	return &DIModule{explicit: components}
}

func (m *DIModule) ModuleType() ModuleType {
	return ModuleTypeDI
}

func (m *DIModule) RegisterModule(_ context.Context, app *App) error {
	settings := app.Config()
	m.logger = app.Logger().With("module", "di")
	m.basePath = settings.BasePath
	m.container = di.New(&di.Config{
		Logger:       m.logger,
		DebugTree:    settings.CreateDependencyTree,
		MaxTreeCount: settings.DependencyTryMaxCount,
		OnPostInject: []di.PostInjectHook{app.observePostInject},
	})
	return nil
}

func (m *DIModule) ready() error {
	if m.container == nil {
		return errLifecycle("DI module is not registered on an application")
	}
	return nil
}

// FindAndRegisterComponents registers the declared components whose
// package matches the configured base path, then the explicit ones.
func (m *DIModule) FindAndRegisterComponents(_ context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}

	scanned := 0
	for _, d := range DeclaredComponents() {
		if m.basePath != "" && !strings.HasPrefix(d.Package(), m.basePath) {
			continue
		}
		if err := m.RegisterComponent(d); err != nil {
			return err
		}
		scanned++
	}

	for _, d := range m.explicit {
		if err := m.RegisterComponent(d); err != nil {
			return err
		}
	}

	m.logger.Info("components registered", "declared", scanned, "explicit", len(m.explicit), "base_path", m.basePath)
	return nil
}

// RegisterComponent builds the component described by d and stores it.
// A component already stored under the same key is replaced.
func (m *DIModule) RegisterComponent(d Descriptor) error {
	if err := m.ready(); err != nil {
		return err
	}
	if d.err != nil {
		return d.err
	}

	instance := d.build()
	fields, err := reflect.InjectFields(goreflect.TypeOf(instance))
	if err != nil {
		return NewError(ErrCodeBadInput, "invalid inject tag", err).WithComponent(d.Key())
	}

	postInject, method, err := d.postInjectMethod(instance)
	if err != nil {
		return err
	}

	m.container.Register(&di.Entry{
		Identifier:   d.identifier,
		TypeKey:      reflect.TypeKeyOf(d.typ),
		Instance:     instance,
		Dependencies: fields,
		PostInject:   postInject,
		PostInjectID: method,
	})
	return nil
}

// RegisterInstance stores an already built component under identifier,
// or under its type when identifier is empty.
func (m *DIModule) RegisterInstance(instance any, identifier string) error {
	var opts []ComponentOption
	if identifier != "" {
		opts = append(opts, WithIdentifier(identifier))
	}
	return m.RegisterComponent(NewInstance(instance, opts...))
}

// GetComponent returns the component registered under identifier.
func (m *DIModule) GetComponent(identifier string) (any, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	instance, err := m.container.Get(identifier)
	return instance, translate(err)
}

// GetComponentOf returns the component registered under type t.
func (m *DIModule) GetComponentOf(t goreflect.Type) (any, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	instance, err := m.container.GetByType(reflect.TypeKeyOf(t))
	return instance, translate(err)
}

// HasComponent reports whether an identifier or a type key is stored.
func (m *DIModule) HasComponent(key string) bool {
	return m.container != nil && m.container.Has(key)
}

// InjectInto assigns the inject-tagged fields of target, which does not
// need to be a registered component.
func (m *DIModule) InjectInto(target any) error {
	if err := m.ready(); err != nil {
		return err
	}

	fields, err := reflect.InjectFields(goreflect.TypeOf(target))
	if err != nil {
		return NewError(ErrCodeBadInput, "invalid inject tag", err).WithComponent(reflect.TypeKeyFromValue(target))
	}
	return translate(m.container.InjectInto(reflect.TypeKeyFromValue(target), target, fields))
}

func (m *DIModule) InjectAllDependencies() error {
	if err := m.ready(); err != nil {
		return err
	}
	return translate(m.container.InjectAll())
}

// TriggerPostInject runs post-inject methods, dependencies first.
func (m *DIModule) TriggerPostInject(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	return translate(m.container.TriggerPostInject(ctx))
}

// Components lists the stored keys, identifiers first.
func (m *DIModule) Components() []string {
	if m.container == nil {
		return nil
	}
	entries := m.container.Entries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

func (m *DIModule) Size() int {
	if m.container == nil {
		return 0
	}
	return m.container.Size()
}

// DependencyTrace returns the post-inject traversal, recorded only when
// createDependencyTree is enabled.
func (m *DIModule) DependencyTrace() []string {
	if m.container == nil {
		return nil
	}
	return m.container.Trace()
}

// Validate reports dependencies nothing provides and dependency cycles
// without running any post-inject method.
func (m *DIModule) Validate() error {
	if err := m.ready(); err != nil {
		return err
	}

	g := m.container.Graph()
	if missing := g.Missing(); len(missing) > 0 {
		return errNoSuchComponent(missing[0], fmt.Errorf("%d unresolved dependencies: %s", len(missing), strings.Join(missing, ", ")))
	}
	if cycles := g.Cycles(); len(cycles) > 0 {
		path := g.CyclePath(cycles[0][0])
		return NewError(
			ErrCodeCircularDependency,
			fmt.Sprintf("circular dependency detected: %s", strings.Join(path, " > ")),
			nil,
		).WithComponent(cycles[0][0]).WithStack(path)
	}
	return nil
}
