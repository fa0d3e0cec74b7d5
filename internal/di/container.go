package di

import (
	"log/slog"
	"sync"
	"time"

	"github.com/danpasecinic/trellis/internal/graph"
	"github.com/danpasecinic/trellis/internal/reflect"
)

const DefaultMaxTreeCount = 2000

type PostInjectHook func(key string, duration time.Duration, err error)

type Config struct {
	Logger *slog.Logger
	// DebugTree records every post-inject traversal step so that a
	// CycleError carries the path that led to it.
	DebugTree    bool
	MaxTreeCount int
	OnPostInject []PostInjectHook
}

type Container struct {
	mu           sync.RWMutex
	byIdentifier *store
	byType       *store
	graph        *graph.Graph
	logger       *slog.Logger
	onPostInject []PostInjectHook

	debugTree    bool
	maxTreeCount int
	treeMu       sync.Mutex
	treeCount    int
	trace        []string
}

func New(cfg *Config) *Container {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxCount := cfg.MaxTreeCount
	if maxCount <= 0 {
		maxCount = DefaultMaxTreeCount
	}

	return &Container{
		byIdentifier: newStore(),
		byType:       newStore(),
		graph:        graph.New(),
		logger:       logger,
		onPostInject: cfg.OnPostInject,
		debugTree:    cfg.DebugTree,
		maxTreeCount: maxCount,
	}
}

// Register stores e under its identifier, or under its type key when no
// identifier is set. An existing entry with the same key is replaced.
func (c *Container) Register(e *Entry) {
	if e.Identifier != "" {
		e.Key = e.Identifier
	} else {
		e.Key = e.TypeKey
	}
	e.post.done = make(chan struct{})

	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Identifier != "" {
		if _, exists := c.byIdentifier.get(e.Key); exists {
			c.logger.Warn("component identifier registered twice, keeping the last one", "component", e.Key)
		}
		c.byIdentifier.put(e)
	} else {
		c.byType.put(e)
	}

	targets := make([]string, len(e.Dependencies))
	for i, f := range e.Dependencies {
		targets[i] = f.Target()
	}
	c.graph.AddNode(e.Key, targets)

	c.logger.Debug("registered component", "component", e.Key, "dependencies", len(targets))
}

func (c *Container) Get(identifier string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.byIdentifier.get(identifier)
	if !ok {
		return nil, &NotFoundError{Key: identifier}
	}
	return e.Instance, nil
}

func (c *Container) GetByType(typeKey string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.byType.get(typeKey)
	if !ok {
		return nil, &NotFoundError{Key: typeKey, ByType: true}
	}
	return e.Instance, nil
}

func (c *Container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.byIdentifier.get(key); ok {
		return true
	}
	_, ok := c.byType.get(key)
	return ok
}

func (c *Container) lookup(f reflect.Field) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if f.Identifier != "" {
		if e, ok := c.byIdentifier.get(f.Identifier); ok {
			return e, nil
		}
		return nil, &NotFoundError{Key: f.Identifier}
	}
	if e, ok := c.byType.get(f.TypeKey); ok {
		return e, nil
	}
	return nil, &NotFoundError{Key: f.TypeKey, ByType: true}
}

// Entries returns identifier entries first, then type entries, each in
// registration order.
func (c *Container) Entries() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append(c.byIdentifier.list(), c.byType.list()...)
}

func (c *Container) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.byIdentifier.keys) + len(c.byType.keys)
}

func (c *Container) Graph() *graph.Graph {
	return c.graph
}

// InjectInto resolves every field and assigns the component found.
func (c *Container) InjectInto(name string, target any, fields []reflect.Field) error {
	for _, f := range fields {
		dep, err := c.lookup(f)
		if err != nil {
			return &InjectionError{Component: name, Field: f.Name, Target: f.Target(), Cause: err}
		}
		if err := reflect.Assign(target, f, dep.Instance); err != nil {
			return &InjectionError{Component: name, Field: f.Name, Target: f.Target(), Cause: err}
		}
		c.logger.Debug("injected dependency", "component", name, "field", f.Name, "target", f.Target())
	}
	return nil
}

func (c *Container) InjectAll() error {
	for _, e := range c.Entries() {
		if err := c.InjectInto(e.Key, e.Instance, e.Dependencies); err != nil {
			return err
		}
	}
	return nil
}
