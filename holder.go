package trellis

import (
	"sync"
)

// The context holder is process wide: packages can register hooks from
// init functions, long before main builds an App. Those hooks are kept
// and handed to the App when its initialization starts.
type contextHolder struct {
	mu       sync.Mutex
	instance *App
	di       *DIModule
	started  bool
	pending  []HookEntry
}

var holder = &contextHolder{}

// RegisterHooks registers hooks on the running App, or keeps them until
// one starts initializing. It fails once an App has started.
func RegisterHooks(entries ...HookEntry) error {
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return err
		}
	}

	holder.mu.Lock()
	if holder.started {
		holder.mu.Unlock()
		return errLifecycle("cannot register hooks: application already started")
	}
	app := holder.instance
	if app == nil {
		holder.pending = append(holder.pending, entries...)
		holder.mu.Unlock()
		return nil
	}
	holder.mu.Unlock()

	for _, e := range entries {
		if err := app.addHook(e); err != nil {
			return err
		}
	}
	return nil
}

// MustRegisterHooks is RegisterHooks for init functions.
func MustRegisterHooks(entries ...HookEntry) {
	if err := RegisterHooks(entries...); err != nil {
		panic(err)
	}
}

// Instance returns the App being initialized or running, nil before Init.
func Instance() *App {
	holder.mu.Lock()
	defer holder.mu.Unlock()

	return holder.instance
}

// CurrentDIModule returns the DI module of the running App. It is
// available from the diAfterComponentScan phase on.
func CurrentDIModule() (*DIModule, error) {
	holder.mu.Lock()
	defer holder.mu.Unlock()

	if holder.di == nil {
		return nil, errLifecycle("DI module is not available yet")
	}
	return holder.di, nil
}

func IsStarted() bool {
	holder.mu.Lock()
	defer holder.mu.Unlock()

	return holder.started
}

// PendingHooks returns a copy of the hooks waiting for an App.
func PendingHooks() []HookEntry {
	holder.mu.Lock()
	defer holder.mu.Unlock()

	out := make([]HookEntry, len(holder.pending))
	copy(out, holder.pending)
	return out
}

// ResetContext forgets the App, the DI module and every pending hook.
// It exists for tests that build several applications in one process.
func ResetContext() {
	holder.mu.Lock()
	defer holder.mu.Unlock()

	holder.instance = nil
	holder.di = nil
	holder.started = false
	holder.pending = nil
}

func defineInstance(a *App) error {
	holder.mu.Lock()
	if holder.started {
		holder.mu.Unlock()
		return errLifecycle("an application has already started in this process")
	}
	if holder.instance != nil && holder.instance != a {
		holder.mu.Unlock()
		return errLifecycle("another application is already initializing in this process")
	}
	holder.instance = a
	pending := holder.pending
	holder.pending = nil
	holder.mu.Unlock()

	for _, e := range pending {
		if err := a.addHook(e); err != nil {
			return err
		}
	}
	a.logger.Debug("application defined", "replayed_hooks", len(pending))
	return nil
}

func setDIModule(m *DIModule) {
	holder.mu.Lock()
	defer holder.mu.Unlock()

	holder.di = m
}

func defineStarted() {
	holder.mu.Lock()
	defer holder.mu.Unlock()

	holder.started = true
}
