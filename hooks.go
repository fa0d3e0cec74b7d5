package trellis

import (
	"context"
	"fmt"
)

// HookFunc runs at a lifecycle phase and receives the application being
// initialized.
type HookFunc func(ctx context.Context, app *App) error

// HookEntry describes a hook registered before an App exists.
type HookEntry struct {
	Phase Phase
	// Name makes the hook replaceable: registering the same name again in
	// the same phase swaps the body and keeps the original position.
	Name string
	Body HookFunc
}

func (e HookEntry) validate() error {
	if !e.Phase.valid() {
		return errBadInput(fmt.Sprintf("unknown phase %d", e.Phase))
	}
	if e.Body == nil {
		return errBadInput(fmt.Sprintf("nil hook body for phase %s", e.Phase))
	}
	return nil
}

// RegisterHook appends an unnamed hook to phase.
func (a *App) RegisterHook(phase Phase, body HookFunc) error {
	return a.addHook(HookEntry{Phase: phase, Body: body})
}

// RegisterNamedHook registers a hook that a later registration under
// the same name replaces in place.
func (a *App) RegisterNamedHook(phase Phase, name string, body HookFunc) error {
	if name == "" {
		return errBadInput("hook name must not be empty")
	}
	return a.addHook(HookEntry{Phase: phase, Name: name, Body: body})
}

func (a *App) addHook(entry HookEntry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	if a.Started() {
		return errLifecycle(fmt.Sprintf("cannot register hook on %s: application already started", entry.Phase))
	}

	body := entry.Body
	a.hooks[entry.Phase].Register(entry.Name, func(ctx context.Context) error {
		return body(ctx, a)
	})

	a.logger.Debug("registered hook", "phase", entry.Phase.String(), "name", entry.Name)
	return nil
}

// HookCount reports how many hooks are registered for phase.
func (a *App) HookCount(phase Phase) int {
	if !phase.valid() {
		return 0
	}
	return a.hooks[phase].Len()
}
