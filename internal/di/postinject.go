package di

import (
	"context"
	"slices"
	"time"
)

// TriggerPostInject runs the post-inject method of every entry that has
// one, in registration order. Dependencies are resolved depth first, one
// at a time, so a method always sees its dependencies initialized. A
// method runs at most once however many dependents reach it.
func (c *Container) TriggerPostInject(ctx context.Context) error {
	for _, e := range c.Entries() {
		if e.PostInject == nil {
			continue
		}
		if err := c.runPostInject(ctx, e, nil); err != nil {
			return err
		}
	}
	return nil
}

// Trace returns the post-inject traversal recorded so far. It is empty
// unless DebugTree is set.
func (c *Container) Trace() []string {
	c.treeMu.Lock()
	defer c.treeMu.Unlock()

	out := make([]string, len(c.trace))
	copy(out, c.trace)
	return out
}

func (c *Container) TreeCount() int {
	c.treeMu.Lock()
	defer c.treeMu.Unlock()

	return c.treeCount
}

// runPostInject runs the post-inject of e after those of its
// dependencies. path holds the entries being resolved above e.
func (c *Container) runPostInject(ctx context.Context, e *Entry, path []string) error {
	if e.Done() {
		return e.post.err
	}
	if slices.Contains(path, e.Key) {
		return &CycleError{Component: e.Key, Trace: append(slices.Clone(path), e.Key)}
	}
	if err := c.step(e.Key); err != nil {
		return err
	}

	path = append(path[:len(path):len(path)], e.Key)
	for _, f := range e.Dependencies {
		dep, err := c.lookup(f)
		if err != nil {
			return err
		}
		if dep.PostInject == nil {
			continue
		}
		if err := c.runPostInject(ctx, dep, path); err != nil {
			return err
		}
	}
	return c.execute(ctx, e)
}

// step counts a traversal step when DebugTree is set and fails once the
// count reaches the configured limit.
func (c *Container) step(key string) error {
	if !c.debugTree {
		return nil
	}

	c.treeMu.Lock()
	defer c.treeMu.Unlock()

	c.treeCount++
	c.trace = append(c.trace, key)

	if c.treeCount >= c.maxTreeCount {
		return &CycleError{Component: key, Count: c.maxTreeCount, Trace: slices.Clone(c.trace)}
	}
	return nil
}

func (c *Container) execute(ctx context.Context, e *Entry) error {
	e.post.mu.Lock()
	if e.post.started {
		e.post.mu.Unlock()
		return e.wait(ctx)
	}
	e.post.started = true
	e.post.mu.Unlock()

	c.logger.Debug("running post-inject", "component", e.Key, "method", e.PostInjectID)

	start := time.Now()
	err := e.PostInject(ctx)
	if err != nil {
		err = &PostInjectError{Component: e.Key, Cause: err}
	}
	duration := time.Since(start)

	e.post.err = err
	close(e.post.done)

	for _, hook := range c.onPostInject {
		hook(e.Key, duration, err)
	}
	return err
}

// wait blocks until a post-inject started by another caller finishes.
func (e *Entry) wait(ctx context.Context) error {
	select {
	case <-e.post.done:
		return e.post.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
