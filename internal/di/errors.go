package di

import (
	"fmt"
	"strings"
)

type NotFoundError struct {
	Key    string
	ByType bool
}

func (e *NotFoundError) Error() string {
	if e.ByType {
		return fmt.Sprintf("no component registered for type %s", e.Key)
	}
	return fmt.Sprintf("no component registered with identifier %q", e.Key)
}

type InjectionError struct {
	Component string
	Field     string
	Target    string
	Cause     error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("cannot inject %s into %s.%s: %v", e.Target, e.Component, e.Field, e.Cause)
}

func (e *InjectionError) Unwrap() error {
	return e.Cause
}

// CycleError reports a post-inject dependency cycle. Count is set when
// the debug tree step limit was reached rather than a cycle found.
type CycleError struct {
	Component string
	Count     int
	Trace     []string
}

func (e *CycleError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("dependency cycle at %s: %s", e.Component, strings.Join(e.Trace, " > "))
	}
	msg := fmt.Sprintf("dependency tree exceeded %d post-inject steps at %s", e.Count, e.Component)
	if len(e.Trace) > 0 {
		msg += ": " + strings.Join(e.Trace, " > ")
	}
	return msg
}

type PostInjectError struct {
	Component string
	Cause     error
}

func (e *PostInjectError) Error() string {
	return fmt.Sprintf("post-inject of %s failed: %v", e.Component, e.Cause)
}

func (e *PostInjectError) Unwrap() error {
	return e.Cause
}
