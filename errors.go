package trellis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danpasecinic/trellis/config"
	"github.com/danpasecinic/trellis/internal/di"
	"github.com/danpasecinic/trellis/internal/hook"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeNoSuchComponent
	ErrCodeInjection
	ErrCodeCircularDependency
	ErrCodeDuplicatedDecorator
	ErrCodeLifecycle
	ErrCodeReadOnly
	ErrCodeBadConfigFile
	ErrCodeBadInput
	ErrCodeNotImplemented
	ErrCodeModuleNotFound
	ErrCodeHookFailed
	ErrCodeModuleFailed
	ErrCodePostInjectFailed
	ErrCodeHealthCheckFailed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:             "UNKNOWN",
	ErrCodeNoSuchComponent:     "NO_SUCH_COMPONENT",
	ErrCodeInjection:           "INJECTION",
	ErrCodeCircularDependency:  "CIRCULAR_DEPENDENCY",
	ErrCodeDuplicatedDecorator: "DUPLICATED_DECORATOR",
	ErrCodeLifecycle:           "LIFECYCLE",
	ErrCodeReadOnly:            "READ_ONLY",
	ErrCodeBadConfigFile:       "BAD_CONFIG_FILE",
	ErrCodeBadInput:            "BAD_INPUT",
	ErrCodeNotImplemented:      "NOT_IMPLEMENTED",
	ErrCodeModuleNotFound:      "MODULE_NOT_FOUND",
	ErrCodeHookFailed:          "HOOK_FAILED",
	ErrCodeModuleFailed:        "MODULE_FAILED",
	ErrCodePostInjectFailed:    "POST_INJECT_FAILED",
	ErrCodeHealthCheckFailed:   "HEALTH_CHECK_FAILED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code    ErrorCode
	Message string
	// Component names the component, module or phase the error is about.
	Component string
	Cause     error
	Stack     []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Component != "" {
		b.WriteString(fmt.Sprintf(" component=%q:", e.Component))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

func (e *Error) WithStack(stack []string) *Error {
	e.Stack = stack
	return e
}

// NewError builds a coded error. Adapters use it to report failures in
// the same taxonomy as the core.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func errNoSuchComponent(key string, cause error) *Error {
	return NewError(ErrCodeNoSuchComponent, "component not found", cause).WithComponent(key)
}

func errLifecycle(message string) *Error {
	return NewError(ErrCodeLifecycle, message, nil)
}

func errBadInput(message string) *Error {
	return NewError(ErrCodeBadInput, message, nil)
}

func errNotImplemented(message string) *Error {
	return NewError(ErrCodeNotImplemented, message, nil)
}

func errDuplicatedDecorator(component, message string) *Error {
	return NewError(ErrCodeDuplicatedDecorator, message, nil).WithComponent(component)
}

func errBadConfigFile(cause error) *Error {
	return NewError(ErrCodeBadConfigFile, "cannot load configuration", cause)
}

func errModuleFailed(module string, cause error) *Error {
	return NewError(ErrCodeModuleFailed, "module failed", cause).WithComponent(module)
}

// translate maps errors of the internal packages onto coded errors.
func translate(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(*Error); ok {
		return err
	}

	var (
		coded      *Error
		cycle      *di.CycleError
		injection  *di.InjectionError
		notFound   *di.NotFoundError
		postInject *di.PostInjectError
		hookErr    *hook.Error
	)

	switch {
	case errors.As(err, &hookErr):
		return NewError(ErrCodeHookFailed, "hook failed", err).WithComponent(hookErr.Name)
	case errors.As(err, &cycle):
		return NewError(ErrCodeCircularDependency, "circular dependency detected", err).
			WithComponent(cycle.Component).
			WithStack(cycle.Trace)
	case errors.As(err, &injection):
		return NewError(ErrCodeInjection, "dependency injection failed", err).WithComponent(injection.Component)
	case errors.As(err, &postInject):
		return NewError(ErrCodePostInjectFailed, "post-inject failed", err).WithComponent(postInject.Component)
	case errors.As(err, &notFound):
		return errNoSuchComponent(notFound.Key, err)
	case errors.Is(err, config.ErrNotFound),
		errors.Is(err, config.ErrMalformed),
		errors.Is(err, config.ErrInvalid):
		return errBadConfigFile(err)
	case errors.As(err, &coded):
		return err
	default:
		return NewError(ErrCodeUnknown, "unexpected error", err)
	}
}

func IsNoSuchComponent(err error) bool {
	return hasCode(err, ErrCodeNoSuchComponent)
}

func IsInjection(err error) bool {
	return hasCode(err, ErrCodeInjection)
}

func IsCircularDependency(err error) bool {
	return hasCode(err, ErrCodeCircularDependency)
}

func IsDuplicatedDecorator(err error) bool {
	return hasCode(err, ErrCodeDuplicatedDecorator)
}

func IsLifecycle(err error) bool {
	return hasCode(err, ErrCodeLifecycle)
}

func IsReadOnly(err error) bool {
	return hasCode(err, ErrCodeReadOnly)
}

func IsBadConfigFile(err error) bool {
	return hasCode(err, ErrCodeBadConfigFile)
}

func IsBadInput(err error) bool {
	return hasCode(err, ErrCodeBadInput)
}

func IsNotImplemented(err error) bool {
	return hasCode(err, ErrCodeNotImplemented)
}

func IsModuleNotFound(err error) bool {
	return hasCode(err, ErrCodeModuleNotFound)
}

func IsModuleFailed(err error) bool {
	return hasCode(err, ErrCodeModuleFailed)
}

func IsHookFailed(err error) bool {
	return hasCode(err, ErrCodeHookFailed)
}

func IsPostInjectFailed(err error) bool {
	return hasCode(err, ErrCodePostInjectFailed)
}

// hasCode walks the whole chain, so a hook error wrapping a lifecycle
// error matches both codes.
func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}
