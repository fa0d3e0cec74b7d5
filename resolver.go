package trellis

import (
	"fmt"

	"github.com/danpasecinic/trellis/internal/reflect"
)

// Invoke returns the component registered under type T.
func Invoke[T any](m *DIModule) (T, error) {
	var zero T

	if err := m.ready(); err != nil {
		return zero, err
	}
	instance, err := m.container.GetByType(reflect.TypeKey[T]())
	if err != nil {
		return zero, translate(err)
	}
	return cast[T](reflect.TypeKey[T](), instance)
}

// InvokeNamed returns the component registered under identifier as a T.
func InvokeNamed[T any](m *DIModule, identifier string) (T, error) {
	var zero T

	instance, err := m.GetComponent(identifier)
	if err != nil {
		return zero, err
	}
	return cast[T](identifier, instance)
}

func MustInvoke[T any](m *DIModule) T {
	v, err := Invoke[T](m)
	if err != nil {
		panic(err)
	}
	return v
}

func MustInvokeNamed[T any](m *DIModule, identifier string) T {
	v, err := InvokeNamed[T](m, identifier)
	if err != nil {
		panic(err)
	}
	return v
}

func cast[T any](key string, instance any) (T, error) {
	typed, ok := instance.(T)
	if !ok {
		var zero T
		return zero, errBadInput(
			fmt.Sprintf("component %s is %T, not %s", key, instance, reflect.TypeKey[T]()),
		)
	}
	return typed, nil
}
