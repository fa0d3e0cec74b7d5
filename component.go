package trellis

import (
	"context"
	"fmt"
	goreflect "reflect"
	"sync"

	"github.com/danpasecinic/trellis/internal/reflect"
)

// PostInjector is implemented by components needing initialization once
// their dependencies are injected and initialized themselves.
type PostInjector interface {
	PostInject(ctx context.Context) error
}

// Descriptor describes a component: how to build it and how to find it.
type Descriptor struct {
	typ        goreflect.Type
	instance   any
	identifier string
	postInject string
	err        error
}

type ComponentOption func(*Descriptor)

// WithIdentifier registers the component under identifier instead of
// its type.
func WithIdentifier(identifier string) ComponentOption {
	return func(d *Descriptor) {
		d.identifier = identifier
	}
}

// WithPostInject names the method to run after injection. The method may
// take a context.Context and may return an error.
func WithPostInject(method string) ComponentOption {
	return func(d *Descriptor) {
		if d.postInject != "" {
			d.err = errDuplicatedDecorator(d.Key(), "post-inject method declared twice")
			return
		}
		d.postInject = method
	}
}

// NewComponent describes a component of type T, built with new(T). T is
// a struct or a pointer to a struct; the instance is always a pointer.
func NewComponent[T any](opts ...ComponentOption) Descriptor {
	t := goreflect.TypeFor[T]()
	if t.Kind() == goreflect.Struct {
		t = goreflect.PointerTo(t)
	}

	d := Descriptor{typ: t}
	if t.Kind() != goreflect.Ptr || t.Elem().Kind() != goreflect.Struct {
		d.err = errBadInput(fmt.Sprintf("component type %s is not a struct", t))
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NewInstance describes an already built component.
func NewInstance(instance any, opts ...ComponentOption) Descriptor {
	d := Descriptor{instance: instance}
	if reflect.IsNil(instance) {
		d.err = errBadInput("component instance is nil")
	} else {
		d.typ = goreflect.TypeOf(instance)
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Key is the identifier of the component, or its type key.
func (d Descriptor) Key() string {
	if d.identifier != "" {
		return d.identifier
	}
	if d.typ == nil {
		return ""
	}
	return reflect.TypeKeyOf(d.typ)
}

// Package is the import path of the package declaring the component type.
func (d Descriptor) Package() string {
	return reflect.PackagePath(d.typ)
}

func (d Descriptor) build() any {
	if d.instance != nil {
		return d.instance
	}
	return goreflect.New(d.typ.Elem()).Interface()
}

func (d Descriptor) postInjectMethod(instance any) (func(context.Context) error, string, error) {
	injector, implements := instance.(PostInjector)

	switch {
	case d.postInject == "" && implements:
		return injector.PostInject, "PostInject", nil
	case d.postInject == "":
		return nil, "", nil
	case implements && d.postInject != "PostInject":
		return nil, "", errDuplicatedDecorator(
			d.Key(),
			fmt.Sprintf("post-inject method %s declared but the component also implements PostInjector", d.postInject),
		)
	}

	fn, err := reflect.Method(instance, d.postInject)
	if err != nil {
		return nil, "", NewError(ErrCodeBadInput, "invalid post-inject method", err).WithComponent(d.Key())
	}
	return fn, d.postInject, nil
}

var catalog struct {
	mu          sync.Mutex
	descriptors []Descriptor
}

// Declare adds components to the process-wide catalog read by the DI
// module when it scans. It is meant to be called from init functions.
func Declare(descriptors ...Descriptor) {
	catalog.mu.Lock()
	defer catalog.mu.Unlock()

	catalog.descriptors = append(catalog.descriptors, descriptors...)
}

// DeclaredComponents returns a copy of the catalog.
func DeclaredComponents() []Descriptor {
	catalog.mu.Lock()
	defer catalog.mu.Unlock()

	out := make([]Descriptor, len(catalog.descriptors))
	copy(out, catalog.descriptors)
	return out
}
