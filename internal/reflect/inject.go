package reflect

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

const TagKey = "inject"

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Field is a struct field carrying an inject tag.
type Field struct {
	Name string
	// Identifier is set when the tag names a component; otherwise the
	// field is resolved by TypeKey.
	Identifier string
	TypeKey    string
	Index      []int
	Type       reflect.Type
}

// Target returns the identifier or the type key the field resolves to.
func (f Field) Target() string {
	if f.Identifier != "" {
		return f.Identifier
	}
	return f.TypeKey
}

// InjectFields lists the tagged fields of the struct behind t.
// Only direct fields are inspected; embedded structs are not walked.
func InjectFields(t reflect.Type) ([]Field, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil
	}

	var fields []Field
	for i := range t.NumField() {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup(TagKey)
		if !ok {
			continue
		}
		if !sf.IsExported() {
			return nil, fmt.Errorf("field %s.%s is tagged %q but not exported", t.Name(), sf.Name, TagKey)
		}
		fields = append(fields, Field{
			Name:       sf.Name,
			Identifier: tag,
			TypeKey:    TypeKeyOf(sf.Type),
			Index:      sf.Index,
			Type:       sf.Type,
		})
	}
	return fields, nil
}

// Assign sets the field of target described by f to value.
func Assign(target any, f Field, value any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("target must be a non-nil pointer to a struct")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("target %s is not a struct", rv.Type())
	}

	field := rv.FieldByIndex(f.Index)
	if !field.CanSet() {
		return fmt.Errorf("field %s cannot be set", f.Name)
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("nil value for field %s", f.Name)
	}
	if !val.Type().AssignableTo(field.Type()) {
		return fmt.Errorf("%s is not assignable to field %s of type %s", val.Type(), f.Name, field.Type())
	}
	field.Set(val)
	return nil
}

// Method looks up an exported method by name on v and adapts it to a
// context-aware call. Accepted shapes: func(), func() error,
// func(context.Context), func(context.Context) error.
func Method(v any, name string) (func(ctx context.Context) error, error) {
	m := reflect.ValueOf(v).MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("%s has no method %s", reflect.TypeOf(v), name)
	}

	mt := m.Type()
	if mt.IsVariadic() || mt.NumIn() > 1 || mt.NumOut() > 1 {
		return nil, fmt.Errorf("method %s has unsupported signature %s", name, mt)
	}
	withCtx := mt.NumIn() == 1
	if withCtx && mt.In(0) != contextType {
		return nil, fmt.Errorf("method %s must accept context.Context, got %s", name, mt.In(0))
	}
	withErr := mt.NumOut() == 1
	if withErr && mt.Out(0) != errorType {
		return nil, fmt.Errorf("method %s must return error, got %s", name, mt.Out(0))
	}

	return func(ctx context.Context) error {
		var in []reflect.Value
		if withCtx {
			in = []reflect.Value{reflect.ValueOf(ctx)}
		}
		out := m.Call(in)
		if withErr && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}, nil
}
