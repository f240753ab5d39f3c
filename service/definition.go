package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Definer produces a ServiceDescriptor.
type Definer interface {
	Describe(logger *zap.Logger) (*ServiceDescriptor, error)
}

// Provider is implemented by types whose operations may be dispatched.
type Provider interface {
	RPCService() Definer
}

type methodSpec struct {
	name   string
	params []ParameterDescriptor
	invoke Handle
	origin string
}

// Definition is the registration builder for a target type T.
type Definition[T any] struct {
	name         string
	dispatchable bool
	methods      []methodSpec
}

// Define starts a dispatchable definition. An empty name defaults to the Go
// type name of T.
func Define[T any](name string) *Definition[T] {
	if name == "" {
		var t T
		name = fmt.Sprintf("%T", t)
	}
	return &Definition[T]{name: name, dispatchable: true}
}

// Dispatchable marks whether the definition may be dispatched to directly.
// Definitions that only exist to be included elsewhere may turn it off.
func (d *Definition[T]) Dispatchable(on bool) *Definition[T] {
	d.dispatchable = on
	return d
}

// Method registers an operation under the rpc name.
func (d *Definition[T]) Method(name string, fn func(T, context.Context, Args) (any, error), params ...ParameterDescriptor) *Definition[T] {
	spec := methodSpec{
		name:   name,
		params: append([]ParameterDescriptor(nil), params...),
		origin: d.name,
	}
	if fn != nil {
		spec.invoke = func(ctx context.Context, target any, args Args) (any, error) {
			t, ok := target.(T)
			if !ok {
				return nil, &ConfigurationError{Service: d.name, Method: name, Err: fmt.Errorf("%w: got %T", ErrTargetMismatch, target)}
			}
			return fn(t, ctx, args)
		}
	}
	d.methods = append(d.methods, spec)
	return d
}

// Include folds the methods of an embedded definition into d. get projects
// the outer target onto the embedded one.
func Include[T, U any](d *Definition[T], embedded *Definition[U], get func(T) U) *Definition[T] {
	for _, spec := range embedded.methods {
		inner := spec.invoke
		name := spec.name
		if inner != nil {
			spec.invoke = func(ctx context.Context, target any, args Args) (any, error) {
				t, ok := target.(T)
				if !ok {
					return nil, &ConfigurationError{Service: d.name, Method: name, Err: fmt.Errorf("%w: got %T", ErrTargetMismatch, target)}
				}
				return inner(ctx, get(t), args)
			}
		}
		d.methods = append(d.methods, spec)
	}
	return d
}

// Describe builds the immutable descriptor. It has no side effects besides
// logging, so it may be called repeatedly.
func (d *Definition[T]) Describe(logger *zap.Logger) (*ServiceDescriptor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !d.dispatchable {
		return nil, &ConfigurationError{Service: d.name, Err: ErrNotDispatchable}
	}

	desc := &ServiceDescriptor{
		name:      d.name,
		isService: true,
		methods:   make(map[string]*MethodDescriptor, len(d.methods)),
	}
	origins := make(map[string]string, len(d.methods))

	for _, spec := range d.methods {
		if spec.name == "" || spec.invoke == nil {
			logger.Warn("skipping method without name or handler",
				zap.String("service", d.name), zap.String("method", spec.name))
			continue
		}
		m, ok, err := describeMethod(d.name, spec, logger)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if prev, exists := origins[spec.name]; exists {
			return nil, &ConfigurationError{
				Service: d.name,
				Method:  spec.name,
				Err:     fmt.Errorf("%w: declared by %s and %s", ErrDuplicateMethod, prev, spec.origin),
			}
		}
		origins[spec.name] = spec.origin
		desc.methods[spec.name] = m
		desc.order = append(desc.order, spec.name)
	}
	return desc, nil
}

func describeMethod(service string, spec methodSpec, logger *zap.Logger) (*MethodDescriptor, bool, error) {
	m := &MethodDescriptor{
		name:   spec.name,
		params: make([]ParameterDescriptor, 0, len(spec.params)),
		index:  make(map[string]int, len(spec.params)),
		invoke: spec.invoke,
	}
	for i, p := range spec.params {
		if p.Name == "" || p.decode == nil {
			logger.Warn("skipping method with unnamed parameter",
				zap.String("service", service), zap.String("method", spec.name), zap.Int("position", i))
			return nil, false, nil
		}
		if _, exists := m.index[p.Name]; exists {
			return nil, false, &ConfigurationError{Service: service, Method: spec.name, Param: p.Name, Err: ErrDuplicateParam}
		}
		p.Position = i
		m.index[p.Name] = i
		m.params = append(m.params, p)
	}
	return m, true, nil
}
