package service

import (
	"context"
	"encoding/json"
	"reflect"
)

// Handle invokes a bound operation on target with already decoded arguments.
type Handle func(ctx context.Context, target any, args Args) (any, error)

// ParameterDescriptor describes one declared parameter of a method.
type ParameterDescriptor struct {
	Name     string
	Position int
	Optional bool
	Type     reflect.Type

	decode func(raw json.RawMessage) (any, error)
	zero   func() any
}

// Decode converts raw into a value of the declared type.
func (p ParameterDescriptor) Decode(raw json.RawMessage) (any, error) {
	return p.decode(raw)
}

// Zero returns the zero value of the declared type, used for absent optional
// parameters.
func (p ParameterDescriptor) Zero() any {
	return p.zero()
}

// Param declares a mandatory parameter of type V.
func Param[V any](name string) ParameterDescriptor {
	return ParameterDescriptor{
		Name: name,
		Type: reflect.TypeFor[V](),
		decode: func(raw json.RawMessage) (any, error) {
			var v V
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
		zero: func() any {
			var v V
			return v
		},
	}
}

// Optional declares a parameter of type V that defaults to the zero value of
// V when absent or null.
func Optional[V any](name string) ParameterDescriptor {
	p := Param[V](name)
	p.Optional = true
	return p
}

// MethodDescriptor is the immutable description of one dispatchable method.
type MethodDescriptor struct {
	name   string
	params []ParameterDescriptor
	index  map[string]int
	invoke Handle
}

// Name returns the rpc method name.
func (m *MethodDescriptor) Name() string { return m.name }

// Params returns the declared parameters in positional order.
func (m *MethodDescriptor) Params() []ParameterDescriptor {
	return append([]ParameterDescriptor(nil), m.params...)
}

// NumParams returns the number of declared parameters.
func (m *MethodDescriptor) NumParams() int { return len(m.params) }

// ParamAt returns the parameter declared at position i.
func (m *MethodDescriptor) ParamAt(i int) ParameterDescriptor { return m.params[i] }

// Param looks up a declared parameter by name.
func (m *MethodDescriptor) Param(name string) (ParameterDescriptor, bool) {
	i, ok := m.index[name]
	if !ok {
		return ParameterDescriptor{}, false
	}
	return m.params[i], true
}

// Invoke calls the bound operation.
func (m *MethodDescriptor) Invoke(ctx context.Context, target any, args Args) (any, error) {
	return m.invoke(ctx, target, args)
}

// ServiceDescriptor is the immutable description of a dispatchable type.
type ServiceDescriptor struct {
	name      string
	isService bool
	methods   map[string]*MethodDescriptor
	order     []string
}

// Name returns the service name given at definition time.
func (s *ServiceDescriptor) Name() string { return s.name }

// IsService reports whether the service is marked dispatchable.
func (s *ServiceDescriptor) IsService() bool { return s != nil && s.isService }

// Method looks up a method by rpc name.
func (s *ServiceDescriptor) Method(name string) (*MethodDescriptor, bool) {
	if s == nil {
		return nil, false
	}
	m, ok := s.methods[name]
	return m, ok
}

// Methods returns the rpc names in registration order.
func (s *ServiceDescriptor) Methods() []string {
	return append([]string(nil), s.order...)
}
