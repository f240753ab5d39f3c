package client

import (
	"context"
	"slices"
)

// Stub describes a remote service: its methods with their parameter names in
// declaration order. Calls through a stub send params in the stub's style.
//
//	calc := client.NewStub(c)
//	calc.Define("add", "x", "y")
//	sum, err := client.Call[int](ctx, calc, "add", 1, 2)
type Stub struct {
	c       *Client
	style   ParamsStyle
	ids     IDGenerator
	methods map[string][]string
}

// StubOption configures a Stub.
type StubOption func(*Stub)

// WithStubParamsStyle overrides the client's params style.
func WithStubParamsStyle(s ParamsStyle) StubOption {
	return func(st *Stub) { st.style = s }
}

// WithStubIDGenerator overrides the client's id generator.
func WithStubIDGenerator(g IDGenerator) StubOption {
	return func(st *Stub) { st.ids = g }
}

// NewStub creates an empty stub on c.
func NewStub(c *Client, opts ...StubOption) *Stub {
	s := &Stub{c: c, style: c.style, ids: c.ids, methods: make(map[string][]string)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Define declares a method. Method names and the parameter names of one
// method must be unique and non-empty.
func (s *Stub) Define(method string, params ...string) error {
	if method == "" {
		return configError("stub method without a name")
	}
	if _, dup := s.methods[method]; dup {
		return configError("stub method %s declared twice", method)
	}
	for i, p := range params {
		if p == "" {
			return configError("stub method %s: parameter %d has no name", method, i)
		}
		if slices.Contains(params[:i], p) {
			return configError("stub method %s: parameter %s declared twice", method, p)
		}
	}
	s.methods[method] = slices.Clone(params)
	return nil
}

// Methods returns the declared method names, sorted.
func (s *Stub) Methods() []string {
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// stubRequest builds the call for method with args in declaration order.
func stubRequest[T any](s *Stub, method string, args []any) (Request[T], error) {
	params, ok := s.methods[method]
	if !ok {
		return Request[T]{}, configError("stub has no method %s", method)
	}
	if len(args) != len(params) {
		return Request[T]{}, configError("stub method %s takes %d arguments, got %d", method, len(params), len(args))
	}

	c := *s.c
	c.ids = s.ids
	r := NewRequest[T](&c).Method(method)
	if s.style == ParamsArray {
		return r.Params(args...), nil
	}
	named := make(map[string]any, len(params))
	for i, name := range params {
		named[name] = args[i]
	}
	r.named = named
	return r, nil
}

// Call invokes method through the stub and decodes a non-null result.
func Call[T any](ctx context.Context, s *Stub, method string, args ...any) (T, error) {
	r, err := stubRequest[T](s, method, args)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.Execute(ctx)
}

// CallNullable is Call permitting a null result.
func CallNullable[T any](ctx context.Context, s *Stub, method string, args ...any) (*T, error) {
	r, err := stubRequest[T](s, method, args)
	if err != nil {
		return nil, err
	}
	return r.ExecuteNullable(ctx)
}

// Notify sends method through the stub as a notification.
func Notify(ctx context.Context, s *Stub, method string, args ...any) error {
	r, err := stubRequest[any](s, method, args)
	if err != nil {
		return err
	}
	n := NewNotification(r.c).Method(method)
	if r.hasPos {
		n = n.Params(r.positional...)
	} else {
		n.named = r.named
	}
	return n.Execute(ctx)
}
