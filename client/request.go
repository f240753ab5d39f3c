package client

import (
	"context"
	"encoding/json"
	"maps"

	"github.com/mnehpets/jsonrpc2/jsonrpc"
)

// Request is an immutable request builder decoding its result as T. Every
// setter returns a new value and leaves the receiver untouched, so a
// partially built Request may serve as a template.
//
//	sum, err := client.NewRequest[int](c).
//		Method("add").
//		Param("x", 1).
//		Param("y", 2).
//		Execute(ctx)
type Request[T any] struct {
	c          *Client
	method     string
	id         any
	hasID      bool
	named      map[string]any
	positional []any
	hasPos     bool
}

// NewRequest starts a request on c.
func NewRequest[T any](c *Client) Request[T] {
	return Request[T]{c: c}
}

// Method sets the method name.
func (r Request[T]) Method(name string) Request[T] {
	r.method = name
	return r
}

// ID sets the request id: a string, an integer, a float or a *jsonrpc.ID.
func (r Request[T]) ID(id any) Request[T] {
	r.id, r.hasID = id, true
	return r
}

// Param adds a named parameter.
func (r Request[T]) Param(name string, value any) Request[T] {
	named := make(map[string]any, len(r.named)+1)
	maps.Copy(named, r.named)
	named[name] = value
	r.named = named
	return r
}

// Params sets the positional parameters, replacing earlier ones.
func (r Request[T]) Params(values ...any) Request[T] {
	r.positional = append(make([]any, 0, len(values)), values...)
	r.hasPos = true
	return r
}

// ReturnAs re-types the builder to decode its result as U.
func ReturnAs[U, T any](r Request[T]) Request[U] {
	return Request[U]{
		c:          r.c,
		method:     r.method,
		id:         r.id,
		hasID:      r.hasID,
		named:      r.named,
		positional: r.positional,
		hasPos:     r.hasPos,
	}
}

// Build produces the wire request, drawing an id from the client when none
// was set.
func (r Request[T]) Build() (*jsonrpc.Request, error) {
	req, _, err := r.prepare()
	return req, err
}

func (r Request[T]) prepare() (*jsonrpc.Request, any, error) {
	if r.c == nil {
		return nil, nil, configError("request has no client")
	}
	req, err := buildRequest(r.method, r.named, r.positional, r.hasPos)
	if err != nil {
		return nil, nil, err
	}
	key := r.id
	if !r.hasID {
		key = r.c.ids.NextID()
	}
	id, err := jsonrpc.NewID(key)
	if err != nil {
		return nil, nil, configError("request %s: %v", r.method, err)
	}
	req.ID = id
	return req, key, nil
}

// Execute sends the request and decodes a non-null result.
func (r Request[T]) Execute(ctx context.Context) (T, error) {
	var zero T
	raw, err := r.execute(ctx)
	if err != nil {
		return zero, err
	}
	if jsonrpc.ShapeOf(raw) == jsonrpc.ShapeNull {
		return zero, ErrNullResult
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, protocolError("decode result of %s: %v", r.method, err)
	}
	return out, nil
}

// ExecuteNullable is Execute permitting a null result, reported as nil.
func (r Request[T]) ExecuteNullable(ctx context.Context) (*T, error) {
	raw, err := r.execute(ctx)
	if err != nil {
		return nil, err
	}
	if jsonrpc.ShapeOf(raw) == jsonrpc.ShapeNull {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, protocolError("decode result of %s: %v", r.method, err)
	}
	return out, nil
}

func (r Request[T]) execute(ctx context.Context) (json.RawMessage, error) {
	req, err := r.Build()
	if err != nil {
		return nil, err
	}
	resp, err := r.c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &RPCError{ID: resp.ID, Err: resp.Error}
	}
	return resp.Result, nil
}

// Notification is an immutable builder for calls without an id. The server
// sends no response to them.
type Notification struct {
	c          *Client
	method     string
	named      map[string]any
	positional []any
	hasPos     bool
}

// NewNotification starts a notification on c.
func NewNotification(c *Client) Notification {
	return Notification{c: c}
}

// Method sets the method name.
func (n Notification) Method(name string) Notification {
	n.method = name
	return n
}

// Param adds a named parameter.
func (n Notification) Param(name string, value any) Notification {
	named := make(map[string]any, len(n.named)+1)
	maps.Copy(named, n.named)
	named[name] = value
	n.named = named
	return n
}

// Params sets the positional parameters, replacing earlier ones.
func (n Notification) Params(values ...any) Notification {
	n.positional = append(make([]any, 0, len(values)), values...)
	n.hasPos = true
	return n
}

// Build produces the wire request.
func (n Notification) Build() (*jsonrpc.Request, error) {
	if n.c == nil {
		return nil, configError("notification has no client")
	}
	return buildRequest(n.method, n.named, n.positional, n.hasPos)
}

func (n Notification) prepare() (*jsonrpc.Request, any, error) {
	req, err := n.Build()
	return req, nil, err
}

// Execute sends the notification. Any response text is ignored.
func (n Notification) Execute(ctx context.Context) error {
	req, err := n.Build()
	if err != nil {
		return err
	}
	_, err = n.c.pass(ctx, req)
	return err
}

func buildRequest(method string, named map[string]any, positional []any, hasPos bool) (*jsonrpc.Request, error) {
	if method == "" {
		return nil, configError("method not set")
	}
	if len(named) > 0 && hasPos {
		return nil, configError("%s: named and positional params are mutually exclusive", method)
	}

	req := &jsonrpc.Request{Version: jsonrpc.Version, Method: method}
	var params any
	switch {
	case len(named) > 0:
		params = named
	case hasPos:
		params = positional
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, configError("%s: encode params: %v", method, err)
		}
		req.Params = raw
	}
	return req, nil
}
