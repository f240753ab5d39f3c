package client

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mnehpets/jsonrpc2/jsonrpc"
	"go.uber.org/zap"
)

// BatchCall is a request or notification that can join a batch.
type BatchCall interface {
	Build() (*jsonrpc.Request, error)
	prepare() (*jsonrpc.Request, any, error)
}

var (
	_ BatchCall = Request[any]{}
	_ BatchCall = Notification{}
)

// ResultType decodes the result of a batch call.
type ResultType struct {
	typ    reflect.Type
	decode func(json.RawMessage) (any, error)
}

// As returns the ResultType decoding results as T.
func As[T any]() ResultType {
	return ResultType{
		typ: reflect.TypeFor[T](),
		decode: func(raw json.RawMessage) (any, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

func (t ResultType) valid() bool { return t.decode != nil }

func (t ResultType) String() string {
	if t.typ == nil {
		return "<none>"
	}
	return t.typ.String()
}

// Batch sends several calls in one round trip and correlates the responses
// by id. K is the Go type of the request ids and V the type of the decoded
// results; use any for either to leave it unconstrained.
//
// Like the other builders, Batch is immutable.
type Batch[K comparable, V any] struct {
	c      *Client
	calls  []BatchCall
	shared ResultType
	perID  map[K]ResultType
}

// NewBatch starts a batch on c.
func NewBatch[K comparable, V any](c *Client) Batch[K, V] {
	return Batch[K, V]{c: c}
}

// Add appends calls.
func (b Batch[K, V]) Add(calls ...BatchCall) Batch[K, V] {
	b.calls = append(append(make([]BatchCall, 0, len(b.calls)+len(calls)), b.calls...), calls...)
	return b
}

// Returning decodes every result as t.
func (b Batch[K, V]) Returning(t ResultType) Batch[K, V] {
	b.shared = t
	return b
}

// ReturningFor decodes the result of the call with the given id as t.
func (b Batch[K, V]) ReturningFor(id K, t ResultType) Batch[K, V] {
	perID := make(map[K]ResultType, len(b.perID)+1)
	for k, v := range b.perID {
		perID[k] = v
	}
	perID[id] = t
	b.perID = perID
	return b
}

type pending[K comparable] struct {
	key    K
	result ResultType
}

// Execute sends the batch. When some calls fail the error is a
// *BatchError[K, V] holding the results of the calls that succeeded.
// Duplicate ids resolve to the last response received.
func (b Batch[K, V]) Execute(ctx context.Context) (map[K]V, error) {
	if b.c == nil {
		return nil, configError("batch has no client")
	}
	requests, expected, err := b.prepare()
	if err != nil {
		return nil, err
	}

	out, err := b.c.pass(ctx, requests)
	if err != nil {
		return nil, err
	}
	return b.correlate(out, expected)
}

func (b Batch[K, V]) prepare() ([]*jsonrpc.Request, map[string]pending[K], error) {
	if len(b.calls) == 0 {
		return nil, nil, configError("empty batch")
	}
	if b.shared.valid() && len(b.perID) > 0 {
		return nil, nil, configError("batch sets both a shared and per-id result types")
	}
	valueType := reflect.TypeFor[V]()
	if b.shared.valid() && !b.shared.typ.AssignableTo(valueType) {
		return nil, nil, configError("result type %s is not assignable to %s", b.shared, valueType)
	}

	requests := make([]*jsonrpc.Request, 0, len(b.calls))
	expected := make(map[string]pending[K], len(b.calls))
	for _, call := range b.calls {
		if call == nil {
			return nil, nil, configError("nil call in batch")
		}
		req, id, err := call.prepare()
		if err != nil {
			return nil, nil, err
		}
		requests = append(requests, req)
		if req.IsNotification() {
			continue
		}

		key, ok := id.(K)
		if !ok {
			return nil, nil, configError("request id %v has type %T, batch keys are %s", id, id, reflect.TypeFor[K]())
		}
		result := b.shared
		if !result.valid() {
			result, ok = b.perID[key]
			if !ok || !result.valid() {
				return nil, nil, configError("no result type registered for request id %v", id)
			}
			if !result.typ.AssignableTo(valueType) {
				return nil, nil, configError("result type %s for request id %v is not assignable to %s", result, id, valueType)
			}
		}
		expected[req.ID.Key()] = pending[K]{key: key, result: result}
	}
	return requests, expected, nil
}

func (b Batch[K, V]) correlate(out []byte, expected map[string]pending[K]) (map[K]V, error) {
	results := make(map[K]V, len(expected))
	shape := jsonrpc.ShapeOf(out)
	if shape == jsonrpc.ShapeEmpty && len(expected) == 0 {
		return results, nil
	}
	if shape != jsonrpc.ShapeEmpty && !json.Valid(out) {
		var probe any
		err := json.Unmarshal(out, &probe)
		return nil, fmt.Errorf("%w: cannot parse batch response: %w", ErrProtocol, err)
	}
	if shape != jsonrpc.ShapeArray {
		return nil, protocolError("batch response is %s, not an array", shape)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(out, &elems); err != nil {
		return nil, fmt.Errorf("%w: cannot parse batch response: %w", ErrProtocol, err)
	}

	var failures map[K]*jsonrpc.Error
	for _, raw := range elems {
		var resp jsonrpc.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, protocolError("batch response element: %v", err)
		}
		if err := resp.Validate(); err != nil {
			return nil, protocolError("batch response element %s: %v", resp.ID, err)
		}
		p, ok := expected[resp.ID.Key()]
		if !ok {
			return nil, protocolError("batch response carries unexpected id %s", resp.ID)
		}

		if resp.Error != nil {
			if failures == nil {
				failures = make(map[K]*jsonrpc.Error)
			}
			delete(results, p.key)
			failures[p.key] = resp.Error
			continue
		}
		v, err := p.result.decode(resp.Result)
		if err != nil {
			return nil, protocolError("decode result for id %s: %v", resp.ID, err)
		}
		// Assignability was checked before sending; a nil interface needs
		// the zero value instead of a type assertion.
		var value V
		if v != nil {
			value = v.(V)
		}
		delete(failures, p.key)
		results[p.key] = value
	}

	b.c.logger.Debug("jsonrpc batch",
		zap.Int("calls", len(b.calls)), zap.Int("responses", len(elems)), zap.Int("failures", len(failures)))
	if len(failures) > 0 {
		return nil, &BatchError[K, V]{Results: results, Errors: failures}
	}
	return results, nil
}
