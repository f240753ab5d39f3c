package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mnehpets/jsonrpc2/jsonrpc"
	"github.com/mnehpets/jsonrpc2/service"
)

var (
	errTooManyParams = errors.New("more params than declared")
	errUnknownParam  = errors.New("unknown param")
	errMissingParam  = errors.New("missing mandatory param")
	errDecodeParam   = errors.New("cannot decode param")
	errParamsShape   = errors.New("params must be an object or an array")
)

// bindError records why params could not be bound. It is logged, never sent.
type bindError struct {
	param string
	err   error
}

func (e *bindError) Error() string {
	if e.param == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %s", e.err.Error(), e.param)
}

func (e *bindError) Unwrap() error { return e.err }

// bind converts request params into the argument list of m. An array binds
// by declared position, an object by declared name.
func bind(m *service.MethodDescriptor, params json.RawMessage) (service.Args, error) {
	n := m.NumParams()
	supplied := make([]json.RawMessage, n)

	switch jsonrpc.ShapeOf(params) {
	case jsonrpc.ShapeEmpty, jsonrpc.ShapeNull:
	case jsonrpc.ShapeArray:
		var list []json.RawMessage
		if err := json.Unmarshal(params, &list); err != nil {
			return service.Args{}, &bindError{err: errParamsShape}
		}
		if len(list) > n {
			return service.Args{}, &bindError{err: errTooManyParams}
		}
		copy(supplied, list)
	case jsonrpc.ShapeObject:
		var named map[string]json.RawMessage
		if err := json.Unmarshal(params, &named); err != nil {
			return service.Args{}, &bindError{err: errParamsShape}
		}
		if len(named) > n {
			return service.Args{}, &bindError{err: errTooManyParams}
		}
		for name, raw := range named {
			p, ok := m.Param(name)
			if !ok {
				return service.Args{}, &bindError{param: name, err: errUnknownParam}
			}
			supplied[p.Position] = raw
		}
	default:
		return service.Args{}, &bindError{err: errParamsShape}
	}

	values := make([]any, n)
	for i, raw := range supplied {
		p := m.ParamAt(i)
		if raw == nil || jsonrpc.ShapeOf(raw) == jsonrpc.ShapeNull {
			if !p.Optional {
				return service.Args{}, &bindError{param: p.Name, err: errMissingParam}
			}
			values[i] = p.Zero()
			continue
		}
		v, err := p.Decode(raw)
		if err != nil {
			return service.Args{}, &bindError{param: p.Name, err: fmt.Errorf("%w: %v", errDecodeParam, err)}
		}
		values[i] = v
	}
	return service.NewArgs(m, values), nil
}
