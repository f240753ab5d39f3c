package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mnehpets/jsonrpc2/jsonrpc"
)

var (
	// ErrTransport wraps failures of the underlying transport. They are never
	// retried.
	ErrTransport = errors.New("jsonrpc client: transport failure")
	// ErrProtocol reports a response that breaks the JSON-RPC envelope rules.
	ErrProtocol = errors.New("jsonrpc client: protocol violation")
	// ErrConfig reports a builder that cannot produce a valid call.
	ErrConfig = errors.New("jsonrpc client: invalid configuration")
	// ErrNullResult is returned by Execute when the result is null.
	ErrNullResult = errors.New("jsonrpc client: null result")
)

// RPCError is returned when the server answers with an error object.
type RPCError struct {
	ID  *jsonrpc.ID
	Err *jsonrpc.Error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc client: call %s failed: %d %s", e.ID, e.Err.Code, e.Err.Message)
}

func (e *RPCError) Unwrap() error { return e.Err }

// BatchError is returned by Batch.Execute when at least one response was an
// error. Results holds every call that succeeded.
type BatchError[K comparable, V any] struct {
	Results map[K]V
	Errors  map[K]*jsonrpc.Error
}

func (e *BatchError[K, V]) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for id, rpcErr := range e.Errors {
		parts = append(parts, fmt.Sprintf("%v: %d %s", id, rpcErr.Code, rpcErr.Message))
	}
	sort.Strings(parts)
	return fmt.Sprintf("jsonrpc client: %d of %d batch calls failed (%s)",
		len(e.Errors), len(e.Errors)+len(e.Results), strings.Join(parts, "; "))
}

func protocolError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
