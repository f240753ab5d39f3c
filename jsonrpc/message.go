package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotObject       = errors.New("jsonrpc: message is not a JSON object")
	ErrBadVersion      = errors.New("jsonrpc: missing or unsupported protocol version")
	ErrMissingMethod   = errors.New("jsonrpc: missing method")
	ErrScalarParams    = errors.New("jsonrpc: params must be an object or an array")
	ErrMissingID       = errors.New("jsonrpc: response has no id")
	ErrResultAndError  = errors.New("jsonrpc: response carries both result and error")
	ErrNoResultOrError = errors.New("jsonrpc: response carries neither result nor error")
)

// Shape is the top-level JSON type of a raw value.
type Shape uint8

const (
	ShapeEmpty Shape = iota
	ShapeNull
	ShapeObject
	ShapeArray
	ShapeString
	ShapeNumber
	ShapeBool
	ShapeInvalid
)

func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeNull:
		return "null"
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	case ShapeString:
		return "string"
	case ShapeNumber:
		return "number"
	case ShapeBool:
		return "boolean"
	}
	return "invalid"
}

// ShapeOf classifies raw by its first significant byte. It does not validate
// the rest of the value.
func ShapeOf(raw []byte) Shape {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ShapeEmpty
	}
	switch raw[0] {
	case '{':
		return ShapeObject
	case '[':
		return ShapeArray
	case '"':
		return ShapeString
	case 'n':
		return ShapeNull
	case 't', 'f':
		return ShapeBool
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return ShapeNumber
	}
	return ShapeInvalid
}

// Request is a JSON-RPC request or, when ID is nil, a notification.
type Request struct {
	Version string
	Method  string
	Params  json.RawMessage
	ID      *ID
}

// IsNotification reports whether the request carries no id member.
func (r *Request) IsNotification() bool { return r.ID == nil }

// Validate checks the envelope rules that apply once a request decoded.
func (r *Request) Validate() error {
	if r.Method == "" {
		return ErrMissingMethod
	}
	if r.Version != Version {
		return ErrBadVersion
	}
	if r.Params != nil {
		switch ShapeOf(r.Params) {
		case ShapeObject, ShapeArray, ShapeNull:
		default:
			return ErrScalarParams
		}
	}
	return nil
}

type requestWire struct {
	Version string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestWire{
		Version: r.Version,
		ID:      r.ID,
		Method:  r.Method,
		Params:  r.Params,
	})
}

// UnmarshalJSON decodes a request object. Any type mismatch, including an id
// that is not a string, number or null, is a conversion failure.
func (r *Request) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	var out Request
	if raw, ok := fields["id"]; ok {
		out.ID = new(ID)
		if err := out.ID.UnmarshalJSON(raw); err != nil {
			return err
		}
	}
	if raw, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(raw, &out.Version); err != nil {
			return fmt.Errorf("jsonrpc: version: %w", err)
		}
	}
	if raw, ok := fields["method"]; ok {
		if err := json.Unmarshal(raw, &out.Method); err != nil {
			return fmt.Errorf("jsonrpc: method: %w", err)
		}
	}
	if raw, ok := fields["params"]; ok {
		out.Params = append(json.RawMessage(nil), raw...)
	}
	*r = out
	return nil
}

// Response is either a success (Error is nil) or an error response.
type Response struct {
	Version string
	ID      *ID
	Result  json.RawMessage
	Error   *Error
}

// NewResultResponse marshals result into a success response.
func NewResultResponse(id *ID, result interface{}) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{Version: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse builds an error response. A nil id encodes as null.
func NewErrorResponse(id *ID, e *Error) *Response {
	return &Response{Version: Version, ID: id, Error: e}
}

// Validate checks the envelope of a decoded response.
func (r *Response) Validate() error {
	if r.Version != Version {
		return ErrBadVersion
	}
	if r.ID == nil {
		return ErrMissingID
	}
	if r.Result != nil && r.Error != nil {
		return ErrResultAndError
	}
	if r.Result == nil && r.Error == nil {
		return ErrNoResultOrError
	}
	return nil
}

type successWire struct {
	Version string          `json:"jsonrpc"`
	ID      *ID             `json:"id"`
	Result  json.RawMessage `json:"result"`
}

type errorWire struct {
	Version string `json:"jsonrpc"`
	ID      *ID    `json:"id"`
	Error   *Error `json:"error"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	if id == nil {
		id = NullID()
	}
	if r.Error != nil {
		return json.Marshal(errorWire{Version: r.Version, ID: id, Error: r.Error})
	}
	result := r.Result
	if result == nil {
		result = json.RawMessage("null")
	}
	return json.Marshal(successWire{Version: r.Version, ID: id, Result: result})
}

// UnmarshalJSON decodes a response object, keeping a present "result": null
// distinct from an absent result.
func (r *Response) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	var out Response
	if raw, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(raw, &out.Version); err != nil {
			return fmt.Errorf("jsonrpc: version: %w", err)
		}
	}
	if raw, ok := fields["id"]; ok {
		out.ID = new(ID)
		if err := out.ID.UnmarshalJSON(raw); err != nil {
			return err
		}
	}
	if raw, ok := fields["result"]; ok {
		out.Result = append(json.RawMessage(nil), raw...)
	}
	if raw, ok := fields["error"]; ok && ShapeOf(raw) != ShapeNull {
		out.Error = new(Error)
		if err := json.Unmarshal(raw, out.Error); err != nil {
			return fmt.Errorf("jsonrpc: error: %w", err)
		}
	}
	*r = out
	return nil
}

func objectFields(data []byte) (map[string]json.RawMessage, error) {
	if ShapeOf(data) != ShapeObject {
		return nil, ErrNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
