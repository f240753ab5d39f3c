package jsonrpc

import "fmt"

// Version is the only protocol version accepted on the wire.
const Version = "2.0"

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// -32099 to -32000 are reserved for implementation-defined server errors.
	CodeServerErrorMin = -32099
	CodeServerErrorMax = -32000
)

const (
	MessageParseError     = "Parse error"
	MessageInvalidRequest = "Invalid Request"
	MessageMethodNotFound = "Method not found"
	MessageInvalidParams  = "Invalid params"
	MessageInternalError  = "Internal error"
)

// Error is the JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("jsonrpc: %d: %s", e.Code, e.Message)
}

// NewError creates an error object without data.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithData returns a copy of e carrying data.
func (e *Error) WithData(data interface{}) *Error {
	c := *e
	c.Data = data
	return &c
}

func NewParseError() *Error     { return NewError(CodeParseError, MessageParseError) }
func NewInvalidRequest() *Error { return NewError(CodeInvalidRequest, MessageInvalidRequest) }
func NewMethodNotFound() *Error { return NewError(CodeMethodNotFound, MessageMethodNotFound) }
func NewInvalidParams() *Error  { return NewError(CodeInvalidParams, MessageInvalidParams) }
func NewInternalError() *Error  { return NewError(CodeInternalError, MessageInternalError) }

// IsServerErrorCode reports whether code lies in the range reserved for
// application defined server errors.
func IsServerErrorCode(code int) bool {
	return code >= CodeServerErrorMin && code <= CodeServerErrorMax
}

// IsStandardCode reports whether code is one of the five codes predefined by
// the protocol.
func IsStandardCode(code int) bool {
	switch code {
	case CodeParseError, CodeInvalidRequest, CodeMethodNotFound, CodeInvalidParams, CodeInternalError:
		return true
	}
	return false
}

// IsStructural reports whether the error describes an envelope that could not
// be understood. These are surfaced even for would-be notifications.
func (e *Error) IsStructural() bool {
	return e != nil && (e.Code == CodeParseError || e.Code == CodeInvalidRequest)
}
