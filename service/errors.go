package service

import (
	"errors"
	"strings"
)

var (
	ErrNotProvider     = errors.New("type does not provide an rpc service")
	ErrNotDispatchable = errors.New("service is not marked dispatchable")
	ErrDuplicateMethod = errors.New("duplicate rpc method name")
	ErrDuplicateParam  = errors.New("duplicate parameter name")
	ErrTargetMismatch  = errors.New("target type does not match the service definition")
)

// ConfigurationError reports a service definition that cannot be described.
type ConfigurationError struct {
	Service string
	Method  string
	Param   string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("service")
	if e.Service != "" {
		b.WriteString(" " + e.Service)
	}
	if e.Method != "" {
		b.WriteString(": method " + e.Method)
	}
	if e.Param != "" {
		b.WriteString(": param " + e.Param)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
