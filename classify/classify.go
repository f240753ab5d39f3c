package classify

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mnehpets/jsonrpc2/jsonrpc"
	"go.uber.org/zap"
)

// Coded is implemented by errors that carry their own JSON-RPC error object.
type Coded interface {
	RPCError() *jsonrpc.Error
}

// DataCarrier is implemented by errors that expose a value for the "data"
// member of the error object.
type DataCarrier interface {
	RPCData() any
}

// DataResolver extracts the "data" member from a matched error.
type DataResolver func(err error) any

// Field builds a DataResolver reading a value from errors of type E.
func Field[E error](get func(E) any) DataResolver {
	return func(err error) any {
		var e E
		if errors.As(err, &e) {
			return get(e)
		}
		return nil
	}
}

// ErrorDescriptor declares how a kind of error maps onto an error object.
// An empty Message falls back to the error's own text. At most one data
// resolver may be given.
type ErrorDescriptor struct {
	Code    int
	Message string
	Data    []DataResolver
}

// Rule pairs a predicate on the root cause with a mapping.
type Rule struct {
	name     string
	match    func(error) bool
	desc     ErrorDescriptor
	poisoned *atomic.Bool
}

// For matches root causes assignable to E.
func For[E error](desc ErrorDescriptor) Rule {
	var zero E
	return Rule{
		name: fmt.Sprintf("%T", zero),
		match: func(err error) bool {
			var e E
			return errors.As(err, &e)
		},
		desc:     desc,
		poisoned: new(atomic.Bool),
	}
}

// When matches root causes satisfying pred. name identifies the rule in logs.
func When(name string, pred func(error) bool, desc ErrorDescriptor) Rule {
	return Rule{name: name, match: pred, desc: desc, poisoned: new(atomic.Bool)}
}

// Classifier turns errors into JSON-RPC error objects. It is safe for
// concurrent use.
type Classifier struct {
	rules  []Rule
	logger *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules appends rules, evaluated in order.
func WithRules(rules ...Rule) Option {
	return func(c *Classifier) { c.rules = append(c.rules, rules...) }
}

// WithLogger sets the logger used to report rejected mappings.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RootCause follows the Unwrap chain to its end. For errors wrapping several
// others, the first is followed.
func RootCause(err error) error {
	for err != nil {
		var next error
		switch x := err.(type) {
		case interface{ Unwrap() error }:
			next = x.Unwrap()
		case interface{ Unwrap() []error }:
			if errs := x.Unwrap(); len(errs) > 0 {
				next = errs[0]
			}
		}
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// Classify maps err onto an error object. It never returns nil for a non-nil
// error.
func (c *Classifier) Classify(err error) *jsonrpc.Error {
	if err == nil {
		return nil
	}
	root := RootCause(err)

	var rpcErr *jsonrpc.Error
	if errors.As(root, &rpcErr) {
		return c.passThrough(rpcErr, root)
	}
	if coded, ok := root.(Coded); ok {
		if e := coded.RPCError(); e != nil {
			return c.passThrough(e, root)
		}
	}

	for i := range c.rules {
		r := &c.rules[i]
		if !r.match(root) {
			continue
		}
		return c.apply(r, root)
	}
	return jsonrpc.NewInternalError()
}

func (c *Classifier) passThrough(e *jsonrpc.Error, root error) *jsonrpc.Error {
	if jsonrpc.IsStandardCode(e.Code) {
		return e
	}
	if !jsonrpc.IsServerErrorCode(e.Code) || e.Message == "" {
		c.logger.Warn("error object outside the server error range",
			zap.Int("code", e.Code), zap.String("message", e.Message), zap.Error(root))
		return jsonrpc.NewInternalError()
	}
	if e.Data == nil {
		if dc, ok := root.(DataCarrier); ok {
			return e.WithData(dc.RPCData())
		}
	}
	return e
}

func (c *Classifier) apply(r *Rule, root error) *jsonrpc.Error {
	if r.poisoned.Load() {
		return jsonrpc.NewInternalError()
	}

	carriers := len(r.desc.Data)
	dc, isCarrier := root.(DataCarrier)
	if isCarrier {
		carriers++
	}
	if carriers > 1 {
		if r.poisoned.CompareAndSwap(false, true) {
			c.logger.Error("error mapping designates more than one data carrier, reporting as internal error",
				zap.String("rule", r.name), zap.Int("carriers", carriers))
		}
		return jsonrpc.NewInternalError()
	}

	message := r.desc.Message
	if message == "" {
		message = root.Error()
	}
	if !jsonrpc.IsServerErrorCode(r.desc.Code) || message == "" {
		c.logger.Warn("rejecting error mapping",
			zap.String("rule", r.name), zap.Int("code", r.desc.Code), zap.String("message", message))
		return jsonrpc.NewInternalError()
	}

	out := jsonrpc.NewError(r.desc.Code, message)
	switch {
	case len(r.desc.Data) == 1 && r.desc.Data[0] != nil:
		out.Data = r.desc.Data[0](root)
	case isCarrier:
		out.Data = dc.RPCData()
	}
	return out
}
