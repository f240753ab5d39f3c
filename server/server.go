package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mnehpets/jsonrpc2/classify"
	"github.com/mnehpets/jsonrpc2/jsonrpc"
	"github.com/mnehpets/jsonrpc2/service"
	"go.uber.org/zap"
)

// Dispatcher routes JSON-RPC requests to the operations described by a
// target's service definition. It holds no per-call state and may be shared
// between goroutines.
type Dispatcher struct {
	cache      *service.Cache
	classifier *classify.Classifier
	registry   *service.Registry
	logger     *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClassifier sets the classifier applied to errors returned by operations.
func WithClassifier(c *classify.Classifier) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.classifier = c
		}
	}
}

// WithCache sets the descriptor cache, for sharing one between dispatchers.
func WithCache(c *service.Cache) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.cache = c
		}
	}
}

// WithRegistry sets the registry used by HandleNamed.
func WithRegistry(r *service.Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// New creates a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.cache == nil {
		d.cache = service.NewCache(service.WithLogger(d.logger))
	}
	if d.classifier == nil {
		d.classifier = classify.New(classify.WithLogger(d.logger))
	}
	return d
}

// Registry returns the registry configured with WithRegistry, if any.
func (d *Dispatcher) Registry() *service.Registry { return d.registry }

// Handle processes one request text against target and returns the response
// text. The result is empty when every request was a notification.
func (d *Dispatcher) Handle(ctx context.Context, text string, target any) string {
	return string(d.HandleBytes(ctx, []byte(text), target))
}

// HandleNamed resolves the target through the registry before dispatching.
// Unknown names without a registry default yield Method not found.
func (d *Dispatcher) HandleNamed(ctx context.Context, text string, name string) string {
	return string(d.HandleBytes(ctx, []byte(text), d.lookup(name)))
}

func (d *Dispatcher) lookup(name string) any {
	if d.registry == nil {
		return nil
	}
	target, ok := d.registry.Lookup(name)
	if !ok {
		d.logger.Debug("no service registered", zap.String("service", name))
		return nil
	}
	return target
}

// HandleBytes is Handle on byte slices. A nil result means no response.
func (d *Dispatcher) HandleBytes(ctx context.Context, body []byte, target any) []byte {
	if !json.Valid(body) {
		d.logger.Debug("parse error", zap.Int("bytes", len(body)))
		return d.encode(jsonrpc.NewErrorResponse(nil, jsonrpc.NewParseError()))
	}

	switch jsonrpc.ShapeOf(body) {
	case jsonrpc.ShapeObject:
		resp, ok := d.handleElement(ctx, body, target)
		if !ok {
			return nil
		}
		return d.encode(resp)

	case jsonrpc.ShapeArray:
		var elems []json.RawMessage
		if err := json.Unmarshal(body, &elems); err != nil || len(elems) == 0 {
			return d.encode(jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest()))
		}
		// Each response is encoded on its own so one bad element cannot
		// take down the rest of the batch.
		var out bytes.Buffer
		for _, raw := range elems {
			resp, ok := d.handleElement(ctx, raw, target)
			if !ok {
				continue
			}
			if out.Len() == 0 {
				out.WriteByte('[')
			} else {
				out.WriteByte(',')
			}
			out.Write(d.encode(resp))
		}
		if out.Len() == 0 {
			return nil
		}
		out.WriteByte(']')
		return out.Bytes()
	}

	return d.encode(jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest()))
}

// handleElement runs one request object. ok is false when the response is
// suppressed because the element was a notification.
func (d *Dispatcher) handleElement(ctx context.Context, raw json.RawMessage, target any) (resp *jsonrpc.Response, ok bool) {
	// Notification status comes from the raw element, before conversion.
	notification := !hasIDMember(raw)

	var req jsonrpc.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		d.logger.Debug("invalid request", zap.Error(err))
		return jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest()), true
	}
	if err := req.Validate(); err != nil {
		d.logger.Debug("invalid request", zap.Stringer("id", req.ID), zap.Error(err))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewInvalidRequest()), true
	}

	resp = d.call(ctx, &req, target)
	if notification && !resp.Error.IsStructural() {
		return nil, false
	}
	return resp, true
}

func (d *Dispatcher) call(ctx context.Context, req *jsonrpc.Request, target any) *jsonrpc.Response {
	start := time.Now()
	log := d.logger.With(zap.String("method", req.Method), zap.Stringer("id", req.ID))

	desc, err := d.cache.Describe(target)
	if err != nil || !desc.IsService() {
		log.Debug("method not found", zap.Error(err))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewMethodNotFound())
	}
	m, ok := desc.Method(req.Method)
	if !ok {
		log.Debug("method not found", zap.String("service", desc.Name()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewMethodNotFound())
	}

	args, err := bind(m, req.Params)
	if err != nil {
		log.Debug("invalid params", zap.Error(err))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewInvalidParams())
	}

	result, err := d.invoke(ctx, m, target, args)
	if err != nil {
		rpcErr := d.classify(m, err)
		log.Debug("method failed", zap.Duration("duration", time.Since(start)), zap.Int("code", rpcErr.Code), zap.Error(err))
		return jsonrpc.NewErrorResponse(req.ID, rpcErr)
	}

	resp, err := jsonrpc.NewResultResponse(req.ID, result)
	if err != nil {
		log.Error("cannot encode result", zap.Error(err))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewInternalError())
	}
	log.Debug("method called", zap.Duration("duration", time.Since(start)))
	return resp
}

func (d *Dispatcher) invoke(ctx context.Context, m *service.MethodDescriptor, target any, args service.Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("jsonrpc panic", zap.String("method", m.Name()), zap.Any("panic", r))
			result, err = nil, jsonrpc.NewInternalError()
		}
	}()
	return m.Invoke(ctx, target, args)
}

// classify maps err through the classifier. Data resolvers and RPCError
// implementations are user code, so a panic there becomes an Internal error.
func (d *Dispatcher) classify(m *service.MethodDescriptor, err error) (rpcErr *jsonrpc.Error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("jsonrpc classifier panic", zap.String("method", m.Name()), zap.Any("panic", r))
			rpcErr = jsonrpc.NewInternalError()
		}
	}()
	if rpcErr = d.classifier.Classify(err); rpcErr == nil {
		rpcErr = jsonrpc.NewInternalError()
	}
	return rpcErr
}

// encode marshals a single response. A response whose error data cannot be
// encoded is replaced by an Internal error that keeps the request id.
func (d *Dispatcher) encode(resp *jsonrpc.Response) []byte {
	out, err := json.Marshal(resp)
	if err == nil {
		return out
	}
	// Results are pre-encoded; only unencodable error data gets here.
	d.logger.Error("cannot encode response", zap.Stringer("id", resp.ID), zap.Error(err))
	out, err = json.Marshal(jsonrpc.NewErrorResponse(resp.ID, jsonrpc.NewInternalError()))
	if err != nil {
		return []byte(fmt.Sprintf(`{"jsonrpc":%q,"id":null,"error":{"code":%d,"message":%q}}`,
			jsonrpc.Version, jsonrpc.CodeInternalError, jsonrpc.MessageInternalError))
	}
	return out
}

func hasIDMember(raw json.RawMessage) bool {
	if jsonrpc.ShapeOf(raw) != jsonrpc.ShapeObject {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	_, ok := fields["id"]
	return ok
}
