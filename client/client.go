package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mnehpets/jsonrpc2/jsonrpc"
	"go.uber.org/zap"
)

// ParamsStyle selects how stubs send parameters.
type ParamsStyle int

const (
	// ParamsMap sends params as an object keyed by parameter name.
	ParamsMap ParamsStyle = iota
	// ParamsArray sends params as an array in declaration order.
	ParamsArray
)

// Client holds what builders share: the transport, the id generator and the
// logger. It is safe for concurrent use.
type Client struct {
	transport Transport
	ids       IDGenerator
	style     ParamsStyle
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithIDGenerator sets the generator for requests built without an id.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Client) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithParamsStyle sets the default params style of stubs.
func WithParamsStyle(s ParamsStyle) Option {
	return func(c *Client) { c.style = s }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client sending through t.
func New(t Transport, opts ...Option) *Client {
	c := &Client{transport: t, ids: new(Counter), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) pass(ctx context.Context, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, configError("encode request: %v", err)
	}
	if c.transport == nil {
		return nil, configError("no transport")
	}
	out, err := c.transport.Pass(ctx, body)
	if err != nil {
		c.logger.Debug("jsonrpc transport failed", zap.Error(err))
		if !errors.Is(err, ErrTransport) {
			err = fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return nil, err
	}
	return out, nil
}

// call sends one request and returns its validated response.
func (c *Client) call(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	out, err := c.pass(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp jsonrpc.Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, protocolError("decode response to %s: %v", req.Method, err)
	}
	if err := resp.Validate(); err != nil {
		return nil, protocolError("response to %s: %v", req.Method, err)
	}
	// Errors raised before the server could read the id carry a null id.
	if !resp.ID.Equal(req.ID) && !(resp.Error != nil && resp.ID.IsNull()) {
		return nil, protocolError("response id %s does not match request id %s", resp.ID, req.ID)
	}
	c.logger.Debug("jsonrpc call", zap.String("method", req.Method), zap.Stringer("id", req.ID), zap.Bool("error", resp.Error != nil))
	return &resp, nil
}
