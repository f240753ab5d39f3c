package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mnehpets/jsonrpc2/endpoint"
)

// HTTPEndpoint serves JSON-RPC over HTTP
// (https://www.simple-is-better.org/json-rpc/transport_http.html).
//
// Requests are dispatched to Target, or, when the route has a {service} path
// value, to the instance registered under that name.
//
//	d := server.New(server.WithRegistry(reg))
//	e := server.NewEndpoint(d, &Calculator{})
//	http.Handle("POST /rpc", endpoint.Handler(e.Endpoint))
//	http.Handle("POST /rpc/{service}", endpoint.Handler(e.Endpoint))
type HTTPEndpoint struct {
	Dispatcher *Dispatcher
	Target     any
	// MaxBodyBytes bounds the request body. Larger bodies fail with 413.
	// Zero or less means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// DefaultMaxBodyBytes is the request body limit of a new HTTPEndpoint.
const DefaultMaxBodyBytes = 1 << 20

// NewEndpoint creates an HTTP binding for d.
func NewEndpoint(d *Dispatcher, target any) *HTTPEndpoint {
	return &HTTPEndpoint{Dispatcher: d, Target: target, MaxBodyBytes: DefaultMaxBodyBytes}
}

// rpcParams holds the routing inputs. The body is read by Endpoint itself,
// after the method and content type checks, and parsed by the dispatcher, as
// JSON-RPC requires different handling of JSON errors than a plain HTTP 400.
type rpcParams struct {
	Service string `path:"service"`
}

// Endpoint is the endpoint function that processes JSON-RPC requests.
// Pass to endpoint.Handler() to create an http.Handler.
func (e *HTTPEndpoint) Endpoint(w http.ResponseWriter, r *http.Request, params rpcParams) (endpoint.Renderer, error) {
	if r.Method != http.MethodPost {
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
	}

	// Per JSON-RPC over HTTP, Content-Type must be application/json.
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
		return nil, endpoint.Error(http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
	}

	target := e.Target
	if params.Service != "" {
		target = e.Dispatcher.lookup(params.Service)
	}

	body, err := e.readBody(w, r)
	if err != nil {
		return nil, err
	}

	out := e.Dispatcher.HandleBytes(r.Context(), body, target)
	if len(out) == 0 {
		return &endpoint.NoContentRenderer{}, nil
	}
	return &endpoint.StringRenderer{Body: string(out), ContentType: "application/json"}, nil
}

func (e *HTTPEndpoint) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	limit := e.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, endpoint.Error(http.StatusRequestEntityTooLarge, "request body too large", err)
		}
		return nil, endpoint.Error(http.StatusBadRequest, "cannot read request body", err)
	}
	return body, nil
}

// methodList is the body returned by MethodsEndpoint.
type methodList struct {
	Service string   `json:"service"`
	Methods []string `json:"methods"`
}

type methodsParams struct {
	Service string `path:"service"`
}

// MethodsEndpoint lists the rpc method names of the target, or of the named
// service when the route has a {service} path value.
func (e *HTTPEndpoint) MethodsEndpoint(w http.ResponseWriter, r *http.Request, params methodsParams) (endpoint.Renderer, error) {
	target := e.Target
	if params.Service != "" {
		target = e.Dispatcher.lookup(params.Service)
	}
	desc, err := e.Dispatcher.cache.Describe(target)
	if err != nil || !desc.IsService() {
		return nil, endpoint.Error(http.StatusNotFound, "no such service", err)
	}
	return &endpoint.JSONRenderer{Value: methodList{Service: desc.Name(), Methods: desc.Methods()}}, nil
}
