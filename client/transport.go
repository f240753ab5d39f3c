package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Transport carries one request text to the server and returns the response
// text. An empty response is valid.
type Transport interface {
	Pass(ctx context.Context, request []byte) ([]byte, error)
}

// TransportFunc adapts a function to a Transport.
type TransportFunc func(ctx context.Context, request []byte) ([]byte, error)

func (f TransportFunc) Pass(ctx context.Context, request []byte) ([]byte, error) {
	return f(ctx, request)
}

// HTTPTransport posts requests to a JSON-RPC over HTTP endpoint.
type HTTPTransport struct {
	url        string
	httpClient *http.Client
	headers    map[string]string
	logger     *zap.Logger
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) HTTPOption {
	return func(t *HTTPTransport) { t.headers[key] = value }
}

// WithTokenSource authenticates requests with bearer tokens from ts.
// Apply it after WithHTTPClient.
func WithTokenSource(ts oauth2.TokenSource) HTTPOption {
	return func(t *HTTPTransport) {
		base := t.httpClient.Transport
		t.httpClient = &http.Client{
			Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts), Base: base},
			Timeout:   t.httpClient.Timeout,
		}
	}
}

// WithBearerToken authenticates requests with a fixed access token.
func WithBearerToken(token string) HTTPOption {
	return WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(logger *zap.Logger) HTTPOption {
	return func(t *HTTPTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewHTTPTransport creates a transport posting to url.
func NewHTTPTransport(url string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		url:        url,
		httpClient: http.DefaultClient,
		headers:    make(map[string]string),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) Pass(ctx context.Context, request []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(request))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}
	t.logger.Debug("jsonrpc http exchange",
		zap.String("url", t.url), zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrTransport, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
