package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/mnehpets/jsonrpc2/endpoint"
)

// HeadersProcessor sets response headers suited to a JSON API and answers
// CORS preflight requests.
type HeadersProcessor struct {
	// Static headers set on every response. An empty value removes a default.
	Static map[string]string
	// CORS is nil when cross-origin requests are not allowed.
	CORS *CORSConfig
}

// CORSConfig configures Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	// AllowedOrigins lists exact origins, or "*" for any origin.
	AllowedOrigins []string
	AllowedHeaders []string
	// MaxAge is how long, in seconds, a preflight result may be cached.
	MaxAge int
}

// HeadersOption configures a HeadersProcessor.
type HeadersOption func(*HeadersProcessor)

// WithHeader overrides one static header. An empty value disables it.
func WithHeader(name, value string) HeadersOption {
	return func(p *HeadersProcessor) { p.Static[http.CanonicalHeaderKey(name)] = value }
}

// WithCORS allows cross-origin calls from origins.
func WithCORS(origins ...string) HeadersOption {
	return func(p *HeadersProcessor) {
		if len(origins) == 0 {
			p.CORS = nil
			return
		}
		p.CORS = &CORSConfig{
			AllowedOrigins: origins,
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         3600,
		}
	}
}

// NewHeadersProcessor creates a HeadersProcessor with defaults for an API
// that never serves browsable content.
func NewHeadersProcessor(opts ...HeadersOption) *HeadersProcessor {
	p := &HeadersProcessor{
		Static: map[string]string{
			"Cache-Control":           "no-store",
			"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
			"Referrer-Policy":         "no-referrer",
			"X-Content-Type-Options":  "nosniff",
			"X-Frame-Options":         "DENY",
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HeadersProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	for name, value := range p.Static {
		if value != "" {
			w.Header().Set(name, value)
		}
	}

	origin := r.Header.Get("Origin")
	if p.CORS == nil || origin == "" {
		return next(w, r)
	}

	allowed := ""
	if slices.Contains(p.CORS.AllowedOrigins, "*") {
		allowed = "*"
	} else if slices.Contains(p.CORS.AllowedOrigins, origin) {
		allowed = origin
		w.Header().Add("Vary", "Origin")
	}
	if allowed != "" {
		w.Header().Set("Access-Control-Allow-Origin", allowed)
	}

	// Preflight: OPTIONS with Access-Control-Request-Method.
	if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
		if allowed != "" {
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(p.CORS.AllowedHeaders, ", "))
			if p.CORS.MaxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(p.CORS.MaxAge))
			}
		}
		return endpoint.Error(http.StatusNoContent, "", nil)
	}
	return next(w, r)
}

var _ endpoint.Processor = (*HeadersProcessor)(nil)
