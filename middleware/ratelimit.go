package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/mnehpets/jsonrpc2/endpoint"
	"golang.org/x/time/rate"
)

// RateLimitProcessor rejects requests with 429 once the token bucket is
// empty. One bucket is shared by all clients.
type RateLimitProcessor struct {
	limiter *rate.Limiter
}

// NewRateLimitProcessor allows rps requests per second with bursts of burst.
func NewRateLimitProcessor(rps float64, burst int) *RateLimitProcessor {
	return &RateLimitProcessor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (p *RateLimitProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if !p.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		return endpoint.Error(http.StatusTooManyRequests, "rate limit exceeded", nil)
	}
	return next(w, r)
}

// TimeoutProcessor bounds the request context. Operations observe the
// deadline through the context they are invoked with.
type TimeoutProcessor struct {
	Timeout time.Duration
}

func (p TimeoutProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if p.Timeout <= 0 {
		return next(w, r)
	}
	ctx, cancel := context.WithTimeout(r.Context(), p.Timeout)
	defer cancel()
	return next(w, r.WithContext(ctx))
}

var (
	_ endpoint.Processor = (*RateLimitProcessor)(nil)
	_ endpoint.Processor = TimeoutProcessor{}
)
