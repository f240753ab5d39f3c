package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mnehpets/jsonrpc2/endpoint"
	"go.uber.org/zap"
)

// BearerProcessor rejects requests without a valid bearer token with 401.
// Accepted requests continue with the Principal in their context.
type BearerProcessor struct {
	Verifier *Verifier
	// Realm is reported in the WWW-Authenticate challenge.
	Realm string
	// Scope, when set, must be among the token's scopes; otherwise 403.
	Scope  string
	Logger *zap.Logger
}

// NewBearerProcessor creates a BearerProcessor for v.
func NewBearerProcessor(v *Verifier, logger *zap.Logger) *BearerProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BearerProcessor{Verifier: v, Realm: "jsonrpc", Logger: logger}
}

func (p *BearerProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	raw, ok := bearerToken(r)
	if !ok {
		p.challenge(w, "")
		return endpoint.Error(http.StatusUnauthorized, "missing bearer token", nil)
	}

	principal, err := p.Verifier.Verify(r.Context(), raw)
	if err != nil {
		p.logger().Debug("bearer token rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
		p.challenge(w, "invalid_token")
		return endpoint.Error(http.StatusUnauthorized, "invalid bearer token", err)
	}
	if p.Scope != "" && !principal.HasScope(p.Scope) {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm=%q, error="insufficient_scope", scope=%q`, p.Realm, p.Scope))
		return endpoint.Error(http.StatusForbidden, "insufficient scope", nil)
	}

	p.logger().Debug("bearer token accepted", zap.String("principal", principal.ID()))
	return next(w, r.WithContext(NewContext(r.Context(), principal)))
}

func (p *BearerProcessor) challenge(w http.ResponseWriter, code string) {
	value := fmt.Sprintf("Bearer realm=%q", p.Realm)
	if code != "" {
		value += fmt.Sprintf(", error=%q", code)
	}
	w.Header().Set("WWW-Authenticate", value)
}

func (p *BearerProcessor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var _ endpoint.Processor = (*BearerProcessor)(nil)
