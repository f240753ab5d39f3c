package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Principal is the authenticated caller.
type Principal struct {
	Issuer  string
	Subject string
	// Email is set only when the token marks it verified.
	Email  string
	Scopes []string
	Expiry time.Time
}

// ID returns a stable identifier: issuer and subject joined by a colon.
func (p *Principal) ID() string {
	return fmt.Sprintf("%s:%s", p.Issuer, p.Subject)
}

// HasScope reports whether the token granted scope.
func (p *Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

type claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Scope         string `json:"scope"`
}

func newPrincipal(token *oidc.IDToken) (*Principal, error) {
	var c claims
	if err := token.Claims(&c); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	p := &Principal{
		Issuer:  token.Issuer,
		Subject: token.Subject,
		Scopes:  strings.Fields(c.Scope),
		Expiry:  token.Expiry,
	}
	if c.EmailVerified {
		p.Email = c.Email
	}
	return p, nil
}

type principalKey struct{}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the BearerProcessor.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
