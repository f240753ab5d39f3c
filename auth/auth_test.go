package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/mnehpets/jsonrpc2/client"
	"github.com/mnehpets/jsonrpc2/endpoint"
	"github.com/mnehpets/jsonrpc2/server"
	"github.com/mnehpets/jsonrpc2/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://issuer.example.com"
	testAudience = "rpc-api"
)

type issuer struct {
	key    *rsa.PrivateKey
	signer jose.Signer
}

func newIssuer(t *testing.T) *issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", "test-key"))
	require.NoError(t, err)
	return &issuer{key: key, signer: signer}
}

func (i *issuer) token(t *testing.T, iss, aud string, expiry time.Time, extra map[string]any) string {
	t.Helper()
	claims := jwt.Claims{
		Subject:   "user123",
		Issuer:    iss,
		Audience:  jwt.Audience{aud},
		Expiry:    jwt.NewNumericDate(expiry),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	builder := jwt.Signed(i.signer).Claims(claims)
	if extra != nil {
		builder = builder.Claims(extra)
	}
	raw, err := builder.Serialize()
	require.NoError(t, err)
	return raw
}

func (i *issuer) verifier(opts ...VerifierOption) *Verifier {
	return NewStaticVerifier(testIssuer, testAudience, []crypto.PublicKey{&i.key.PublicKey}, opts...)
}

func TestVerify(t *testing.T) {
	iss := newIssuer(t)
	raw := iss.token(t, testIssuer, testAudience, time.Now().Add(time.Hour), map[string]any{
		"email":          "user@example.com",
		"email_verified": true,
		"scope":          "rpc:call  rpc:admin",
	})

	p, err := iss.verifier().Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, testIssuer, p.Issuer)
	assert.Equal(t, "user123", p.Subject)
	assert.Equal(t, "user@example.com", p.Email)
	assert.Equal(t, []string{"rpc:call", "rpc:admin"}, p.Scopes)
	assert.True(t, p.HasScope("rpc:admin"))
	assert.False(t, p.HasScope("rpc"))
	assert.Equal(t, testIssuer+":user123", p.ID())
}

func TestVerifyUnverifiedEmail(t *testing.T) {
	iss := newIssuer(t)
	raw := iss.token(t, testIssuer, testAudience, time.Now().Add(time.Hour), map[string]any{
		"email": "user@example.com",
	})
	p, err := iss.verifier().Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, p.Email)
}

func TestVerifyRejects(t *testing.T) {
	iss := newIssuer(t)
	other := newIssuer(t)
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		raw      string
		verifier *Verifier
	}{
		{"WrongAudience", iss.token(t, testIssuer, "other", later, nil), iss.verifier()},
		{"WrongIssuer", iss.token(t, "https://evil.example.com", testAudience, later, nil), iss.verifier()},
		{"WrongKey", other.token(t, testIssuer, testAudience, later, nil), iss.verifier()},
		{"Expired", iss.token(t, testIssuer, testAudience, later, nil),
			iss.verifier(WithClock(func() time.Time { return later.Add(time.Hour) }))},
		{"Malformed", "not.a.jwt", iss.verifier()},
		{"Algorithm", iss.token(t, testIssuer, testAudience, later, nil), iss.verifier(WithSigningAlgs("ES256"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.Verify(context.Background(), tt.raw)
			assert.Error(t, err)
		})
	}

	skip := iss.verifier(WithSkipIssuerCheck())
	_, err := skip.Verify(context.Background(), iss.token(t, "https://tenant.example.com", testAudience, later, nil))
	assert.NoError(t, err)
}

func TestNewVerifierDiscovery(t *testing.T) {
	iss := newIssuer(t)

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			json.NewEncoder(w).Encode(map[string]any{
				"issuer":                                srv.URL,
				"jwks_uri":                              srv.URL + "/keys",
				"authorization_endpoint":                srv.URL + "/auth",
				"token_endpoint":                        srv.URL + "/token",
				"response_types_supported":              []string{"code"},
				"subject_types_supported":               []string{"public"},
				"id_token_signing_alg_values_supported": []string{"RS256"},
			})
		case "/keys":
			jwk := jose.JSONWebKey{Key: &iss.key.PublicKey, Use: "sig", Algorithm: "RS256", KeyID: "test-key"}
			json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	v, err := NewVerifier(ctx, srv.URL, testAudience)
	require.NoError(t, err)

	p, err := v.Verify(ctx, iss.token(t, srv.URL, testAudience, time.Now().Add(time.Hour), nil))
	require.NoError(t, err)
	assert.Equal(t, "user123", p.Subject)

	_, err = NewVerifier(ctx, srv.URL+"/missing", testAudience)
	assert.Error(t, err)
}

func TestBearerProcessor(t *testing.T) {
	iss := newIssuer(t)
	later := time.Now().Add(time.Hour)
	valid := iss.token(t, testIssuer, testAudience, later, map[string]any{"scope": "rpc:call"})
	noScope := iss.token(t, testIssuer, testAudience, later, nil)

	p := NewBearerProcessor(iss.verifier(), nil)
	p.Scope = "rpc:call"
	h := endpoint.HandleFunc(func(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		principal, ok := FromContext(r.Context())
		if !ok {
			return nil, endpoint.Error(http.StatusInternalServerError, "no principal", nil)
		}
		return &endpoint.StringRenderer{Body: principal.Subject}, nil
	}, p)

	tests := []struct {
		name          string
		authorization string
		wantCode      int
		wantBody      string
		wantChallenge string
	}{
		{"Valid", "Bearer " + valid, http.StatusOK, "user123", ""},
		{"LowercaseScheme", "bearer " + valid, http.StatusOK, "user123", ""},
		{"Missing", "", http.StatusUnauthorized, "missing bearer token", `Bearer realm="jsonrpc"`},
		{"Basic", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "missing bearer token", `Bearer realm="jsonrpc"`},
		{"Invalid", "Bearer junk", http.StatusUnauthorized, "invalid bearer token", `error="invalid_token"`},
		{"Scope", "Bearer " + noScope, http.StatusForbidden, "insufficient scope", `error="insufficient_scope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authorization != "" {
				r.Header.Set("Authorization", tt.authorization)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(w.Body.String()))
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), tt.wantChallenge)
		})
	}
}

type whoami struct{}

func (whoami) call(ctx context.Context, args service.Args) (any, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, nil
	}
	return p.ID(), nil
}

func (whoami) RPCService() service.Definer {
	return service.Define[whoami]("whoami").Method("whoami", whoami.call)
}

func TestBearerProcessorWithDispatcher(t *testing.T) {
	iss := newIssuer(t)
	rpc := server.NewEndpoint(server.New(), whoami{})
	srv := httptest.NewServer(endpoint.Handler(rpc.Endpoint, NewBearerProcessor(iss.verifier(), nil)))
	defer srv.Close()

	raw := iss.token(t, testIssuer, testAudience, time.Now().Add(time.Hour), nil)
	c := client.New(client.NewHTTPTransport(srv.URL, client.WithBearerToken(raw)))
	id, err := client.NewRequest[string](c).Method("whoami").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testIssuer+":user123", id)

	anonymous := client.New(client.NewHTTPTransport(srv.URL))
	_, err = client.NewRequest[string](anonymous).Method("whoami").Execute(context.Background())
	assert.ErrorIs(t, err, client.ErrTransport)
	assert.Contains(t, err.Error(), "401")
}
