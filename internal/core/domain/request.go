package domain

import (
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
)

// RequestAttributes carries everything needed to acquire tokens. It is
// built once per invocation and passed by value.
type RequestAttributes struct {
	Domain                string
	Tenant                string
	APIKey                string
	Claims                json.RawMessage // nil when no claims were given
	TokenAmount           int
	ConcurrentConnections int
}

// Validate checks the invariants of a resolved request.
func (r RequestAttributes) Validate() error {
	switch {
	case r.Domain == "":
		return MissingConfiguration("domain")
	case r.Tenant == "":
		return MissingConfiguration("tenant")
	case r.APIKey == "":
		return MissingConfiguration("api_key")
	case r.TokenAmount < 1:
		return ErrInvalidRequest.WithDetails(fmt.Sprintf("token amount must be at least 1, got %d", r.TokenAmount))
	case r.ConcurrentConnections < 1:
		return ErrInvalidRequest.WithDetails(fmt.Sprintf("concurrent connections must be at least 1, got %d", r.ConcurrentConnections))
	}
	if r.Claims != nil && !json.Valid(r.Claims) {
		return ErrInvalidClaims.WithDetails("claims are not valid JSON")
	}
	return nil
}

// String never includes the API key.
func (r RequestAttributes) String() string {
	return fmt.Sprintf("domain=%s tenant=%s amount=%d concurrency=%d claims=%t",
		r.Domain, r.Tenant, r.TokenAmount, r.ConcurrentConnections, r.Claims != nil)
}

// LogValue implements slog.LogValuer without the API key.
func (r RequestAttributes) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("domain", r.Domain),
		slog.String("tenant", r.Tenant),
		slog.Int("token_amount", r.TokenAmount),
		slog.Int("concurrent_connections", r.ConcurrentConnections),
		slog.Bool("claims", r.Claims != nil),
	)
}
