package domain

import (
	_ "embed"
	"encoding/base64"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed token_schema.json
var tokenSchemaJSON []byte

var (
	tokenSchemaOnce sync.Once
	tokenSchema     *gojsonschema.Schema
	tokenSchemaErr  error
)

// Token is an MQTT token as issued by the platform together with its
// decoded attributes.
type Token struct {
	Raw        string
	Attributes TokenAttributes
}

// Equal reports whether two tokens have the same raw form and attributes.
func (t Token) Equal(other Token) bool {
	return t.Raw == other.Raw && reflect.DeepEqual(t.Attributes, other.Attributes)
}

// TokenAttributes is the payload segment of an MQTT token.
//
// Only the fields below are read; unknown keys are ignored. Issued-at and
// expiry are carried as opaque numbers and exposed through jwt.Claims for
// display. They are never enforced.
type TokenAttributes struct {
	Gen      int64   `json:"gen"`
	Endpoint string  `json:"endpoint"`
	Iss      string  `json:"iss"`
	Claims   []Claim `json:"claims"`
	Exp      int64   `json:"exp"`
	Ports    Ports   `json:"ports"`
	ClientID string  `json:"client-id"`
	Iat      int64   `json:"iat"`
	TenantID string  `json:"tenant-id"`
}

// Ports lists the broker ports a token grants per transport.
type Ports struct {
	MQTTS   []uint16 `json:"mqtts"`
	MQTTWSS []uint16 `json:"mqttwss"`
}

// Claim grants an action on a resource.
type Claim struct {
	Resource Resource `json:"resource"`
	Action   string   `json:"action"`
}

// Resource identifies a stream topic.
type Resource struct {
	Stream string  `json:"stream"`
	Prefix string  `json:"prefix"`
	Topic  string  `json:"topic"`
	Type   *string `json:"type,omitempty"`
}

// DecodeToken splits raw on '.', base64-decodes the second segment and
// parses it into TokenAttributes.
//
// The signature segment is not verified. The broker is the authority that
// checks it; attributes returned here are only trusted for choosing an
// endpoint, a client id and a port.
func DecodeToken(raw string) (Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return Token{}, ErrMalformedToken.WithDetails("expected at least two dot-separated segments")
	}

	payload, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return Token{}, ErrTokenDecode.WithCause(err)
	}

	if err := validateAttributes(payload); err != nil {
		return Token{}, err
	}

	var attrs TokenAttributes
	if err := json.Unmarshal(payload, &attrs); err != nil {
		return Token{}, ErrTokenSchema.WithCause(err)
	}

	return Token{Raw: raw, Attributes: attrs}, nil
}

func validateAttributes(payload []byte) error {
	tokenSchemaOnce.Do(func() {
		tokenSchema, tokenSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(tokenSchemaJSON))
	})
	if tokenSchemaErr != nil {
		return ErrTokenSchema.WithCause(tokenSchemaErr)
	}

	result, err := tokenSchema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return ErrTokenSchema.WithCause(err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return ErrTokenSchema.WithDetails(strings.Join(msgs, "; "))
	}
	return nil
}

// AllowsPort reports whether port is granted for the given transport.
func (a TokenAttributes) AllowsPort(port uint16, websocket bool) bool {
	for _, p := range a.PortsFor(websocket) {
		if p == port {
			return true
		}
	}
	return false
}

// PortsFor returns the granted ports for the websocket or direct TLS transport.
func (a TokenAttributes) PortsFor(websocket bool) []uint16 {
	if websocket {
		return a.Ports.MQTTWSS
	}
	return a.Ports.MQTTS
}

// ExpiresAt returns the expiry as a time, or the zero time when unset.
func (a TokenAttributes) ExpiresAt() time.Time {
	if a.Exp == 0 {
		return time.Time{}
	}
	return time.Unix(a.Exp, 0).UTC()
}

// jwt.Claims, used for display only.

var _ jwt.Claims = TokenAttributes{}

func (a TokenAttributes) GetExpirationTime() (*jwt.NumericDate, error) {
	if a.Exp == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(a.Exp, 0)), nil
}

func (a TokenAttributes) GetIssuedAt() (*jwt.NumericDate, error) {
	if a.Iat == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(a.Iat, 0)), nil
}

func (a TokenAttributes) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

func (a TokenAttributes) GetIssuer() (string, error) { return a.Iss, nil }

func (a TokenAttributes) GetSubject() (string, error) { return a.ClientID, nil }

func (a TokenAttributes) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }
