package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/dsh-go/internal/core/domain"
)

// Default configuration values.
const (
	DefaultDomain    = "poc.kpn-dsh.com"
	DefaultPort      = 8883
	DefaultWebsocket = false
)

// Field names accepted by Provider.Set.
const (
	FieldTenant    = "tenant"
	FieldAPIKey    = "api_key"
	FieldDomain    = "domain"
	FieldPort      = "port"
	FieldWebsocket = "websocket"
)

// Config is the persisted dsh configuration.
type Config struct {
	Tenant    string `json:"tenant,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	Domain    string `json:"domain"`
	Port      uint16 `json:"port"`
	Websocket bool   `json:"websocket"`
}

// DefaultConfig returns the configuration used when nothing is stored.
func DefaultConfig() Config {
	return Config{
		Domain:    DefaultDomain,
		Port:      DefaultPort,
		Websocket: DefaultWebsocket,
	}
}

// MaskedAPIKey returns the API key with all but the last four characters
// replaced by '*'.
func (c Config) MaskedAPIKey() string {
	return maskSecret(c.APIKey)
}

// String renders the configuration with the API key masked.
func (c Config) String() string {
	return c.render(c.MaskedAPIKey())
}

// Reveal renders the configuration including the full API key.
func (c Config) Reveal() string {
	return c.render(c.APIKey)
}

func (c Config) render(apiKey string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tenant:    %s\n", orUnset(c.Tenant))
	fmt.Fprintf(&b, "api_key:   %s\n", orUnset(apiKey))
	fmt.Fprintf(&b, "domain:    %s\n", orUnset(c.Domain))
	fmt.Fprintf(&b, "port:      %d\n", c.Port)
	fmt.Fprintf(&b, "websocket: %t", c.Websocket)
	return b.String()
}

// With returns a copy of c with field set to value.
func (c Config) With(field, value string) (Config, error) {
	switch field {
	case FieldTenant:
		c.Tenant = value
	case FieldAPIKey:
		c.APIKey = value
	case FieldDomain:
		c.Domain = value
	case FieldPort:
		p, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return c, domain.ErrInvalidRequest.WithDetails(fmt.Sprintf("invalid port %q", value)).WithCause(err)
		}
		c.Port = uint16(p)
	case FieldWebsocket:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return c, domain.ErrInvalidRequest.WithDetails(fmt.Sprintf("invalid websocket value %q", value)).WithCause(err)
		}
		c.Websocket = b
	default:
		return c, domain.ErrInvalidRequest.WithDetails("unknown configuration field " + field)
	}
	return c, nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

func orUnset(s string) string {
	if s == "" {
		return "<not set>"
	}
	return s
}
