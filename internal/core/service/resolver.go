package service

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/yndnr/dsh-go/internal/core/domain"
	"github.com/yndnr/dsh-go/internal/storage"
)

// ConfigSource provides the stored configuration. *storage.Provider
// satisfies it.
type ConfigSource interface {
	Get(ctx context.Context) (storage.Config, error)
}

// RequestOverrides holds values given explicitly by the caller. Empty
// strings and nil amounts mean "not given"; a given amount is validated
// as is.
type RequestOverrides struct {
	Domain string
	Tenant string
	APIKey string

	// Claims is a JSON document restricting the token, never read from
	// the configuration.
	Claims string

	TokenAmount           *int
	ConcurrentConnections *int
}

// ResolveRequestAttributes combines explicit values with the stored
// configuration. Each of domain, tenant and api_key comes from overrides
// when set and from src otherwise; a field empty in both is reported with
// domain.MissingConfiguration. The configuration is read at most once.
func ResolveRequestAttributes(ctx context.Context, src ConfigSource, o RequestOverrides) (domain.RequestAttributes, error) {
	attrs := domain.RequestAttributes{
		Domain:                o.Domain,
		Tenant:                o.Tenant,
		APIKey:                o.APIKey,
		TokenAmount:           orDefault(o.TokenAmount, 1),
		ConcurrentConnections: orDefault(o.ConcurrentConnections, 1),
	}

	if attrs.Domain == "" || attrs.Tenant == "" || attrs.APIKey == "" {
		cfg, err := src.Get(ctx)
		if err != nil {
			return domain.RequestAttributes{}, err
		}
		if attrs.Domain == "" {
			attrs.Domain = cfg.Domain
		}
		if attrs.Tenant == "" {
			attrs.Tenant = cfg.Tenant
		}
		if attrs.APIKey == "" {
			attrs.APIKey = cfg.APIKey
		}
	}

	if o.Claims != "" {
		if !json.Valid([]byte(o.Claims)) {
			return domain.RequestAttributes{}, domain.ErrInvalidClaims.WithDetails(
				fmt.Sprintf("claims %q are not valid JSON", o.Claims))
		}
		attrs.Claims = json.RawMessage(o.Claims)
	}

	if err := attrs.Validate(); err != nil {
		return domain.RequestAttributes{}, err
	}
	return attrs, nil
}

// ConnectionOverrides holds explicit connection values. Port 0 means "not
// given"; Websocket only forces websockets on.
type ConnectionOverrides struct {
	Port      uint16
	Websocket bool
}

// ConnectionParams is the resolved transport selection.
type ConnectionParams struct {
	Port      uint16
	Transport Transport
}

// ResolveConnection picks the port and transport the same way as
// ResolveRequestAttributes.
func ResolveConnection(ctx context.Context, src ConfigSource, o ConnectionOverrides) (ConnectionParams, error) {
	params := ConnectionParams{Port: o.Port}
	websocket := o.Websocket

	if params.Port == 0 || !websocket {
		cfg, err := src.Get(ctx)
		if err != nil {
			return ConnectionParams{}, err
		}
		if params.Port == 0 {
			params.Port = cfg.Port
		}
		if !websocket {
			websocket = cfg.Websocket
		}
	}

	if params.Port == 0 {
		return ConnectionParams{}, domain.MissingConfiguration("port")
	}
	if websocket {
		params.Transport = TransportWebsocket
	}
	return params, nil
}

func orDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
