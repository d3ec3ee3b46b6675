package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/yndnr/dsh-go/internal/core/domain"
	"github.com/yndnr/dsh-go/internal/infra/buildinfo"
	"github.com/yndnr/dsh-go/internal/telemetry/logger"
)

// Platform endpoint paths.
const (
	RESTTokenPath = "/auth/v0/token"
	MQTTTokenPath = "/datastreams/v0/mqtt/token"
)

// DefaultTimeout bounds a single token request.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 1 << 20

// HTTPClient talks to the platform API of one domain.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithBaseURL overrides the https://api.<domain> base URL.
func WithBaseURL(u string) Option {
	return func(c *HTTPClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithTLSConfig sets the TLS client configuration.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *HTTPClient) {
		c.client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: cfg,
		}
	}
}

// BaseURL returns the platform API URL for a domain.
func BaseURL(domain string) string {
	return "https://api." + domain
}

// NewHTTPClient creates a client for the platform API of domain.
func NewHTTPClient(domain string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:   BaseURL(domain),
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: buildinfo.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL requests are sent to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

type restTokenRequest struct {
	Tenant string `json:"tenant"`
}

type mqttTokenRequest struct {
	ID     string          `json:"id"`
	Tenant string          `json:"tenant"`
	Claims json.RawMessage `json:"claims"`
}

// RequestRESTToken exchanges an API key for a REST token. Any status other
// than 200 is an authentication failure carrying the response body.
func (c *HTTPClient) RequestRESTToken(ctx context.Context, tenant, apiKey string) (string, error) {
	status, body, err := c.post(ctx, RESTTokenPath, map[string]string{"apikey": apiKey}, restTokenRequest{Tenant: tenant})
	if err != nil {
		return "", domain.ErrTransport.WithDetails("request rest token").WithCause(err)
	}
	if status != http.StatusOK {
		return "", domain.AuthFailure(status, string(body))
	}
	return strings.TrimSpace(string(body)), nil
}

// RequestMQTTToken exchanges a REST token for one raw MQTT token. claims
// may be nil.
func (c *HTTPClient) RequestMQTTToken(ctx context.Context, restToken, tenant string, claims json.RawMessage) (string, error) {
	id := uuid.NewString()
	ctx = logger.WithRequestID(ctx, id)

	req := mqttTokenRequest{ID: id, Tenant: tenant, Claims: claims}
	status, body, err := c.post(ctx, MQTTTokenPath, map[string]string{"Authorization": "Bearer " + restToken}, req)
	if err != nil {
		return "", domain.ErrTransport.WithDetails("request mqtt token").WithCause(err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("mqtt token request %s: status %d: %s", id, status, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *HTTPClient) post(ctx context.Context, path string, headers map[string]string, body any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if id := logger.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	logger.L(ctx).Debug("platform request",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp.StatusCode, respBody, nil
}
