package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yndnr/dsh-go/internal/core/domain"
	"github.com/yndnr/dsh-go/internal/telemetry/logger"
	"github.com/yndnr/dsh-go/internal/telemetry/metric"
	"github.com/yndnr/dsh-go/pkg/secret"
)

// TokenClient performs the two platform token requests.
// *connection.HTTPClient satisfies it.
type TokenClient interface {
	RequestRESTToken(ctx context.Context, tenant, apiKey string) (string, error)
	RequestMQTTToken(ctx context.Context, restToken, tenant string, claims json.RawMessage) (string, error)
}

// ProgressFunc is called after every MQTT token request with the number of
// finished requests and the total. Calls are serialized.
type ProgressFunc func(done, total int)

// TokenFetcher acquires MQTT tokens for a tenant.
type TokenFetcher struct {
	client   TokenClient
	metrics  *metric.Registry
	limiter  *rate.Limiter
	progress ProgressFunc
	log      logger.Logger
}

// FetcherOption configures a TokenFetcher.
type FetcherOption func(*TokenFetcher)

// WithFetcherMetrics records requests on m.
func WithFetcherMetrics(m *metric.Registry) FetcherOption {
	return func(f *TokenFetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithRateLimit caps MQTT token requests at r per second with the given
// burst. A zero rate disables the limit.
func WithRateLimit(r float64, burst int) FetcherOption {
	return func(f *TokenFetcher) {
		if r <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithProgress reports MQTT token request progress to fn.
func WithProgress(fn ProgressFunc) FetcherOption {
	return func(f *TokenFetcher) {
		f.progress = fn
	}
}

// WithFetcherLogger sets the fetcher's logger. Without it the logger is
// taken from the context.
func WithFetcherLogger(l logger.Logger) FetcherOption {
	return func(f *TokenFetcher) {
		f.log = l
	}
}

// NewTokenFetcher creates a fetcher over client.
func NewTokenFetcher(client TokenClient, opts ...FetcherOption) *TokenFetcher {
	f := &TokenFetcher{
		client:  client,
		metrics: metric.NewRegistry(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchTokens requests a REST token, then attrs.TokenAmount MQTT tokens
// with at most attrs.ConcurrentConnections requests in flight.
//
// A failed REST request fails the call. A failed MQTT request or a token
// that does not decode is logged and dropped, so fewer tokens than asked
// for may be returned; none at all yields domain.ErrNoTokensAcquired.
// The order of the result is not meaningful.
func (f *TokenFetcher) FetchTokens(ctx context.Context, attrs domain.RequestAttributes) ([]domain.Token, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	log := f.log
	if log == nil {
		log = logger.L(ctx)
	}
	log.Debug("fetching tokens", "request", attrs)

	start := time.Now()
	restToken, err := f.client.RequestRESTToken(ctx, attrs.Tenant, attrs.APIKey)
	f.metrics.ObserveTokenRequest(metric.PhaseREST, start, err)
	if err != nil {
		return nil, err
	}
	log.Debug("rest token acquired", "fingerprint", secret.Fingerprint(restToken))

	var (
		mu       sync.Mutex
		tokens   = make([]domain.Token, 0, attrs.TokenAmount)
		finished int
	)
	record := func(tok *domain.Token) {
		mu.Lock()
		defer mu.Unlock()
		if tok != nil {
			tokens = append(tokens, *tok)
		}
		finished++
		if f.progress != nil {
			f.progress(finished, attrs.TokenAmount)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(attrs.ConcurrentConnections)
	for i := 0; i < attrs.TokenAmount; i++ {
		g.Go(func() error {
			if f.limiter != nil {
				if err := f.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			f.metrics.InflightRequests.Inc()
			start := time.Now()
			raw, err := f.client.RequestMQTTToken(gctx, restToken, attrs.Tenant, attrs.Claims)
			f.metrics.InflightRequests.Dec()
			f.metrics.ObserveTokenRequest(metric.PhaseMQTT, start, err)
			if err != nil {
				log.Warn("mqtt token request failed", "code", domain.GetErrorCode(err), "error", err)
				record(nil)
				return nil
			}

			tok, err := domain.DecodeToken(raw)
			if err != nil {
				log.Warn("dropping undecodable mqtt token", "code", domain.GetErrorCode(err), "error", err)
				record(nil)
				return nil
			}
			log.Debug("mqtt token acquired",
				"client_id", tok.Attributes.ClientID,
				"fingerprint", secret.Fingerprint(raw),
			)
			record(&tok)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.metrics.TokensAcquired.Set(float64(len(tokens)))
	if len(tokens) == 0 {
		return nil, domain.ErrNoTokensAcquired.WithDetails(
			fmt.Sprintf("all %d mqtt token requests failed", attrs.TokenAmount))
	}
	log.Info("mqtt tokens acquired", "requested", attrs.TokenAmount, "acquired", len(tokens))
	return tokens, nil
}
