package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "dsh"

// Token request phases.
const (
	PhaseREST = "rest"
	PhaseMQTT = "mqtt"
)

// Registry holds all metrics of one invocation.
type Registry struct {
	reg *prometheus.Registry

	TokenRequests        *prometheus.CounterVec
	TokenRequestDuration *prometheus.HistogramVec
	TokensAcquired       prometheus.Gauge
	InflightRequests     prometheus.Gauge

	MQTTMessages *prometheus.CounterVec
	MQTTEvents   *prometheus.CounterVec
}

// NewRegistry creates metrics registered on a fresh registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		TokenRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_requests_total",
				Help:      "Token requests by phase and outcome",
			},
			[]string{"phase", "outcome"},
		),
		TokenRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "token_request_duration_seconds",
				Help:      "Token request latency in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"phase"},
		),
		TokensAcquired: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_tokens_acquired",
			Help:      "MQTT tokens acquired by the last fetch",
		}),
		InflightRequests: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_requests_inflight",
			Help:      "MQTT token requests currently in flight",
		}),
		MQTTMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mqtt_messages_total",
				Help:      "MQTT messages by direction",
			},
			[]string{"direction"},
		),
		MQTTEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mqtt_events_total",
				Help:      "MQTT session events by kind",
			},
			[]string{"event"},
		),
	}
}

// ObserveTokenRequest records one token request.
func (r *Registry) ObserveTokenRequest(phase string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.TokenRequests.WithLabelValues(phase, outcome).Inc()
	r.TokenRequestDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Push sends all metrics to a Pushgateway, grouped by run id.
func (r *Registry) Push(ctx context.Context, url, job, runID string) error {
	p := push.New(url, job).Gatherer(r.reg)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	return p.PushContext(ctx)
}
