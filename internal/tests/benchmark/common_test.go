package benchmark

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/goccy/go-json"
)

// TokenAmounts are the batch sizes for fetch benchmarks.
var TokenAmounts = []int{1, 10, 100}

// Concurrency are the fan-out limits for fetch benchmarks.
var Concurrency = []int{1, 4, 16}

// newRawToken builds a decodable MQTT token.
func newRawToken(clientID string) string {
	payload := map[string]any{
		"gen":      340,
		"endpoint": "mqtt.dsh-dev.dsh.np.aws.kpn.com",
		"iss":      "0",
		"claims": []map[string]any{{
			"resource": map[string]any{"stream": "ajucpublic", "prefix": "/tt", "topic": "ajuc/#", "type": "topic"},
			"action":   "subscribe",
		}},
		"exp":       1666284104,
		"ports":     map[string]any{"mqtts": []int{8883}, "mqttwss": []int{443, 8443}},
		"client-id": clientID,
		"iat":       1665682904,
		"tenant-id": "ajuc",
	}
	data, _ := json.Marshal(payload)
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawStdEncoding.EncodeToString(data) + ".c2ln"
}

// platformStub answers token requests after a fixed latency.
type platformStub struct {
	latency time.Duration
	token   string
}

func newPlatformStub(latency time.Duration) *platformStub {
	return &platformStub{latency: latency, token: newRawToken("client-1")}
}

func (s *platformStub) wait(ctx context.Context) error {
	if s.latency == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *platformStub) RequestRESTToken(ctx context.Context, tenant, apiKey string) (string, error) {
	return "rest", s.wait(ctx)
}

func (s *platformStub) RequestMQTTToken(ctx context.Context, restToken, tenant string, claims json.RawMessage) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	return s.token, nil
}
