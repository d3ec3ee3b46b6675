package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/yndnr/dsh-go/internal/core/domain"
	"github.com/yndnr/dsh-go/internal/infra/mqttclient"
	"github.com/yndnr/dsh-go/internal/storage"
)

const (
	testEndpoint = "mqtt.dsh-dev.dsh.np.aws.kpn.com"
	testClientID = "2d3814ea-849e-4b6e-b435-f92d11f8e2f6"
	testTenant   = "ajuc"
)

// makeRawToken builds a decodable token with the given client id.
func makeRawToken(t *testing.T, clientID string) string {
	t.Helper()
	payload := map[string]any{
		"gen":      340,
		"endpoint": testEndpoint,
		"iss":      "0",
		"claims": []map[string]any{{
			"resource": map[string]any{"stream": "ajucpublic", "prefix": "/tt", "topic": "ajuc/#", "type": "topic"},
			"action":   "subscribe",
		}},
		"exp":       1666284104,
		"ports":     map[string]any{"mqtts": []int{8883}, "mqttwss": []int{443, 8443}},
		"client-id": clientID,
		"iat":       1665682904,
		"tenant-id": testTenant,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawStdEncoding.EncodeToString(data) + ".c2ln"
}

func testToken(t *testing.T) domain.Token {
	t.Helper()
	tok, err := domain.DecodeToken(makeRawToken(t, testClientID))
	if err != nil {
		t.Fatalf("DecodeToken() error = %v", err)
	}
	return tok
}

// fakeConfig is an in-memory ConfigSource.
type fakeConfig struct {
	cfg   storage.Config
	err   error
	calls int
}

func (f *fakeConfig) Get(ctx context.Context) (storage.Config, error) {
	f.calls++
	return f.cfg, f.err
}

// fakeToken is an already completed mqttclient.Token.
type fakeToken struct {
	err error
}

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t fakeToken) Error() error { return t.err }

type publishedMessage struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  string
}

// fakeMQTT records calls and lets tests inject events.
type fakeMQTT struct {
	opts         mqttclient.Options
	events       chan mqttclient.Event
	connectErr   error
	subscribeErr error
	// publishResult is emitted after every publish when set.
	publishResult *mqttclient.Event

	mu           sync.Mutex
	published    []publishedMessage
	subscribed   []string
	disconnected int
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{events: make(chan mqttclient.Event, 64)}
}

func (f *fakeMQTT) factory() mqttclient.Factory {
	return func(o mqttclient.Options) mqttclient.Client {
		f.opts = o
		return f
	}
}

func (f *fakeMQTT) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.events <- mqttclient.Event{Kind: mqttclient.EventConnAck}
	return nil
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) mqttclient.Token {
	f.mu.Lock()
	if f.disconnected > 0 {
		f.mu.Unlock()
		return fakeToken{err: mqttclient.ErrClosed}
	}
	f.published = append(f.published, publishedMessage{topic, qos, retained, string(payload)})
	f.mu.Unlock()
	if f.publishResult != nil {
		f.events <- *f.publishResult
	}
	return fakeToken{}
}

func (f *fakeMQTT) Subscribe(ctx context.Context, topic string, qos byte) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.mu.Lock()
	f.subscribed = append(f.subscribed, topic)
	f.mu.Unlock()
	f.events <- mqttclient.Event{Kind: mqttclient.EventSubAck, Topic: topic}
	return nil
}

func (f *fakeMQTT) Events() <-chan mqttclient.Event { return f.events }

func (f *fakeMQTT) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.disconnected++
	f.mu.Unlock()
	return nil
}

func (f *fakeMQTT) Published() []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedMessage(nil), f.published...)
}

func (f *fakeMQTT) Disconnected() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

var errBoom = errors.New("boom")
