package command

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/yndnr/dsh-go/internal/cli/connection"
	"github.com/yndnr/dsh-go/internal/infra/mqttclient"
	"github.com/yndnr/dsh-go/internal/storage"
)

const (
	testAPIKey    = "secret-api-key-1234"
	testRESTToken = "rest-token"
	testTenant    = "ajuc"
	testEndpoint  = "mqtt.dsh-dev.dsh.np.aws.kpn.com"
)

// rawToken builds a decodable MQTT token for client id n.
func rawToken(n int64) string {
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
		"client-id": fmt.Sprintf("client-%d", n),
		"iat":       1665682904,
		"tenant-id": testTenant,
	}
	data, _ := json.Marshal(payload)
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawStdEncoding.EncodeToString(data) + ".c2ln"
}

// platform is a mock of the platform token endpoints.
type platform struct {
	*httptest.Server

	mqttRequests atomic.Int64

	mu         sync.Mutex
	lastClaims string
}

func newPlatform(t *testing.T) *platform {
	t.Helper()
	p := &platform{}
	mux := http.NewServeMux()
	mux.HandleFunc(connection.RESTTokenPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != testAPIKey {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		io.WriteString(w, testRESTToken)
	})
	mux.HandleFunc(connection.MQTTTokenPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testRESTToken {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			Claims json.RawMessage `json:"claims"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		p.lastClaims = string(req.Claims)
		p.mu.Unlock()
		n := p.mqttRequests.Add(1)
		io.WriteString(w, rawToken(n))
	})
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

func (p *platform) LastClaims() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastClaims
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testEnv runs the app against a mock platform, a file store in a
// temporary directory and a fake MQTT client.
type testEnv struct {
	t         *testing.T
	platform  *platform
	storePath string
	mqtt      *fakeMQTT
	input     io.Reader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	p := newPlatform(t)
	t.Setenv("DSH_HTTP_BASEURL", p.URL)
	return &testEnv{
		t:         t,
		platform:  p,
		storePath: filepath.Join(home, ".dsh", "config.enc"),
		mqtt:      newFakeMQTT(),
		input:     strings.NewReader(""),
	}
}

// run executes dsh with args and returns stdout and stderr. Every run gets
// a fresh fake MQTT client.
func (e *testEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	e.mqtt = newFakeMQTT()
	var stdout, stderr syncBuffer
	app := App(
		WithBackend(storage.NewFileBackend(e.storePath)),
		WithInput(e.input),
		WithMQTTFactory(e.mqtt.factory()),
		WithExit(func(int) {}),
	)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"dsh"}, args...))
	return stdout.String(), stderr.String(), err
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	stdout, stderr, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("dsh %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return stdout
}

// storedConfig reads the configuration the commands saved.
func (e *testEnv) storedConfig() storage.Config {
	e.t.Helper()
	cfg, err := storage.NewFileBackend(e.storePath).Load(context.Background())
	if err != nil {
		e.t.Fatalf("load stored configuration: %v", err)
	}
	return cfg
}

type completedToken struct{}

func (completedToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (completedToken) Error() error { return nil }

type published struct {
	Topic   string
	Payload string
}

// fakeMQTT acknowledges every publish.
type fakeMQTT struct {
	events chan mqttclient.Event

	mu           sync.Mutex
	opts         mqttclient.Options
	published    []published
	subscribed   []string
	disconnected int
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{events: make(chan mqttclient.Event, 64)}
}

func (f *fakeMQTT) factory() mqttclient.Factory {
	return func(o mqttclient.Options) mqttclient.Client {
		f.mu.Lock()
		f.opts = o
		f.mu.Unlock()
		return f
	}
}

func (f *fakeMQTT) Connect(ctx context.Context) error {
	f.events <- mqttclient.Event{Kind: mqttclient.EventConnAck}
	return nil
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) mqttclient.Token {
	f.mu.Lock()
	f.published = append(f.published, published{topic, string(payload)})
	f.mu.Unlock()
	f.events <- mqttclient.Event{Kind: mqttclient.EventPubAck, Topic: topic}
	return completedToken{}
}

func (f *fakeMQTT) Subscribe(ctx context.Context, topic string, qos byte) error {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, topic)
	f.mu.Unlock()
	return nil
}

func (f *fakeMQTT) Events() <-chan mqttclient.Event { return f.events }

func (f *fakeMQTT) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.disconnected++
	f.mu.Unlock()
	return nil
}

func (f *fakeMQTT) Options() mqttclient.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts
}

func (f *fakeMQTT) Published() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}
