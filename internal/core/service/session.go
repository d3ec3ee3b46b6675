package service

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/yndnr/dsh-go/internal/cli/repl"
	"github.com/yndnr/dsh-go/internal/core/domain"
	"github.com/yndnr/dsh-go/internal/infra/mqttclient"
	"github.com/yndnr/dsh-go/internal/infra/tlsroots"
	"github.com/yndnr/dsh-go/internal/telemetry/logger"
	"github.com/yndnr/dsh-go/internal/telemetry/metric"
)

// QoS used for every subscribe and publish.
const sessionQoS byte = 1

// Transport selects how the broker is reached.
type Transport int

const (
	TransportTLS Transport = iota
	TransportWebsocket
)

func (t Transport) String() string {
	if t == TransportWebsocket {
		return "websocket"
	}
	return "tls"
}

// SessionOptions are the operator's choices for one session.
type SessionOptions struct {
	// Topic is the topic below the stream prefix, e.g. "ajuc/#".
	Topic     string
	Transport Transport
	Port      uint16

	// Message switches the session to publish-once mode when set.
	Message *string

	// Verbose shows keep-alive pings.
	Verbose bool
	// Concise prints received messages as "topic > payload" only.
	Concise bool
}

// Session runs one MQTT session with one token.
//
// A Session is used once: construct it, then call Run.
type Session struct {
	token     domain.Token
	opts      SessionOptions
	topic     string
	brokerURL string

	factory   mqttclient.Factory
	tlsConfig *tls.Config
	in        io.Reader
	out       io.Writer
	log       logger.Logger
	metrics   *metric.Registry

	mu     sync.Mutex
	client mqttclient.Client
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClientFactory replaces the paho client factory.
func WithClientFactory(f mqttclient.Factory) SessionOption {
	return func(s *Session) {
		s.factory = f
	}
}

// WithTLSConfig replaces the TLS configuration built from the system roots.
func WithTLSConfig(cfg *tls.Config) SessionOption {
	return func(s *Session) {
		s.tlsConfig = cfg
	}
}

// WithInput sets the source of interactive input. Defaults to os.Stdin.
func WithInput(r io.Reader) SessionOption {
	return func(s *Session) {
		s.in = r
	}
}

// WithOutput sets where events and messages are printed. Defaults to os.Stdout.
func WithOutput(w io.Writer) SessionOption {
	return func(s *Session) {
		s.out = w
	}
}

// WithSessionLogger sets the session's logger.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *Session) {
		s.log = l
	}
}

// WithSessionMetrics records message and event counts on m.
func WithSessionMetrics(m *metric.Registry) SessionOption {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewSession prepares a session. It fails with domain.ErrPortNotEntitled
// when the token does not grant opts.Port for the selected transport;
// nothing is dialed before that check.
func NewSession(token domain.Token, opts SessionOptions, options ...SessionOption) (*Session, error) {
	websocket := opts.Transport == TransportWebsocket
	if !token.Attributes.AllowsPort(opts.Port, websocket) {
		return nil, domain.PortNotEntitled(opts.Port, token.Attributes.PortsFor(websocket))
	}

	s := &Session{
		token:     token,
		opts:      opts,
		topic:     domain.NormalizeTopic(opts.Topic),
		brokerURL: brokerURL(token.Attributes.Endpoint, websocket),
		factory:   mqttclient.NewFactory(),
		in:        os.Stdin,
		out:       os.Stdout,
		log:       logger.Default(),
		metrics:   metric.NewRegistry(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.log = s.log.With("component", "session", "broker", s.brokerURL, "port", opts.Port)
	return s, nil
}

// brokerURL is the broker address as shown to the operator.
func brokerURL(endpoint string, websocket bool) string {
	if websocket {
		return "wss://" + endpoint + "/mqtt"
	}
	return endpoint
}

// BrokerURL returns wss://<endpoint>/mqtt for websockets and the bare
// endpoint for direct TLS.
func (s *Session) BrokerURL() string { return s.brokerURL }

// Topic returns the normalized subscription topic.
func (s *Session) Topic() string { return s.topic }

// Run connects and runs the session until it completes. In publish-once
// mode it returns after the broker acknowledged the message. In interactive
// mode it returns when the operator types "exit" or closes input; a lost
// connection is reported but does not end the session.
func (s *Session) Run(ctx context.Context) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	if s.opts.Message != nil {
		return s.publishOnce(ctx, client, *s.opts.Message)
	}
	return s.interactive(ctx, client)
}

// Close disconnects the session's client. It is safe to call from another
// goroutine, e.g. a signal handler, and more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (s *Session) connect(ctx context.Context) (mqttclient.Client, error) {
	attrs := s.token.Attributes
	tlsConfig := s.tlsConfig
	if tlsConfig == nil {
		tlsConfig = tlsroots.NewPool().TLSConfig(attrs.Endpoint)
	}

	websocket := s.opts.Transport == TransportWebsocket
	if websocket {
		s.log.Info("websockets will be used")
	} else {
		s.log.Info("tls will be used (no websockets)")
	}

	client := s.factory(mqttclient.Options{
		Endpoint:   attrs.Endpoint,
		Port:       s.opts.Port,
		Websocket:  websocket,
		ClientID:   attrs.ClientID,
		Username:   attrs.ClientID,
		Password:   s.token.Raw,
		TLSConfig:  tlsConfig,
		KeepAlive:  mqttclient.DefaultKeepAlive,
		PingEvents: s.opts.Verbose,
		Logger:     s.log,
	})
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	if err := client.Connect(ctx); err != nil {
		_ = s.Close(context.WithoutCancel(ctx))
		return nil, domain.ErrTransport.WithDetails("connect to " + s.brokerURL).WithCause(err)
	}
	return client, nil
}

// publishOnce publishes message and prints events until its acknowledgement.
func (s *Session) publishOnce(ctx context.Context, client mqttclient.Client, message string) error {
	topic, err := domain.PublishTopic(s.topic)
	if err != nil {
		return err
	}

	s.log.Info("publishing message", "topic", topic)
	client.Publish(topic, sessionQoS, true, []byte(message))
	s.metrics.MQTTMessages.WithLabelValues("out").Inc()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-client.Events():
			s.metrics.MQTTEvents.WithLabelValues(ev.Kind.String()).Inc()
			switch ev.Kind {
			case mqttclient.EventPubAck:
				fmt.Fprintln(s.out, "Message published")
				return nil
			case mqttclient.EventPublishFailed, mqttclient.EventConnectionLost:
				s.log.Error("publish failed", "error", ev.Err)
				return domain.ErrTransport.WithDetails("publish to " + topic).WithCause(ev.Err)
			default:
				fmt.Fprintf(s.out, "Event: %s\n", ev)
			}
		}
	}
}

// interactive subscribes, starts the receive loop and relays input lines
// as publishes until the operator leaves.
func (s *Session) interactive(ctx context.Context, client mqttclient.Client) error {
	s.log.Info("subscribing", "topic", s.topic)
	if err := client.Subscribe(ctx, s.topic, sessionQoS); err != nil {
		return domain.ErrTransport.WithDetails("subscribe to " + s.topic).WithCause(err)
	}

	pubTopic, err := domain.PublishTopic(s.topic)
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	received := make(chan struct{})
	lost := make(chan error, 1)
	go func() {
		defer close(received)
		s.receive(ctx, client, stop, lost)
	}()
	defer func() {
		close(stop)
		<-received
	}()

	err = repl.NewRelay(s.in).Run(func(line string) error {
		select {
		case cause := <-lost:
			s.log.Warn("receive loop stopped; messages are no longer shown", "error", cause)
		default:
		}
		tok := client.Publish(pubTopic, sessionQoS, true, []byte(line))
		select {
		case <-tok.Done():
			if err := tok.Error(); errors.Is(err, mqttclient.ErrClosed) {
				return domain.ErrTransport.WithDetails("publish to " + pubTopic).WithCause(err)
			}
		default:
		}
		s.metrics.MQTTMessages.WithLabelValues("out").Inc()
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("exiting session")
	return nil
}

// receive prints events until stop is closed, ctx is done or the
// connection is lost. A lost connection is sent on lost.
func (s *Session) receive(ctx context.Context, client mqttclient.Client, stop <-chan struct{}, lost chan<- error) {
	events := client.Events()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case ev := <-events:
			s.metrics.MQTTEvents.WithLabelValues(ev.Kind.String()).Inc()
			s.render(ev)
			if ev.Kind == mqttclient.EventConnectionLost {
				s.log.Error("error while receiving messages", "error", ev.Err)
				lost <- domain.ErrTransport.WithDetails("connection lost").WithCause(ev.Err)
				return
			}
		}
	}
}
