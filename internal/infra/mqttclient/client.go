package mqttclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/yndnr/dsh-go/internal/telemetry/logger"
)

// Token tracks completion of an asynchronous operation.
// pahomqtt.Token satisfies it.
type Token interface {
	Done() <-chan struct{}
	Error() error
}

// Client is the MQTT surface a session needs.
type Client interface {
	// Connect dials the broker and waits for the connection acknowledgement.
	Connect(ctx context.Context) error

	// Publish sends a message. Completion is reported through the token and
	// as an EventPubAck or EventPublishFailed.
	Publish(topic string, qos byte, retained bool, payload []byte) Token

	// Subscribe subscribes to topic and waits for the acknowledgement.
	// Received messages arrive as EventPublish.
	Subscribe(ctx context.Context, topic string, qos byte) error

	// Events returns the session's event stream.
	Events() <-chan Event

	// Disconnect closes the connection. It may be called more than once.
	Disconnect(ctx context.Context) error
}

// Factory creates a Client for the given options.
type Factory func(Options) Client

// PahoClient implements Client on top of paho.mqtt.golang.
type PahoClient struct {
	opts   Options
	client pahomqtt.Client
	log    logger.Logger

	events chan Event
	done   chan struct{}
	once   sync.Once

	restoreDebug func()
}

var _ Client = (*PahoClient)(nil)

// New creates an unconnected paho client.
func New(o Options) *PahoClient {
	o = o.withDefaults()
	c := &PahoClient{
		opts:   o,
		log:    o.Logger.With("component", "mqtt", "broker", o.BrokerURL()),
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}

	po := buildClientOptions(o)
	po.SetDefaultPublishHandler(c.handleMessage)
	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.log.Warn("connection lost", "error", err)
		c.emit(Event{Kind: EventConnectionLost, Err: err})
	})
	c.client = pahomqtt.NewClient(po)
	return c
}

// NewFactory returns a Factory producing PahoClients.
func NewFactory() Factory {
	return func(o Options) Client { return New(o) }
}

// Connect implements Client.
func (c *PahoClient) Connect(ctx context.Context) error {
	if c.closed() {
		return ErrClosed
	}
	if c.opts.PingEvents {
		c.restoreDebug = installPingLogger(func(k EventKind) { c.emit(Event{Kind: k}) })
	}

	c.log.Debug("connecting", "client_id", c.opts.ClientID)
	tok := c.client.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	detail := ""
	if ct, ok := tok.(*pahomqtt.ConnectToken); ok {
		detail = fmt.Sprintf("code=%d, session_present=%t", ct.ReturnCode(), ct.SessionPresent())
	}
	c.emit(Event{Kind: EventConnAck, Detail: detail})
	return nil
}

// Publish implements Client. After Disconnect the returned token has
// already failed with ErrClosed.
func (c *PahoClient) Publish(topic string, qos byte, retained bool, payload []byte) Token {
	if c.closed() {
		return failedToken{err: ErrClosed}
	}
	tok := c.client.Publish(topic, qos, retained, payload)
	go func() {
		select {
		case <-tok.Done():
		case <-c.done:
			return
		}
		if err := tok.Error(); err != nil {
			c.emit(Event{Kind: EventPublishFailed, Topic: topic, Err: fmt.Errorf("%w: %w", ErrPublishFailed, err)})
			return
		}
		if qos > 0 {
			detail := ""
			if pt, ok := tok.(*pahomqtt.PublishToken); ok {
				detail = fmt.Sprintf("pkid=%d", pt.MessageID())
			}
			c.emit(Event{Kind: EventPubAck, Topic: topic, Detail: detail})
		}
	}()
	return tok
}

// Subscribe implements Client.
func (c *PahoClient) Subscribe(ctx context.Context, topic string, qos byte) error {
	if c.closed() {
		return ErrClosed
	}
	tok := c.client.Subscribe(topic, qos, c.handleMessage)
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, ctx.Err())
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	detail := ""
	if st, ok := tok.(*pahomqtt.SubscribeToken); ok {
		granted, found := st.Result()[topic]
		if found && granted == 0x80 {
			return fmt.Errorf("%w: broker rejected %s", ErrSubscribeFailed, topic)
		}
		detail = fmt.Sprintf("topic=%s, granted_qos=%d", topic, granted)
	}
	c.emit(Event{Kind: EventSubAck, Topic: topic, Detail: detail})
	return nil
}

// Events implements Client.
func (c *PahoClient) Events() <-chan Event {
	return c.events
}

// Disconnect implements Client.
func (c *PahoClient) Disconnect(ctx context.Context) error {
	c.once.Do(func() {
		close(c.done)
		if c.client.IsConnectionOpen() {
			c.client.Disconnect(defaultDisconnectQuiesce)
		}
		if c.restoreDebug != nil {
			c.restoreDebug()
		}
		c.log.Debug("disconnected")
	})
	return nil
}

func (c *PahoClient) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

type failedToken struct{ err error }

func (failedToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t failedToken) Error() error { return t.err }

func (c *PahoClient) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("message handler panic recovered", "topic", msg.Topic(), "panic", r)
		}
	}()
	c.emit(Event{
		Kind:      EventPublish,
		Topic:     msg.Topic(),
		Payload:   msg.Payload(),
		QoS:       msg.Qos(),
		Retained:  msg.Retained(),
		MessageID: msg.MessageID(),
	})
}

// emit blocks until the event is consumed or the client is disconnected.
func (c *PahoClient) emit(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	select {
	case c.events <- e:
	case <-c.done:
	}
}
