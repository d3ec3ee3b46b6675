package mqttclient

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/yndnr/dsh-go/internal/telemetry/logger"
)

const (
	// DefaultKeepAlive is the keep-alive interval negotiated with the broker.
	DefaultKeepAlive = 5 * time.Second

	defaultConnectTimeout    = 30 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	eventBufferSize          = 64
)

// Options describes one broker connection.
type Options struct {
	Endpoint  string
	Port      uint16
	Websocket bool

	ClientID string
	Username string
	Password string

	TLSConfig      *tls.Config
	KeepAlive      time.Duration
	ConnectTimeout time.Duration

	// PingEvents emits EventPingReq/EventPingResp from paho's debug output.
	PingEvents bool

	Logger logger.Logger
}

// BrokerURL returns the URL paho dials: ssl://host:port for direct TLS,
// wss://host:port/mqtt for websockets.
func (o Options) BrokerURL() string {
	if o.Websocket {
		return fmt.Sprintf("wss://%s:%d/mqtt", o.Endpoint, o.Port)
	}
	return fmt.Sprintf("ssl://%s:%d", o.Endpoint, o.Port)
}

func (o Options) withDefaults() Options {
	if o.KeepAlive == 0 {
		o.KeepAlive = DefaultKeepAlive
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
	if o.TLSConfig == nil {
		o.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return o
}

// buildClientOptions maps Options to paho options. Reconnects and connect
// retries are disabled.
func buildClientOptions(o Options) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(o.BrokerURL())
	opts.SetClientID(o.ClientID)
	opts.SetUsername(o.Username)
	opts.SetPassword(o.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetKeepAlive(o.KeepAlive)
	opts.SetConnectTimeout(o.ConnectTimeout)
	opts.SetTLSConfig(o.TLSConfig)
	return opts
}
