package command

import (
	"context"
	"fmt"
	"math"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dsh-go/internal/core/domain"
	"github.com/yndnr/dsh-go/internal/core/service"
)

// MQTTClientCommand returns the mc command.
func MQTTClientCommand() *cli.Command {
	return &cli.Command{
		Name:  "mc",
		Usage: "Run an MQTT session",
		Description: `Fetches one MQTT token and connects to the broker it names.

With --message the message is published once and the command exits when
the broker acknowledges it. Otherwise the topic is subscribed, received
messages are printed and every line read from stdin is published; type
'exit' to end the session.`,
		Flags: append(requestFlags(),
			&cli.StringFlag{
				Name:     "topic",
				Usage:    "topic below the stream prefix, e.g. ajuc/#",
				Required: true,
			},
			&cli.UintFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "broker port (default: stored configuration)",
			},
			&cli.StringFlag{
				Name:  "claims",
				Usage: "JSON claims restricting the MQTT token",
			},
			&cli.StringFlag{
				Name:  "client-id",
				Usage: "override the client id issued with the token",
			},
			&cli.StringFlag{
				Name:    "message",
				Aliases: []string{"m"},
				Usage:   "publish this message once and exit",
			},
			&cli.BoolFlag{
				Name:    "websocket",
				Aliases: []string{"w"},
				Usage:   "connect over websocket",
			},
			&cli.BoolFlag{
				Name:    "verbose-heartbeat",
				Aliases: []string{"v"},
				Usage:   "show keep-alive pings",
			},
			&cli.BoolFlag{
				Name:    "concise",
				Aliases: []string{"c"},
				Usage:   "print received messages as 'topic > payload'",
			},
		),
		Action: mqttClientAction,
	}
}

func mqttClientAction(c *cli.Context) error {
	rt := runtimeFrom(c)

	port := c.Uint("port")
	if port > math.MaxUint16 {
		return domain.ErrInvalidRequest.WithDetails(fmt.Sprintf("invalid port %d", port))
	}
	conn, err := service.ResolveConnection(c.Context, rt.Provider, service.ConnectionOverrides{
		Port:      uint16(port),
		Websocket: c.Bool("websocket"),
	})
	if err != nil {
		return err
	}

	tokens, err := fetchTokens(c, rt, service.RequestOverrides{
		Domain: c.String("domain"),
		Tenant: c.String("tenant"),
		APIKey: c.String("api-key"),
		Claims: c.String("claims"),
	}, false)
	if err != nil {
		return err
	}
	token := tokens[0]
	if id := c.String("client-id"); id != "" {
		token.Attributes.ClientID = id
	}

	opts := service.SessionOptions{
		Topic:     c.String("topic"),
		Transport: conn.Transport,
		Port:      conn.Port,
		Verbose:   c.Bool("verbose-heartbeat"),
		Concise:   c.Bool("concise"),
	}
	if c.IsSet("message") {
		msg := c.String("message")
		opts.Message = &msg
	}

	tlsCfg, err := rt.tlsConfig(token.Attributes.Endpoint)
	if err != nil {
		return err
	}
	session, err := service.NewSession(token, opts,
		service.WithClientFactory(rt.mqttFactory),
		service.WithTLSConfig(tlsCfg),
		service.WithInput(rt.input),
		service.WithOutput(c.App.Writer),
		service.WithSessionLogger(rt.Log),
		service.WithSessionMetrics(rt.Metrics),
	)
	if err != nil {
		return err
	}
	rt.Shutdown.OnShutdown(func(ctx context.Context) error {
		return session.Close(ctx)
	})

	rt.Log.Info("starting session",
		"broker", session.BrokerURL(),
		"port", conn.Port,
		"transport", conn.Transport,
		"topic", session.Topic(),
		"client_id", token.Attributes.ClientID,
	)
	return session.Run(c.Context)
}
