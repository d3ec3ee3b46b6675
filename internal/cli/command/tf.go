package command

import (
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dsh-go/internal/cli/output"
	"github.com/yndnr/dsh-go/internal/core/domain"
	"github.com/yndnr/dsh-go/internal/core/service"
)

// TokenFetchCommand returns the tf command.
func TokenFetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "tf",
		Usage: "Fetch MQTT tokens",
		Description: `Requests a REST token for the tenant and exchanges it for one or more
MQTT tokens. Values not given as flags are read from the stored
configuration (see 'dsh config').`,
		Flags: append(requestFlags(),
			&cli.StringFlag{
				Name:    "claims",
				Aliases: []string{"c"},
				Usage:   "JSON claims restricting the MQTT token",
			},
			&cli.IntFlag{
				Name:    "token-amount",
				Aliases: []string{"a"},
				Usage:   "number of MQTT tokens to fetch",
				Value:   1,
			},
			&cli.IntFlag{
				Name:    "concurrent-connections",
				Aliases: []string{"n"},
				Usage:   "maximum concurrent MQTT token requests",
				Value:   1,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write tokens to `FILE` instead of stdout",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "output format: raw, table, json, yaml",
				Value: string(output.FormatRaw),
			},
		),
		Action: tokenFetchAction,
	}
}

// requestFlags are the credential flags shared by tf and mc. Each command
// adds its own --claims since mc uses -c for --concise.
func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "tenant",
			Aliases: []string{"t"},
			Usage:   "tenant name",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"k"},
			Usage:   "tenant API key",
		},
		&cli.StringFlag{
			Name:    "domain",
			Aliases: []string{"d"},
			Usage:   "platform domain, e.g. poc.kpn-dsh.com",
		},
	}
}

func requestOverrides(c *cli.Context) service.RequestOverrides {
	return service.RequestOverrides{
		Domain:                c.String("domain"),
		Tenant:                c.String("tenant"),
		APIKey:                c.String("api-key"),
		Claims:                c.String("claims"),
		TokenAmount:           intFlag(c, "token-amount"),
		ConcurrentConnections: intFlag(c, "concurrent-connections"),
	}
}

// intFlag returns the flag's value, including its default.
func intFlag(c *cli.Context, name string) *int {
	v := c.Int(name)
	return &v
}

// fetchTokens resolves the request and runs the fetcher with the
// invocation's metrics, rate limit and progress reporting.
func fetchTokens(c *cli.Context, rt *Runtime, o service.RequestOverrides, progress bool) ([]domain.Token, error) {
	attrs, err := service.ResolveRequestAttributes(c.Context, rt.Provider, o)
	if err != nil {
		return nil, err
	}
	rt.Log.Debug("fetching tokens", "request", attrs)

	client, err := rt.httpClient(attrs.Domain)
	if err != nil {
		return nil, err
	}

	opts := []service.FetcherOption{
		service.WithFetcherMetrics(rt.Metrics),
		service.WithFetcherLogger(rt.Log),
	}
	if rt.Settings.Fetch.Rate > 0 {
		opts = append(opts, service.WithRateLimit(rt.Settings.Fetch.Rate, rt.Settings.Fetch.Burst))
	}
	var bar *output.ProgressBar
	if progress && attrs.TokenAmount > 1 {
		bar = output.NewProgressBar(c.App.ErrWriter, "Fetching tokens", attrs.TokenAmount)
		opts = append(opts, service.WithProgress(bar.Update))
	}

	tokens, err := service.NewTokenFetcher(client, opts...).FetchTokens(c.Context, attrs)
	if bar != nil {
		bar.Finish()
	}
	return tokens, err
}

func tokenFetchAction(c *cli.Context) error {
	rt := runtimeFrom(c)

	format, err := output.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	tokens, err := fetchTokens(c, rt, requestOverrides(c), true)
	if err != nil {
		return err
	}
	if n := c.Int("token-amount"); len(tokens) < n {
		rt.Log.Warn("fewer tokens than requested", "requested", n, "acquired", len(tokens))
	}

	var w io.WriteCloser = nopCloser{c.App.Writer}
	if path := c.String("output"); path != "" {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			return domain.ErrIO.WithDetails("open " + path).WithCause(err)
		}
		w = f
	}

	views := make([]tokenView, len(tokens))
	for i, t := range tokens {
		views[i] = newTokenView(t)
	}
	return writeTokens(w, output.NewFormatter(format), views)
}

// writeTokens formats views to w and closes it. A failed close is reported
// like a failed write.
func writeTokens(w io.WriteCloser, f output.Formatter, views []tokenView) error {
	if err := f.Format(w, views); err != nil {
		_ = w.Close()
		return domain.ErrIO.WithDetails("write tokens").WithCause(err)
	}
	if err := w.Close(); err != nil {
		return domain.ErrIO.WithDetails("close output").WithCause(err)
	}
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// tokenView is the printable form of a token. The raw token is only part
// of the raw format.
type tokenView struct {
	Raw       string    `json:"-" yaml:"-" table:"-"`
	ClientID  string    `json:"client_id" yaml:"client_id" table:"CLIENT ID"`
	Tenant    string    `json:"tenant" yaml:"tenant" table:"TENANT"`
	Endpoint  string    `json:"endpoint" yaml:"endpoint" table:"ENDPOINT"`
	MQTTS     []uint16  `json:"mqtts" yaml:"mqtts" table:"MQTTS"`
	MQTTWSS   []uint16  `json:"mqttwss" yaml:"mqttwss" table:"MQTTWSS"`
	Claims    int       `json:"claims" yaml:"claims" table:"CLAIMS"`
	IssuedAt  time.Time `json:"issued_at" yaml:"issued_at" table:"ISSUED"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at" table:"EXPIRES"`
}

func newTokenView(t domain.Token) tokenView {
	a := t.Attributes
	v := tokenView{
		Raw:       t.Raw,
		ClientID:  a.ClientID,
		Tenant:    a.TenantID,
		Endpoint:  a.Endpoint,
		MQTTS:     a.Ports.MQTTS,
		MQTTWSS:   a.Ports.MQTTWSS,
		Claims:    len(a.Claims),
		ExpiresAt: a.ExpiresAt(),
	}
	if iat, _ := a.GetIssuedAt(); iat != nil {
		v.IssuedAt = iat.UTC()
	}
	return v
}

// RawLine implements output.RawLiner.
func (v tokenView) RawLine() string {
	return v.Raw
}
