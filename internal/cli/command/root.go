package command

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dsh-go/internal/cli/config"
	"github.com/yndnr/dsh-go/internal/cli/connection"
	"github.com/yndnr/dsh-go/internal/infra/buildinfo"
	"github.com/yndnr/dsh-go/internal/infra/confloader"
	"github.com/yndnr/dsh-go/internal/infra/mqttclient"
	"github.com/yndnr/dsh-go/internal/infra/shutdown"
	"github.com/yndnr/dsh-go/internal/infra/tlsroots"
	"github.com/yndnr/dsh-go/internal/storage"
	"github.com/yndnr/dsh-go/internal/telemetry/logger"
	"github.com/yndnr/dsh-go/internal/telemetry/metric"
)

const (
	runtimeKey      = "runtime"
	shutdownTimeout = 2 * time.Second
	pushTimeout     = 5 * time.Second
)

// Runtime is the state shared by all commands of one invocation.
type Runtime struct {
	Settings config.Settings
	Provider *storage.Provider
	Metrics  *metric.Registry
	Log      logger.Logger
	RunID    string
	Shutdown *shutdown.Handler

	backend     storage.Backend
	input       io.Reader
	mqttFactory mqttclient.Factory
	exit        func(int)

	watcher    *confloader.Watcher
	stopSignal context.CancelFunc
}

// Option customizes the app, mainly for tests.
type Option func(*Runtime)

// WithBackend replaces the credential store selected by settings.
func WithBackend(b storage.Backend) Option {
	return func(r *Runtime) {
		r.backend = b
	}
}

// WithInput replaces stdin for interactive sessions.
func WithInput(in io.Reader) Option {
	return func(r *Runtime) {
		r.input = in
	}
}

// WithMQTTFactory replaces the paho client factory.
func WithMQTTFactory(f mqttclient.Factory) Option {
	return func(r *Runtime) {
		r.mqttFactory = f
	}
}

// WithExit replaces os.Exit after a signal.
func WithExit(exit func(int)) Option {
	return func(r *Runtime) {
		r.exit = exit
	}
}

// App creates the CLI application.
func App(opts ...Option) *cli.App {
	rt := &Runtime{
		input:       os.Stdin,
		mqttFactory: mqttclient.NewFactory(),
		exit:        os.Exit,
	}
	for _, opt := range opts {
		opt(rt)
	}

	return &cli.App{
		Name:    "dsh",
		Usage:   "Fetch platform MQTT tokens and run MQTT sessions",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			TokenFetchCommand(),
			ConfigCommand(),
			MQTTClientCommand(),
		},
		Metadata: map[string]any{runtimeKey: rt},
		Before: func(c *cli.Context) error {
			return rt.init(c)
		},
		After: func(c *cli.Context) error {
			rt.close(c.Context)
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "settings file (default ~/.dsh/cli.yaml)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "log format: text, json",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "credential store: keyring, file",
		},
	}
}

// settingsOverrides maps global flags to settings keys.
func settingsOverrides(c *cli.Context) config.Overrides {
	o := config.Overrides{}
	for flag, key := range map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
		"store":      "store.backend",
	} {
		if c.IsSet(flag) {
			o.Set(key, c.String(flag))
		}
	}
	return o
}

func (r *Runtime) init(c *cli.Context) error {
	settings, err := config.Load(c.String("config"), settingsOverrides(c))
	if err != nil {
		return err
	}
	r.Settings = settings

	r.Log = logger.New(logger.Config{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		Output: c.App.ErrWriter,
	})
	logger.SetDefault(r.Log)
	r.RunID = logger.NewRunID()
	r.Metrics = metric.NewRegistry()

	backend := r.backend
	if backend == nil {
		backend, err = r.openBackend()
		if err != nil {
			return err
		}
	}
	r.Provider = storage.NewProvider(backend, storage.WithProviderLogger(r.Log))
	if err := r.watchBackend(backend); err != nil {
		r.Log.Warn("configuration file changes will not be noticed", "error", err)
	}

	r.Shutdown = shutdown.NewHandler(shutdownTimeout, shutdown.WithExit(r.exit))
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx := logger.WithRunID(logger.WithLogger(parent, r.Log), r.RunID)
	c.Context, r.stopSignal = r.Shutdown.Watch(ctx)

	r.Log.Debug("starting", "version", buildinfo.String(), "store", backend.Name(), "run_id", r.RunID)
	return nil
}

func (r *Runtime) openBackend() (storage.Backend, error) {
	switch r.Settings.Store.Backend {
	case config.StoreFile:
		return storage.NewFileBackend(r.Settings.Store.Path), nil
	case config.StoreKeyring, "":
		return storage.NewKeyringBackend(), nil
	}
	return nil, errors.New("unknown credential store " + r.Settings.Store.Backend)
}

// watchBackend drops the cached configuration when another dsh process
// rewrites the encrypted file.
func (r *Runtime) watchBackend(backend storage.Backend) error {
	fb, ok := backend.(*storage.FileBackend)
	if !ok {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(fb.Path()), 0o700); err != nil {
		return err
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(r.Log))
	if err != nil {
		return err
	}
	if err := r.Provider.WatchFile(w); err != nil {
		_ = w.Stop()
		return err
	}
	w.StartAsync()
	r.watcher = w
	return nil
}

func (r *Runtime) close(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.Metrics != nil && r.Settings.Metrics.Pushgateway != "" {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		err := r.Metrics.Push(pctx, r.Settings.Metrics.Pushgateway, r.Settings.Metrics.Job, r.RunID)
		cancel()
		if err != nil {
			r.Log.Warn("pushing metrics failed", "url", r.Settings.Metrics.Pushgateway, "error", err)
		}
	}
	if r.watcher != nil {
		_ = r.watcher.Stop()
	}
	if r.stopSignal != nil {
		r.stopSignal()
	}
}

// tlsConfig returns the TLS client configuration for serverName, trusting
// the system roots plus tls.cafile.
func (r *Runtime) tlsConfig(serverName string) (*tls.Config, error) {
	pool, err := tlsroots.Load(r.Settings.TLS.CAFile)
	if err != nil {
		return nil, err
	}
	return pool.TLSConfig(serverName), nil
}

// httpClient returns the platform client for domain.
func (r *Runtime) httpClient(domain string) (*connection.HTTPClient, error) {
	tlsCfg, err := r.tlsConfig("")
	if err != nil {
		return nil, err
	}
	return connection.NewHTTPClient(domain,
		connection.WithBaseURL(r.Settings.HTTP.BaseURL),
		connection.WithTimeout(r.Settings.HTTP.Timeout),
		connection.WithTLSConfig(tlsCfg),
	), nil
}

// runtimeFrom retrieves the invocation state from the app metadata.
func runtimeFrom(c *cli.Context) *Runtime {
	rt, _ := c.App.Metadata[runtimeKey].(*Runtime)
	return rt
}
