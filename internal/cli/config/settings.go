package config

import (
	"fmt"
	"time"
)

// Store backends.
const (
	StoreKeyring = "keyring"
	StoreFile    = "file"
)

// Settings is the CLI configuration.
type Settings struct {
	Log     LogSettings     `koanf:"log" yaml:"log"`
	Store   StoreSettings   `koanf:"store" yaml:"store"`
	HTTP    HTTPSettings    `koanf:"http" yaml:"http"`
	Fetch   FetchSettings   `koanf:"fetch" yaml:"fetch"`
	Metrics MetricsSettings `koanf:"metrics" yaml:"metrics"`
	TLS     TLSSettings     `koanf:"tls" yaml:"tls"`
}

// LogSettings configures the logger.
type LogSettings struct {
	Level  string `koanf:"level" yaml:"level"`   // debug, info, warn, error
	Format string `koanf:"format" yaml:"format"` // text, json
}

// StoreSettings selects where credentials are kept.
type StoreSettings struct {
	Backend string `koanf:"backend" yaml:"backend"`
	// Path of the encrypted file for the file backend.
	Path string `koanf:"path" yaml:"path"`
}

// HTTPSettings configures platform API requests.
type HTTPSettings struct {
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	// BaseURL replaces https://api.<domain>, mainly for testing.
	BaseURL string `koanf:"baseurl" yaml:"baseurl"`
}

// FetchSettings throttles MQTT token requests. Rate 0 means unlimited.
type FetchSettings struct {
	Rate  float64 `koanf:"rate" yaml:"rate"`
	Burst int     `koanf:"burst" yaml:"burst"`
}

// MetricsSettings enables pushing run metrics to a Pushgateway.
type MetricsSettings struct {
	Pushgateway string `koanf:"pushgateway" yaml:"pushgateway"`
	Job         string `koanf:"job" yaml:"job"`
}

// TLSSettings extends the system roots.
type TLSSettings struct {
	CAFile string `koanf:"cafile" yaml:"cafile"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Log: LogSettings{
			Level:  "warn",
			Format: "text",
		},
		Store: StoreSettings{
			Backend: StoreKeyring,
			Path:    DefaultStorePath(),
		},
		HTTP: HTTPSettings{
			Timeout: 30 * time.Second,
		},
		Fetch: FetchSettings{
			Burst: 1,
		},
		Metrics: MetricsSettings{
			Job: "dsh",
		},
	}
}

// Validate checks enumerated and numeric settings.
func (s Settings) Validate() error {
	switch s.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want text or json)", s.Log.Format)
	}
	switch s.Store.Backend {
	case StoreKeyring:
	case StoreFile:
		if s.Store.Path == "" {
			return fmt.Errorf("store.path: required for the file backend")
		}
	default:
		return fmt.Errorf("store.backend: unknown backend %q (want keyring or file)", s.Store.Backend)
	}
	if s.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout: must not be negative")
	}
	if s.Fetch.Rate < 0 {
		return fmt.Errorf("fetch.rate: must not be negative")
	}
	return nil
}
