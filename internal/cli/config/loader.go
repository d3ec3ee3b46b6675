package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/dsh-go/internal/infra/confloader"
)

// Dir returns the dsh configuration directory, ~/.dsh.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".dsh"
	}
	return filepath.Join(homeDir, ".dsh")
}

// DefaultConfigPath returns the default CLI settings file path.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "cli.yaml")
}

// DefaultStorePath returns the default location of the encrypted
// credentials file.
func DefaultStorePath() string {
	return filepath.Join(Dir(), "config.enc")
}

// Overrides holds flag values by dotted key.
type Overrides map[string]any

// Set records value under a dotted key such as "log.level".
func (o Overrides) Set(key string, value any) {
	o[key] = value
}

// nested turns dotted keys into the nested map koanf expects.
func (o Overrides) nested() map[string]any {
	out := make(map[string]any)
	for key, value := range o {
		parts := strings.Split(key, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[p] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = value
	}
	return out
}

// Load reads settings from path, the DSH_* environment and overrides.
// An empty path selects DefaultConfigPath, which may be missing; an
// explicit path must exist.
func Load(path string, overrides Overrides) (Settings, error) {
	optional := path == ""
	if optional {
		path = DefaultConfigPath()
	}

	s := Default()
	loader := confloader.NewLoader(confloader.WithConfigFile(path, optional))
	if err := loader.Load(&s); err != nil {
		return Settings{}, err
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides.nested()); err != nil {
			return Settings{}, err
		}
		if err := loader.Unmarshal(&s); err != nil {
			return Settings{}, err
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
