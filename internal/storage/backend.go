package storage

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/zalando/go-keyring"
)

// ErrNotStored is returned by a Backend when no configuration has been saved.
var ErrNotStored = errors.New("storage: no configuration stored")

// Keyring identifiers.
const (
	KeyringService = "dsh"
	KeyringUser    = "dsh_config"
)

// Backend persists a serialized Config.
type Backend interface {
	// Load returns the stored configuration or ErrNotStored.
	Load(ctx context.Context) (Config, error)

	// Save replaces the stored configuration.
	Save(ctx context.Context, cfg Config) error

	// Clear removes the stored configuration. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Name identifies the backend in logs.
	Name() string
}

// KeyringBackend stores the configuration as a JSON secret in the OS keyring.
type KeyringBackend struct {
	service string
	user    string
}

// NewKeyringBackend creates a backend using the default service and key.
func NewKeyringBackend() *KeyringBackend {
	return &KeyringBackend{service: KeyringService, user: KeyringUser}
}

// Name implements Backend.
func (b *KeyringBackend) Name() string { return "keyring" }

// Load implements Backend.
func (b *KeyringBackend) Load(ctx context.Context) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}
	secret, err := keyring.Get(b.service, b.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return Config{}, ErrNotStored
	}
	if err != nil {
		return Config{}, err
	}
	return decodeConfig([]byte(secret))
}

// Save implements Backend.
func (b *KeyringBackend) Save(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return keyring.Set(b.service, b.user, string(data))
}

// Clear implements Backend.
func (b *KeyringBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := keyring.Delete(b.service, b.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// decodeConfig fills missing fields from DefaultConfig.
func decodeConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
