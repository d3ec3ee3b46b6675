package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/yndnr/dsh-go/pkg/crypto/envelope"
	"github.com/yndnr/dsh-go/pkg/secret"
)

// fileMagic starts every encrypted configuration file.
var fileMagic = []byte("DSHC1")

const keyLength = envelope.KeySize

// FileBackend stores the configuration in an encrypted file. The key lives
// next to it in <path>.key with mode 0600 and is created on first save.
type FileBackend struct {
	path    string
	keyPath string
}

// NewFileBackend creates a backend storing the configuration at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, keyPath: path + ".key"}
}

// Name implements Backend.
func (b *FileBackend) Name() string { return "file" }

// Path returns the location of the encrypted configuration.
func (b *FileBackend) Path() string { return b.path }

// Load implements Backend.
func (b *FileBackend) Load(ctx context.Context) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, ErrNotStored
	}
	if err != nil {
		return Config{}, err
	}

	key, err := os.ReadFile(b.keyPath)
	if err != nil {
		return Config{}, fmt.Errorf("read key file: %w", err)
	}

	plaintext, _, err := envelope.Open(fileMagic, key, data)
	if err != nil {
		return Config{}, err
	}
	return decodeConfig(plaintext)
}

// Save implements Backend.
func (b *FileBackend) Save(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return err
	}

	key, err := b.loadOrCreateKey()
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	sealed, err := envelope.Seal(fileMagic, key, plaintext)
	if err != nil {
		return err
	}
	return writeFileAtomic(b.path, sealed)
}

// Clear implements Backend. The key file is kept.
func (b *FileBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (b *FileBackend) loadOrCreateKey() ([]byte, error) {
	key, err := os.ReadFile(b.keyPath)
	if err == nil {
		if len(key) != keyLength {
			return nil, fmt.Errorf("key file %s: expected %d bytes, got %d", b.keyPath, keyLength, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	key, err = secret.Bytes(keyLength)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := writeFileAtomic(b.keyPath, key); err != nil {
		return nil, err
	}
	return key, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
