package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringBackend(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	b := NewKeyringBackend()

	if _, err := b.Load(ctx); !errors.Is(err, ErrNotStored) {
		t.Fatalf("Load() on empty keyring error = %v, want ErrNotStored", err)
	}

	want := Config{Tenant: "ajuc", APIKey: "key", Domain: "example.com", Port: 443, Websocket: true}
	if err := b.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := b.Clear(ctx); err != nil {
		t.Errorf("Clear() on empty keyring error = %v", err)
	}
	if _, err := b.Load(ctx); !errors.Is(err, ErrNotStored) {
		t.Errorf("Load() after Clear error = %v", err)
	}
}

func TestDecodeConfig_FillsDefaults(t *testing.T) {
	cfg, err := decodeConfig([]byte(`{"tenant":"ajuc"}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tenant != "ajuc" || cfg.Domain != DefaultDomain || cfg.Port != DefaultPort {
		t.Errorf("decodeConfig() = %+v", cfg)
	}
}

func TestFileBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dsh", "config.enc")
	b := NewFileBackend(path)

	if _, err := b.Load(ctx); !errors.Is(err, ErrNotStored) {
		t.Fatalf("Load() on missing file error = %v, want ErrNotStored", err)
	}

	want := Config{Tenant: "ajuc", APIKey: "supersecretkey", Domain: "poc.kpn-dsh.com", Port: 8883}
	if err := b.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if containsBytes(raw, []byte("supersecretkey")) {
		t.Error("configuration file should not contain the plaintext api key")
	}

	info, err := os.Stat(path + ".key")
	if err != nil {
		t.Fatalf("key file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key file mode = %o, want 600", perm)
	}

	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := b.Load(ctx); !errors.Is(err, ErrNotStored) {
		t.Errorf("Load() after Clear error = %v", err)
	}
}

func TestFileBackend_Corrupted(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.enc")
	b := NewFileBackend(path)

	if err := b.Save(ctx, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	raw, _ := os.ReadFile(path)
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Load(ctx); err == nil {
		t.Error("Load() should fail on tampered ciphertext")
	}

	if err := os.WriteFile(path, []byte("plain text"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Load(ctx); err == nil {
		t.Error("Load() should fail on a file without header")
	}
}

func containsBytes(haystack, needle []byte) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return true
		}
	}
	return false
}
