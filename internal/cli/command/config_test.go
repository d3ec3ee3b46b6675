package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/yndnr/dsh-go/internal/core/domain"
)

func TestConfig_ShowDefaults(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("config")
	for _, want := range []string{"tenant:    <not set>", "domain:    poc.kpn-dsh.com", "port:      8883", "websocket: false"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfig_SetAndShow(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("config", "--tenant", testTenant, "--api-key", testAPIKey, "--port", "443", "--websocket", "true")
	for _, want := range []string{"tenant updated", "api_key updated", "port updated", "websocket updated"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, testAPIKey) {
		t.Errorf("setting values should not print the api key:\n%s", out)
	}

	cfg := env.storedConfig()
	if cfg.Tenant != testTenant || cfg.APIKey != testAPIKey || cfg.Port != 443 || !cfg.Websocket {
		t.Errorf("stored = %+v", cfg)
	}
	if cfg.Domain != "poc.kpn-dsh.com" {
		t.Errorf("domain = %q, want default kept", cfg.Domain)
	}

	out = env.mustRun("config")
	if strings.Contains(out, testAPIKey) {
		t.Errorf("masked output contains the api key:\n%s", out)
	}
	if !strings.Contains(out, "***************1234") {
		t.Errorf("masked output should keep the last four characters:\n%s", out)
	}

	out = env.mustRun("config", "--show-all")
	if !strings.Contains(out, "api_key:   "+testAPIKey) {
		t.Errorf("--show-all should print the api key:\n%s", out)
	}
}

func TestConfig_InvalidValues(t *testing.T) {
	env := newTestEnv(t)

	for _, args := range [][]string{
		{"config", "--port", "99999"},
		{"config", "--port", "abc"},
		{"config", "--websocket", "maybe"},
	} {
		_, _, err := env.run(args...)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("%v: error = %v, want ErrInvalidRequest", args, err)
		}
	}
}

func TestConfig_InvalidValueSavesNothing(t *testing.T) {
	env := newTestEnv(t)

	if _, _, err := env.run("config", "--tenant", testTenant, "--port", "abc"); err == nil {
		t.Fatal("expected an error")
	}
	out := env.mustRun("config")
	if !strings.Contains(out, "tenant:    <not set>") {
		t.Errorf("tenant should not be saved when another value is invalid:\n%s", out)
	}
}

func TestConfig_CleanSecretStore(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("config", "--tenant", testTenant, "--api-key", testAPIKey)

	out := env.mustRun("config", "--clean-secret-store")
	if !strings.Contains(out, "Secret store cleaned") {
		t.Errorf("output = %q", out)
	}

	out = env.mustRun("config")
	if !strings.Contains(out, "tenant:    <not set>") || !strings.Contains(out, "api_key:   <not set>") {
		t.Errorf("configuration should be empty after cleaning:\n%s", out)
	}
}
