package command

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/yndnr/dsh-go/internal/cli/output"
	"github.com/yndnr/dsh-go/internal/core/domain"
)

func TestTokenFetch_Raw(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("tf", "-t", testTenant, "-k", testAPIKey, "-a", "3", "-n", "2")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	seen := make(map[string]bool)
	for _, line := range lines {
		tok, err := domain.DecodeToken(line)
		if err != nil {
			t.Fatalf("line %q is not a token: %v", line, err)
		}
		seen[tok.Attributes.ClientID] = true
	}
	if len(seen) != 3 {
		t.Errorf("client ids = %v, want 3 distinct", seen)
	}
	if got := env.platform.mqttRequests.Load(); got != 3 {
		t.Errorf("mqtt token requests = %d, want 3", got)
	}
}

func TestTokenFetch_ProgressOnStderr(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, err := env.run("tf", "-t", testTenant, "-k", testAPIKey, "-a", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "Fetching tokens") || !strings.Contains(stderr, "(2/2)") {
		t.Errorf("stderr = %q, want progress bar", stderr)
	}

	_, stderr, err = env.run("tf", "-t", testTenant, "-k", testAPIKey)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(stderr, "Fetching tokens") {
		t.Errorf("a single token should not show progress: %q", stderr)
	}
}

func TestTokenFetch_StoredConfiguration(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("config", "--tenant", testTenant, "--api-key", testAPIKey)

	out := env.mustRun("tf")
	if _, err := domain.DecodeToken(strings.TrimSpace(out)); err != nil {
		t.Errorf("output %q is not a token: %v", out, err)
	}
}

func TestTokenFetch_FlagsOverrideStoredConfiguration(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("config", "--tenant", testTenant, "--api-key", "wrong")

	_, _, err := env.run("tf")
	if !errors.Is(err, domain.ErrAuthFailure) {
		t.Fatalf("error = %v, want ErrAuthFailure with the stored key", err)
	}
	env.mustRun("tf", "-k", testAPIKey)
}

func TestTokenFetch_MissingConfiguration(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("tf", "-k", testAPIKey)
	if !errors.Is(err, domain.ErrMissingConfiguration) {
		t.Fatalf("error = %v, want ErrMissingConfiguration", err)
	}
	if !strings.Contains(err.Error(), "tenant") {
		t.Errorf("error %q should name the tenant", err)
	}
	if got := env.platform.mqttRequests.Load(); got != 0 {
		t.Errorf("mqtt token requests = %d, want none", got)
	}
}

func TestTokenFetch_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"claims", []string{"-c", "{not json"}, domain.ErrInvalidClaims},
		{"amount", []string{"-a", "-1"}, domain.ErrInvalidRequest},
		{"zero amount", []string{"-a", "0"}, domain.ErrInvalidRequest},
		{"concurrency", []string{"-n", "-2"}, domain.ErrInvalidRequest},
		{"zero concurrency", []string{"-n", "0"}, domain.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"tf", "-t", testTenant, "-k", testAPIKey}, tt.args...)
			_, _, err := env.run(args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	_, _, err := env.run("tf", "-t", testTenant, "-k", testAPIKey, "--format", "xml")
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Errorf("error = %v, want unknown format", err)
	}
}

func TestTokenFetch_Claims(t *testing.T) {
	env := newTestEnv(t)
	claims := `[{"action":"subscribe","resource":{"stream":"ajucpublic","prefix":"/tt","topic":"ajuc/#","type":"topic"}}]`

	env.mustRun("tf", "-t", testTenant, "-k", testAPIKey, "-c", claims)
	if got := env.platform.LastClaims(); got != claims {
		t.Errorf("claims sent = %s, want %s", got, claims)
	}
}

func TestTokenFetch_OutputFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "tokens.txt")

	out := env.mustRun("tf", "-t", testTenant, "-k", testAPIKey, "-a", "2", "-o", path)
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 2 {
		t.Errorf("file has %d lines, want 2", len(lines))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %v, want 0600", perm)
	}
}

type failingCloser struct {
	strings.Builder
	err error
}

func (f *failingCloser) Close() error { return f.err }

func TestWriteTokens_CloseError(t *testing.T) {
	closeErr := errors.New("disk full")
	w := &failingCloser{err: closeErr}

	err := writeTokens(w, output.NewFormatter(output.FormatRaw), []tokenView{{Raw: rawToken(1)}})
	if !errors.Is(err, domain.ErrIO) || !errors.Is(err, closeErr) {
		t.Fatalf("error = %v, want ErrIO wrapping the close error", err)
	}
	if !strings.Contains(w.String(), rawToken(1)) {
		t.Errorf("token not written before close: %q", w.String())
	}
}

func TestTokenFetch_JSON(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("tf", "-t", testTenant, "-k", testAPIKey, "--format", "json")

	var views []map[string]any
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(views) != 1 {
		t.Fatalf("got %d tokens, want 1", len(views))
	}
	v := views[0]
	if v["client_id"] != "client-1" || v["endpoint"] != testEndpoint || v["tenant"] != testTenant {
		t.Errorf("view = %v", v)
	}
	if v["expires_at"] != "2022-10-20T16:41:44Z" {
		t.Errorf("expires_at = %v", v["expires_at"])
	}
	if strings.Contains(out, "eyJhbGciOiJIUzI1NiJ9") {
		t.Errorf("json output should not contain the raw token:\n%s", out)
	}
}

func TestTokenFetch_Table(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("tf", "-t", testTenant, "-k", testAPIKey, "--format", "table")
	for _, want := range []string{"CLIENT ID", "ENDPOINT", "client-1", "8883", "443,8443"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
