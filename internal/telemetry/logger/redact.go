package logger

import (
	"log/slog"
	"strings"
)

// Key fragments marking an attribute as secret.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
	"bearer",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if IsSensitiveValue(v) {
			return slog.String(a.Key, RedactString(v))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// RedactString hides JWT payloads and bearer credentials, keeping a short
// prefix so that log lines stay correlatable.
func RedactString(v string) string {
	switch {
	case strings.HasPrefix(v, "Bearer "):
		return "Bearer " + redactedValue
	case looksLikeJWT(v):
		return v[:6] + "..." + redactedValue
	}
	return v
}

// IsSensitiveKey reports whether an attribute key names a secret.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, p := range sensitiveKeyPatterns {
		if strings.Contains(k, p) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether a value looks like a credential.
func IsSensitiveValue(v string) bool {
	return strings.HasPrefix(v, "Bearer ") || looksLikeJWT(v)
}

// looksLikeJWT matches base64url JSON headers: "eyJ" followed by at least
// two dots.
func looksLikeJWT(v string) bool {
	return len(v) > 10 && strings.HasPrefix(v, "eyJ") && strings.Count(v, ".") >= 2
}
