// Package domain defines the core domain models for dsh.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes have the form DSH-<AREA>-<NNNN>; the numeric part mirrors the
// closest HTTP status.
type DomainError struct {
	Code    string // Error code (e.g., "DSH-TOK-4001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface. The cause, when present, ends the
// message.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on error code so that errors.Is(err, ErrAuthFailure) holds
// for any copy produced by WithDetails or WithCause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Configuration and request errors (CFG, REQ)
// ============================================================================

var (
	// ErrMissingConfiguration indicates a required value was neither given
	// on the command line nor stored in the configuration.
	ErrMissingConfiguration = NewDomainError("DSH-CFG-4001", "missing configuration")

	// ErrStore indicates the secret store or its cache failed.
	ErrStore = NewDomainError("DSH-CFG-5001", "configuration store error")

	// ErrInvalidRequest indicates request attributes violate their invariants.
	ErrInvalidRequest = NewDomainError("DSH-REQ-4000", "invalid request")

	// ErrInvalidClaims indicates the claims argument is not valid JSON.
	ErrInvalidClaims = NewDomainError("DSH-REQ-4001", "invalid claims")
)

// ============================================================================
// Authentication and token errors (AUTH, TOK)
// ============================================================================

var (
	// ErrAuthFailure indicates the platform rejected the API key.
	ErrAuthFailure = NewDomainError("DSH-AUTH-4010", "authentication failed")

	// ErrNoTokensAcquired indicates every MQTT token request failed.
	ErrNoTokensAcquired = NewDomainError("DSH-TOK-5031", "no mqtt tokens acquired")

	// ErrMalformedToken indicates the token has fewer than two segments.
	ErrMalformedToken = NewDomainError("DSH-TOK-4001", "malformed token")

	// ErrTokenDecode indicates the payload segment is not valid base64.
	ErrTokenDecode = NewDomainError("DSH-TOK-4002", "token payload decode failed")

	// ErrTokenSchema indicates the payload is not a valid attribute document.
	ErrTokenSchema = NewDomainError("DSH-TOK-4003", "token payload schema mismatch")
)

// ============================================================================
// Session errors (MQTT, IO)
// ============================================================================

var (
	// ErrInvalidTopic indicates a topic is empty after sanitization.
	ErrInvalidTopic = NewDomainError("DSH-MQTT-4001", "invalid topic")

	// ErrPortNotEntitled indicates the token does not grant the requested port.
	ErrPortNotEntitled = NewDomainError("DSH-MQTT-4031", "port not entitled")

	// ErrTransport indicates the MQTT connection or a publish failed.
	ErrTransport = NewDomainError("DSH-MQTT-5021", "mqtt transport error")

	// ErrIO indicates reading operator input failed.
	ErrIO = NewDomainError("DSH-IO-5001", "input error")
)

// MissingConfiguration returns ErrMissingConfiguration naming the field and
// the command that sets it.
func MissingConfiguration(field string) *DomainError {
	return ErrMissingConfiguration.WithDetails(fmt.Sprintf(
		"no %s provided; pass it as an argument or store it with 'dsh config --%s <value>'",
		field, flagName(field)))
}

// AuthFailure returns ErrAuthFailure carrying the HTTP status and body.
func AuthFailure(status int, body string) *DomainError {
	return ErrAuthFailure.WithDetails(fmt.Sprintf("status %d: %s", status, body))
}

// PortNotEntitled returns ErrPortNotEntitled naming the rejected port.
func PortNotEntitled(port uint16, allowed []uint16) *DomainError {
	return ErrPortNotEntitled.WithDetails(fmt.Sprintf("port %d not in %v", port, allowed))
}

func flagName(field string) string {
	b := []byte(field)
	for i, c := range b {
		if c == '_' {
			b[i] = '-'
		}
	}
	return string(b)
}
