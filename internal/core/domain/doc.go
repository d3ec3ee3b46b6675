// Package domain defines the core domain models for dsh.
//
// Domain models are pure values without IO dependencies:
//
//   - Token: MQTT token with decoded attributes (DecodeToken)
//   - RequestAttributes: inputs of a token acquisition
//   - Topic helpers: stream prefix normalization and publish sanitization
//   - Errors: coded domain errors
package domain
