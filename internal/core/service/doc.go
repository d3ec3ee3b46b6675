// Package service implements token acquisition and MQTT sessions for dsh.
//
// This package contains:
//
//   - ResolveRequestAttributes / ResolveConnection: merge explicit values
//     with the stored configuration
//   - TokenFetcher: REST token, then a bounded fan-out of MQTT token requests
//   - Session: port entitlement check, then a publish-once or interactive
//     publish/subscribe session over one MQTT token
//
// Collaborators (configuration, HTTP client, MQTT client) are injected
// through small interfaces so tests can replace them.
package service
