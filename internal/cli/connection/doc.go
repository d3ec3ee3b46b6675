// Package connection is the HTTPS client for the platform's token
// endpoints:
//
//   - POST /auth/v0/token exchanges an API key for a REST token
//   - POST /datastreams/v0/mqtt/token exchanges a REST token for an MQTT token
package connection
