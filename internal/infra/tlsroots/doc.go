// Package tlsroots builds the TLS client configuration used for platform
// HTTPS calls and MQTT broker connections: the OS root pool, optionally
// extended with a PEM bundle for intercepting proxies.
package tlsroots
