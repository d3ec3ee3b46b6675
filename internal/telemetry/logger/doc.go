// Package logger provides structured logging for dsh.
//
// Log output goes to stderr so that tokens and received messages on stdout
// stay machine-readable. Attributes whose key looks sensitive, and values
// shaped like bearer tokens or JWTs, are redacted before they are written.
package logger
