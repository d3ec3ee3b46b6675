// Package secret provides random key material and fingerprints for values
// that must never be printed.
//
// A fingerprint identifies a secret in logs without revealing it: the
// first 12 hex digits of its SHA-256 hash.
package secret
