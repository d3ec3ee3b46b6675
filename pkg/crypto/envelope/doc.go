// Package envelope seals small secrets at rest.
//
// Seal picks the AEAD cipher that is fast on the host: AES-256-GCM on
// amd64 and arm64, where Go uses the CPU's AES instructions, and
// ChaCha20-Poly1305 elsewhere. The cipher is named in the sealed blob, so
// a file written on one machine opens on any other.
//
// Layout:
//
//	magic | n (1 byte) | algorithm name (n bytes) | nonce | ciphertext+tag
//
// Everything before the nonce is authenticated as additional data.
package envelope
