// Package storage persists the dsh configuration (tenant, API key, domain,
// port, websocket preference) in a secret store.
//
// Two backends are provided:
//
//   - KeyringBackend: the OS secret store (macOS Keychain, Secret Service,
//     Windows Credential Manager)
//   - FileBackend: an AEAD-encrypted file for hosts without a keyring
//
// Provider wraps a backend with a read-through cache guarded by a single
// mutex. The cache is dropped on every write and whenever the file backend
// changes on disk.
package storage
