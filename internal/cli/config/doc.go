// Package config holds the non-secret preferences of the dsh CLI.
//
// Settings are layered, later sources winning:
//
//	defaults < ~/.dsh/cli.yaml < DSH_* environment < command-line flags
//
// Credentials (tenant, API key) never live here; they are kept by the
// storage package in the OS keyring or an encrypted file.
package config
