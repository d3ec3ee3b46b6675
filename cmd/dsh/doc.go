// Package main provides the entry point for dsh.
//
// dsh fetches MQTT tokens from the platform and runs MQTT sessions with
// them:
//
//   - tf fetches one or more tokens
//   - config shows or stores tenant, API key, domain, port and websocket
//   - mc publishes a message once or runs an interactive session
//
// Usage:
//
//	dsh config --tenant ajuc --api-key <key>
//	dsh tf --token-amount 5 --concurrent-connections 2
//	dsh mc --topic ajuc/# --concise
//	dsh mc --topic ajuc/test --message hello
package main
