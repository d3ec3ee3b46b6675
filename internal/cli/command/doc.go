// Package command provides the dsh command definitions.
//
// It uses urfave/cli/v2. Commands:
//
//   - tf: fetch one or more MQTT tokens
//   - config: show or change the stored configuration
//   - mc: open an MQTT session, publish once or interactively
//
// The app's Before hook loads settings, sets up logging, the credential
// store and metrics; every command reads them from the app metadata.
package command
