// Package repl relays operator input into an interactive MQTT session.
//
// A Relay reads standard input one line at a time on the calling goroutine
// and hands every line to a callback, which publishes it. The loop ends on
// the literal line "exit" or when input is closed. Reads block; the
// session's receive loop runs on its own goroutine and never waits for
// the relay.
package repl
