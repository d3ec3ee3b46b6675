// Package metric holds the Prometheus metrics of a dsh invocation.
//
// A CLI run is short-lived, so nothing is scraped. Metrics are collected in
// a private registry and, when a Pushgateway URL is configured, pushed once
// before the process exits.
package metric
