// Package buildinfo exposes version information injected at build time:
//
//	go build -ldflags "-X github.com/yndnr/dsh-go/internal/infra/buildinfo.Version=v0.4.0"
//
// When nothing is injected, module information embedded by the Go
// toolchain is used.
package buildinfo
