//go:build tools

// Package tools lists development tools that are run with `go run` and not compiled into
// the binaries.
package tools

// mockgen regenerates internal/mocks:
//   go generate ./internal/mocks
//   Pinned: go.uber.org/mock/mockgen@v0.6.0 (matches the go.uber.org/mock require)
//
// golangci-lint honours the //nolint directives in cmd/ and internal/bootstrap:
//   go run github.com/golangci/golangci-lint/cmd/golangci-lint@v1.64.8 run ./...
