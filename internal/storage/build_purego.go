//go:build purego || !cgo
// +build purego !cgo

package storage

// Compiled without CGO. Uses the pure Go SQLite implementation so the
// binary cross-compiles without a C toolchain.
//
// Build command:
//   CGO_ENABLED=0 go build -tags purego ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
