//go:build purego || !cgo
// +build purego !cgo

package database

// This file is compiled when building without CGO or with the purego tag.
//
// Build command:
//   CGO_ENABLED=0 go build -tags "purego" ./...
//
// The pure Go implementation provides:
//   - No C compiler required
//   - Cross-platform compilation
//   - Suitable for development and CI
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// SQLiteDriverName is the SQLite driver to use
	SQLiteDriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
