//go:build cgo && !purego
// +build cgo,!purego

package database

// This file is compiled when building with CGO enabled.
//
// Build command:
//   CGO_ENABLED=1 go build ./...
//
// The mattn driver provides:
//   - Native C SQLite implementation
//   - Best embedded-backend performance
//   - Recommended for production deployments
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// SQLiteDriverName is the SQLite driver to use
	SQLiteDriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
