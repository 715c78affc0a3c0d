//go:build cgo

package store

import (
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const driverName = "sqlite3"

func dsn(path string) string {
	return path + "?_journal=WAL&_busy_timeout=5000"
}
