//go:build !cgo

package store

import (
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const driverName = "sqlite"

func dsn(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
