package journal

import "database/sql"

// SetOpenDB swaps the sql.Open seam and returns a restore func.
// This file only compiles during `go test`.
func SetOpenDB(fn func(driver, dsn string) (*sql.DB, error)) (restore func()) {
	prev := openDB
	openDB = fn
	return func() { openDB = prev }
}
