// Package sqlite opens SQLite databases through one of two drivers:
//
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): github.com/mattn/go-sqlite3
//
// Use Open() instead of sql.Open() so the driver name and connection
// settings match the build.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// BusyTimeout is how long a connection waits on a locked database.
const BusyTimeout = 5 * time.Second

// DriverName returns the SQL driver name of the build.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for
// modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens the database at path. Connections are limited to one so
// writers never contend for the file lock.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", BusyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return db, nil
}

// OpenReadOnly opens an existing database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return Open(readOnlyDSN(path))
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
