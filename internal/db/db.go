// Package db stores decomposition run history in SQLite.
package db

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/plate.report/internal/timeutil"
)

type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// NewDB opens (or creates) the database at path and applies every pending
// migration. Use ":memory:" for a throwaway store.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive and serialises
	// writers.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// SetClock replaces the clock used to stamp recorded runs.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}
