package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sortableLayout is RFC3339 with fixed-width nanoseconds so stored values order as strings
const sortableLayout = "2006-01-02T15:04:05.000000000Z07:00"

// TimeToString converts a time.Time to a UTC string for database storage
func TimeToString(t time.Time) string {
	return t.UTC().Format(sortableLayout)
}

// StringToTime converts an RFC3339Nano string from database to time.Time
func StringToTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Open opens the SQLite database at path
func Open(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// an in-memory database only lives as long as its connection
	database.SetMaxOpenConns(1)

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	return database, nil
}

// NewInMemoryDB creates a new in-memory SQLite database for testing
func NewInMemoryDB() (*sql.DB, error) {
	return Open(":memory:")
}
