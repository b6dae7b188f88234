package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	ErrInvalidName   = errors.New("invalid board name")
	ErrAlreadyExists = errors.New("board already exists")
	ErrBoardNotFound = errors.New("board not found")
	ErrNotFound      = errors.New("not found")
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Store serializes every operation behind a single exclusive section.
// Link callbacks for distinct clients may arrive concurrently and sqlite
// gives no row-level guarantees, so one operation at a time is a
// correctness requirement here, not a tuning knob.
type Store struct {
	mu       sync.Mutex
	database *sql.DB
}

func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	// A single connection keeps the exclusive section meaningful.
	database.SetMaxOpenConns(1)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	for _, pragma := range sqlitePragmas {
		if _, err := database.Exec(pragma); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	return s.database.Close()
}
