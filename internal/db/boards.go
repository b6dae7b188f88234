package db

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
)

var boardNameRe = regexp.MustCompile(`^[a-zA-Z0-9]{3,20}$`)

// ValidBoardName reports whether name is alphanumeric and 3-20 characters.
func ValidBoardName(name string) bool {
	return boardNameRe.MatchString(name)
}

func (s *Store) CreateBoard(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if !ValidBoardName(name) {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.database.ExecContext(ctx, `INSERT INTO boards (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueConstraint(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// DeleteBoard removes the board and, by cascade, its messages, read
// markers and watch subscriptions.
func (s *Store) DeleteBoard(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.database.ExecContext(ctx, `DELETE FROM boards WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBoardNotFound
	}
	return nil
}

func (s *Store) BoardExists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.database.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM boards WHERE name = ?`, name,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListBoards(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.database.QueryContext(ctx, `SELECT name FROM boards ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Watch adds a board to the user's watchlist. Watching an already
// watched board is a no-op.
func (s *Store) Watch(ctx context.Context, userHash, board string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, err := s.boardID(ctx, board)
	if err != nil {
		return err
	}
	_, err = s.database.ExecContext(ctx, `
INSERT OR IGNORE INTO watched_boards (user_hash, board_id)
VALUES (?, ?)`, userHash, boardID)
	return err
}

// Unwatch removes a board from the user's watchlist. Unwatching a board
// that is not watched is a no-op, not an error.
func (s *Store) Unwatch(ctx context.Context, userHash, board string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, err := s.boardID(ctx, board)
	if err != nil {
		return err
	}
	_, err = s.database.ExecContext(ctx, `
DELETE FROM watched_boards WHERE user_hash = ? AND board_id = ?`, userHash, boardID)
	return err
}

func (s *Store) Watchlist(ctx context.Context, userHash string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.database.QueryContext(ctx, `
SELECT b.name
FROM boards b
JOIN watched_boards w ON b.id = w.board_id
WHERE w.user_hash = ?
ORDER BY b.name ASC`, userHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ListWatchers returns the identity hashes subscribed to a board.
func (s *Store) ListWatchers(ctx context.Context, board string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, err := s.boardID(ctx, board)
	if err != nil {
		return nil, err
	}
	rows, err := s.database.QueryContext(ctx, `
SELECT user_hash FROM watched_boards WHERE board_id = ? ORDER BY user_hash ASC`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		out = append(out, hash)
	}
	return out, rows.Err()
}

// boardID resolves a board name. Callers must hold s.mu.
func (s *Store) boardID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.database.QueryRowContext(ctx, `SELECT id FROM boards WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrBoardNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func isUniqueConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
