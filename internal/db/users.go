package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type User struct {
	HashHex    string
	Name       string
	IsAdmin    bool
	NotifyAddr string
	Created    string
}

// Display returns the user's name, or a shortened identity hash when no
// name has been set.
func (u *User) Display() string {
	if u.Name != "" {
		return u.Name
	}
	return PrettyHash(u.HashHex)
}

// PrettyHash renders an identity hash the way it appears in replies.
func PrettyHash(hashHex string) string {
	if len(hashHex) > 16 {
		hashHex = hashHex[:16] + "..."
	}
	return "<" + hashHex + ">"
}

// EnsureUser creates the user record on first identification. The
// second return reports whether a new record was created.
func (s *Store) EnsureUser(ctx context.Context, hashHex string) (*User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.getUser(ctx, hashHex)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	created := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.database.ExecContext(ctx, `
INSERT INTO users (hash_hex, name, is_admin, notify_addr, created)
VALUES (?, NULL, 0, NULL, ?)`, hashHex, created); err != nil {
		return nil, false, err
	}
	return &User{HashHex: hashHex, Created: created}, true, nil
}

func (s *Store) GetUser(ctx context.Context, hashHex string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getUser(ctx, hashHex)
}

func (s *Store) getUser(ctx context.Context, hashHex string) (*User, error) {
	row := s.database.QueryRowContext(ctx, `
SELECT hash_hex, COALESCE(name, ''), is_admin, COALESCE(notify_addr, ''), created
FROM users
WHERE hash_hex = ?`, hashHex)

	u := &User{}
	var adminInt int
	err := row.Scan(&u.HashHex, &u.Name, &adminInt, &u.NotifyAddr, &u.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.IsAdmin = adminInt == 1
	return u, nil
}

// GetUserByName is the legacy lookup used only for messages that
// predate the author_hash column.
func (s *Store) GetUserByName(ctx context.Context, name string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.database.QueryRowContext(ctx, `
SELECT hash_hex, COALESCE(name, ''), is_admin, COALESCE(notify_addr, ''), created
FROM users
WHERE name = ?`, name)

	u := &User{}
	var adminInt int
	err := row.Scan(&u.HashHex, &u.Name, &adminInt, &u.NotifyAddr, &u.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.IsAdmin = adminInt == 1
	return u, nil
}

// IsNameTaken reports whether another identity already uses the name.
func (s *Store) IsNameTaken(ctx context.Context, name, excludeHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.database.QueryRowContext(ctx, `
SELECT COUNT(1) FROM users WHERE name = ? AND hash_hex != ?`, name, excludeHash).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) SetUserName(ctx context.Context, hashHex, name string) error {
	return s.updateUser(ctx, hashHex, `UPDATE users SET name = ? WHERE hash_hex = ?`, name)
}

func (s *Store) SetNotifyAddr(ctx context.Context, hashHex, addr string) error {
	return s.updateUser(ctx, hashHex, `UPDATE users SET notify_addr = ? WHERE hash_hex = ?`, addr)
}

func (s *Store) SetAdmin(ctx context.Context, hashHex string, admin bool) error {
	adminInt := 0
	if admin {
		adminInt = 1
	}
	return s.updateUser(ctx, hashHex, `UPDATE users SET is_admin = ? WHERE hash_hex = ?`, adminInt)
}

func (s *Store) updateUser(ctx context.Context, hashHex, query string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.database.ExecContext(ctx, query, value, hashHex)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.database.QueryContext(ctx, `
SELECT hash_hex, COALESCE(name, ''), is_admin, COALESCE(notify_addr, ''), created
FROM users
ORDER BY created ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		var (
			u        User
			adminInt int
		)
		if err := rows.Scan(&u.HashHex, &u.Name, &adminInt, &u.NotifyAddr, &u.Created); err != nil {
			return nil, err
		}
		u.IsAdmin = adminInt == 1
		out = append(out, u)
	}
	return out, rows.Err()
}

// EnsureAdmin creates the user record if needed and grants it admin
// rights. Used at startup to bootstrap the first administrator.
func (s *Store) EnsureAdmin(ctx context.Context, hashHex string) error {
	if _, _, err := s.EnsureUser(ctx, hashHex); err != nil {
		return err
	}
	return s.SetAdmin(ctx, hashHex, true)
}
