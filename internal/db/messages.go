package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Message struct {
	ID         int64
	BoardID    int64
	Timestamp  int64 // UTC seconds
	Author     string
	AuthorHash string
	Topic      string
	Content    string
	ParentID   *int64
	ReplyCount int
}

// PostMessage inserts a message with the current UTC timestamp and
// returns its id. The author field is a display-name snapshot; the
// author hash is kept alongside it so reply notifications can resolve
// the recipient by identity instead of by name.
func (s *Store) PostMessage(ctx context.Context, board, author, authorHash, topic, content string, parentID *int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, err := s.boardID(ctx, board)
	if err != nil {
		return 0, err
	}

	res, err := s.database.ExecContext(ctx, `
INSERT INTO messages (board_id, timestamp, author, author_hash, topic, content, parent_id)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		boardID, time.Now().UTC().Unix(), author, authorHash, topic, content, parentID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListMessages returns one page of top-level messages, newest first,
// each with its reply count, plus the total top-level count for
// page-bound computation. A page past the end yields an empty slice.
func (s *Store) ListMessages(ctx context.Context, board string, page, pageSize int) ([]Message, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, err := s.boardID(ctx, board)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.database.QueryContext(ctx, `
SELECT m.id, m.board_id, m.timestamp, m.author, COALESCE(m.author_hash, ''), m.topic, m.content,
       (SELECT COUNT(*) FROM messages r WHERE r.parent_id = m.id) AS reply_count
FROM messages m
WHERE m.board_id = ? AND m.parent_id IS NULL
ORDER BY m.timestamp DESC, m.id DESC
LIMIT ? OFFSET ?`, boardID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.BoardID, &m.Timestamp, &m.Author, &m.AuthorHash, &m.Topic, &m.Content, &m.ReplyCount); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.database.QueryRowContext(ctx, `
SELECT COUNT(*) FROM messages WHERE board_id = ? AND parent_id IS NULL`, boardID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListUnread returns top-level messages in the board with no read
// marker for the user, newest first.
func (s *Store) ListUnread(ctx context.Context, board, userHash string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID, err := s.boardID(ctx, board)
	if err != nil {
		return nil, err
	}

	rows, err := s.database.QueryContext(ctx, `
SELECT m.id, m.board_id, m.timestamp, m.author, COALESCE(m.author_hash, ''), m.topic, m.content
FROM messages m
LEFT JOIN read_messages r ON m.id = r.message_id AND r.user_hash = ?
WHERE m.board_id = ? AND m.parent_id IS NULL AND r.message_id IS NULL
ORDER BY m.timestamp DESC, m.id DESC`, userHash, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.BoardID, &m.Timestamp, &m.Author, &m.AuthorHash, &m.Topic, &m.Content); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMessage(ctx context.Context, id int64) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.database.QueryRowContext(ctx, `
SELECT id, board_id, timestamp, author, COALESCE(author_hash, ''), topic, content, parent_id
FROM messages
WHERE id = ?`, id)

	m := &Message{}
	err := row.Scan(&m.ID, &m.BoardID, &m.Timestamp, &m.Author, &m.AuthorHash, &m.Topic, &m.Content, &m.ParentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListReplies returns the replies to a message, oldest first.
func (s *Store) ListReplies(ctx context.Context, parentID int64) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.database.QueryContext(ctx, `
SELECT id, board_id, timestamp, author, COALESCE(author_hash, ''), topic, content, parent_id
FROM messages
WHERE parent_id = ?
ORDER BY timestamp ASC, id ASC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.BoardID, &m.Timestamp, &m.Author, &m.AuthorHash, &m.Topic, &m.Content, &m.ParentID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead records a read marker. Marking twice is a no-op.
func (s *Store) MarkRead(ctx context.Context, userHash string, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.database.ExecContext(ctx, `
INSERT OR IGNORE INTO read_messages (user_hash, message_id)
VALUES (?, ?)`, userHash, messageID)
	return err
}

// countRows is a test helper shared by the cascade tests.
func (s *Store) countRows(ctx context.Context, table string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}
