package db

const initialSchemaV1 = `
CREATE TABLE IF NOT EXISTS users (
    hash_hex    TEXT PRIMARY KEY,
    name        TEXT,
    is_admin    INTEGER DEFAULT 0,
    notify_addr TEXT,
    created     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);

CREATE TABLE IF NOT EXISTS boards (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    name    TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    board_id    INTEGER NOT NULL,
    timestamp   INTEGER NOT NULL,
    author      TEXT NOT NULL,
    author_hash TEXT,
    topic       TEXT NOT NULL DEFAULT 'No Topic',
    content     TEXT NOT NULL,
    parent_id   INTEGER,

    FOREIGN KEY (board_id)  REFERENCES boards(id)   ON DELETE CASCADE,
    FOREIGN KEY (parent_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_board  ON messages(board_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_id);

CREATE TABLE IF NOT EXISTS read_messages (
    user_hash   TEXT NOT NULL,
    message_id  INTEGER NOT NULL,
    PRIMARY KEY (user_hash, message_id),
    FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS watched_boards (
    user_hash   TEXT NOT NULL,
    board_id    INTEGER NOT NULL,
    PRIMARY KEY (user_hash, board_id),
    FOREIGN KEY (board_id) REFERENCES boards(id) ON DELETE CASCADE
);
`
