package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteStore keeps the conversation in a single SQLite database. Saves
// replace the whole stored sequence inside one transaction.
type SQLiteStore struct {
	db          *sql.DB
	maxMessages int
	preamble    Message
}

const memorySchema = `
CREATE TABLE IF NOT EXISTS memory (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	role    TEXT NOT NULL,
	content TEXT NOT NULL
);`

// OpenSQLiteStore opens the database at path, creating it and its schema if
// needed.
func OpenSQLiteStore(path string, maxMessages int, preamble Message) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create memory directory")
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open memory db")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping memory db")
	}
	if _, err := db.Exec(memorySchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to init memory schema")
	}

	return &SQLiteStore{
		db:          db,
		maxMessages: maxMessages,
		preamble:    preamble,
	}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the stored conversation in insertion order.
func (s *SQLiteStore) Load() (History, error) {
	rows, err := s.db.Query(`SELECT role, content FROM memory ORDER BY id ASC`)
	if err != nil {
		return History{}, errors.Wrap(err, "failed to query memory")
	}
	defer rows.Close()

	h := History{}
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return History{}, errors.Wrap(err, "failed to scan memory row")
		}
		h = append(h, Message{Role: Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return History{}, errors.Wrap(err, "failed to read memory rows")
	}

	return h.EnsurePreamble(s.preamble), nil
}

// Save replaces the stored conversation with h, trimmed to the retention
// cap.
func (s *SQLiteStore) Save(h History) error {
	h = h.TrimToLast(s.maxMessages)

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin memory tx")
	}

	if _, err := tx.Exec(`DELETE FROM memory`); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to clear memory")
	}

	stmt, err := tx.Prepare(`INSERT INTO memory (role, content) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to prepare memory insert")
	}
	defer stmt.Close()

	for _, m := range h {
		if _, err := stmt.Exec(string(m.Role), m.Content); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "failed to insert memory row")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit memory")
}
