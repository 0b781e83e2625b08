package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	mode       TEXT NOT NULL,
	question   TEXT NOT NULL,
	agents     TEXT NOT NULL,
	rounds     INTEGER NOT NULL,
	verdict    TEXT NOT NULL,
	choice     TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_created_at ON sessions (created_at);
`

// OpenDatabase opens a SQLite database and checks the connection
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// SQLiteStore keeps sessions in a single SQLite table, one row per session
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenSQLiteStore opens (creating if needed) the session database at path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, &StorageError{Path: path, Op: "mkdir", Err: err}
		}
	}
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)
	return NewSQLiteStore(db, path)
}

// NewSQLiteStore wraps an open database, creating the schema if missing
func NewSQLiteStore(db *sql.DB, path string) (*SQLiteStore, error) {
	if _, err := db.Exec(sessionsSchema); err != nil {
		return nil, &StorageError{Path: path, Op: "migrate", Err: err}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save inserts the session. A second save of the same id fails.
func (s *SQLiteStore) Save(session *Session) error {
	if session == nil {
		return &StorageError{Path: s.path, Op: "insert", Err: fmt.Errorf("nil session")}
	}
	body, err := json.Marshal(session)
	if err != nil {
		return &StorageError{Path: s.path, Op: "marshal", Err: err}
	}
	entry := NewIndexEntry(session)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, created_at, mode, question, agents, rounds, verdict, choice, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UnixNano(), entry.Mode, entry.Question,
		strings.Join(entry.Agents, ","), entry.Rounds, entry.Verdict, entry.Choice, string(body),
	)
	if err != nil {
		return &StorageError{Path: s.path, Op: "insert", Err: err}
	}
	return nil
}

// List returns a summary of every stored session, newest first
func (s *SQLiteStore) List() ([]SessionIndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, created_at, mode, question, agents, rounds, verdict, choice
		 FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	defer rows.Close()

	var entries []SessionIndexEntry
	for rows.Next() {
		var (
			e       SessionIndexEntry
			created int64
			agents  string
		)
		if err := rows.Scan(&e.ID, &created, &e.Mode, &e.Question, &agents, &e.Rounds, &e.Verdict, &e.Choice); err != nil {
			return nil, &StorageError{Path: s.path, Op: "scan", Err: err}
		}
		e.Timestamp = time.Unix(0, created)
		if agents != "" {
			e.Agents = strings.Split(agents, ",")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	return entries, nil
}

// Load reads a session by full id, unique id prefix or short id
func (s *SQLiteStore) Load(id string) (*Session, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	entry, err := matchEntry(entries, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var body string
	if err := s.db.QueryRow(`SELECT body FROM sessions WHERE id = ?`, entry.ID).Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, &StorageError{Path: s.path, Op: "query", Err: err}
	}

	var session Session
	if err := json.Unmarshal([]byte(body), &session); err != nil {
		return nil, &StorageError{Path: s.path, Op: "parse", Err: err}
	}
	return &session, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
