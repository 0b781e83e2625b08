package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// SessionSink persists a concluded session. Sessions are written once and never
// updated.
type SessionSink interface {
	Save(session *Session) error
}

// SessionStore is a sink that can also be browsed by the CLI
type SessionStore interface {
	SessionSink
	List() ([]SessionIndexEntry, error)
	Load(id string) (*Session, error)
	Close() error
}

// SessionIndexEntry summarises a stored session
type SessionIndexEntry struct {
	ID        string    `yaml:"id" json:"id"`
	File      string    `yaml:"file,omitempty" json:"file,omitempty"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Mode      string    `yaml:"mode" json:"mode"`
	Question  string    `yaml:"question" json:"question"`
	Agents    []string  `yaml:"agents" json:"agents"`
	Rounds    int       `yaml:"rounds" json:"rounds"`
	Verdict   string    `yaml:"verdict" json:"verdict"`
	Choice    string    `yaml:"choice,omitempty" json:"choice,omitempty"`
}

// SessionIndex is the YAML index kept next to the session files
type SessionIndex struct {
	Sessions []SessionIndexEntry `yaml:"sessions"`
	Metadata IndexMetadata       `yaml:"metadata"`
}

// IndexMetadata stores metadata about the index file
type IndexMetadata struct {
	IndexVersion string    `yaml:"index_version"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// NewIndexEntry builds the index summary for a session
func NewIndexEntry(session *Session) SessionIndexEntry {
	agents := make([]string, 0, len(session.Agents))
	for _, a := range session.Agents {
		agents = append(agents, a.ID)
	}
	entry := SessionIndexEntry{
		ID:        session.ID,
		Timestamp: session.Timestamp,
		Mode:      session.Mode,
		Question:  firstLine(session.Question),
		Agents:    agents,
		Rounds:    len(session.Rounds),
		Verdict:   "pending",
	}
	if session.Verdict != nil {
		entry.Verdict = string(session.Verdict.Kind)
		entry.Choice = session.Verdict.Choice
	}
	return entry
}

// NewStore opens the configured backend rooted at dir
func NewStore(backend, dir string) (SessionStore, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(dir), nil
	case BackendSQLite:
		return OpenSQLiteStore(filepath.Join(dir, "sessions.db"))
	default:
		return nil, &ConfigError{Field: "storage.backend", Err: fmt.Errorf("unsupported backend %q (supported: file, sqlite)", backend)}
	}
}

// FileStore writes each session to its own JSON file and keeps a YAML index
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the store directory
func (fs *FileStore) Dir() string {
	return fs.dir
}

// EnsureDir ensures the store directory exists
func (fs *FileStore) EnsureDir() error {
	return os.MkdirAll(fs.dir, 0755)
}

// IndexPath returns the path to the session index YAML file
func (fs *FileStore) IndexPath() string {
	return filepath.Join(fs.dir, "sessions.yaml")
}

// SessionFileName returns the file name a session is stored under, keyed by timestamp
func SessionFileName(session *Session) string {
	return fmt.Sprintf("session_%s_%s.json", session.Timestamp.Format("20060102_150405"), ShortID(session.ID))
}

// Save writes the session file and appends it to the index. An existing file for the
// same session is never overwritten.
func (fs *FileStore) Save(session *Session) error {
	if session == nil {
		return &StorageError{Path: fs.dir, Op: "write", Err: fmt.Errorf("nil session")}
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.EnsureDir(); err != nil {
		return &StorageError{Path: fs.dir, Op: "mkdir", Err: err}
	}

	name := SessionFileName(session)
	path := filepath.Join(fs.dir, name)
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return &StorageError{Path: path, Op: "marshal", Err: err}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &StorageError{Path: path, Op: "create", Err: err}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		return &StorageError{Path: path, Op: "close", Err: err}
	}

	index, err := fs.loadIndex()
	if err != nil {
		LogWarn("Rebuilding unreadable session index: %v", err)
		index = nil
	}
	if index == nil {
		index = &SessionIndex{Metadata: IndexMetadata{IndexVersion: "1.0", CreatedAt: time.Now()}}
	}
	entry := NewIndexEntry(session)
	entry.File = name
	index.Sessions = append(index.Sessions, entry)
	index.Metadata.UpdatedAt = time.Now()

	return fs.saveIndex(index)
}

// List returns the index entries, newest first
func (fs *FileStore) List() ([]SessionIndexEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	index, err := fs.loadIndex()
	if err != nil {
		return nil, err
	}
	if index == nil {
		return nil, nil
	}
	entries := append([]SessionIndexEntry(nil), index.Sessions...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// Load reads a session by full id or unique id prefix
func (fs *FileStore) Load(id string) (*Session, error) {
	entries, err := fs.List()
	if err != nil {
		return nil, err
	}
	entry, err := matchEntry(entries, id)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(fs.dir, entry.File)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &StorageError{Path: path, Op: "parse", Err: err}
	}
	return &session, nil
}

// Close is a no-op for the file store
func (fs *FileStore) Close() error {
	return nil
}

// loadIndex returns nil, nil when no index exists yet
func (fs *FileStore) loadIndex() (*SessionIndex, error) {
	data, err := os.ReadFile(fs.IndexPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Path: fs.IndexPath(), Op: "read", Err: err}
	}

	var index SessionIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &StorageError{Path: fs.IndexPath(), Op: "parse", Err: err}
	}
	return &index, nil
}

// saveIndex replaces the index atomically via a temp file and rename
func (fs *FileStore) saveIndex(index *SessionIndex) error {
	data, err := yaml.Marshal(index)
	if err != nil {
		return &StorageError{Path: fs.IndexPath(), Op: "marshal", Err: err}
	}
	tmp := fs.IndexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &StorageError{Path: tmp, Op: "write", Err: err}
	}
	if err := os.Rename(tmp, fs.IndexPath()); err != nil {
		return &StorageError{Path: fs.IndexPath(), Op: "rename", Err: err}
	}
	return nil
}

// matchEntry resolves a full id, a unique prefix, or the short id shown by list
func matchEntry(entries []SessionIndexEntry, id string) (SessionIndexEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SessionIndexEntry{}, fmt.Errorf("%w: empty id", ErrSessionNotFound)
	}
	var matches []SessionIndexEntry
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
		if strings.HasPrefix(e.ID, id) || ShortID(e.ID) == id {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return SessionIndexEntry{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return SessionIndexEntry{}, fmt.Errorf("ambiguous session id %q matches %d sessions", id, len(matches))
	}
}

// LoadAllSessions loads every session listed by store, skipping unreadable ones
func LoadAllSessions(store SessionStore) ([]*Session, error) {
	entries, err := store.List()
	if err != nil {
		return nil, err
	}
	sessions := make([]*Session, 0, len(entries))
	for _, e := range entries {
		s, err := store.Load(e.ID)
		if err != nil {
			LogWarn("Skipping session %s: %v", e.ID, err)
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
