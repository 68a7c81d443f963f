package cache

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStorage persists namespaces in a single SQLite database.
// Namespaces are rows in a registry table so that empty namespaces
// survive restarts and show up in Names().
type SQLiteStorage struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStorage creates a new storage with the given filename as the db.
// If the file name is empty, a new in-memory db is opened.
func NewSQLiteStorage(filename string) *SQLiteStorage {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("CREATE TABLE IF NOT EXISTS namespaces (name TEXT PRIMARY KEY)")
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		ns TEXT,
		key TEXT,
		stored_at INTEGER,
		bytes BLOB,
		PRIMARY KEY (ns, key)
	)`)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		panic(err)
	}
	return &SQLiteStorage{
		db:         db,
		writeMutex: &sync.Mutex{},
	}
}

func (s *SQLiteStorage) Open(name string) (Namespace, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("INSERT OR IGNORE INTO namespaces (name) VALUES (?)", name)
	if err != nil {
		return nil, err
	}
	return &sqliteNamespace{storage: s, name: name}, nil
}

func (s *SQLiteStorage) Names() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM namespaces")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) Delete(name string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if _, err := s.db.Exec("DELETE FROM entries WHERE ns = ?", name); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM namespaces WHERE name = ?", name)
	return err
}

type sqliteNamespace struct {
	storage *SQLiteStorage
	name    string
}

func (n *sqliteNamespace) Get(key string) (Entry, bool, error) {
	var storedAt int64
	var bytes []byte
	err := n.storage.db.QueryRow(
		"SELECT stored_at, bytes FROM entries WHERE ns = ? AND key = ?",
		n.name, key,
	).Scan(&storedAt, &bytes)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{Value: bytes, StoredAt: time.Unix(storedAt, 0)}, true, nil
}

func (n *sqliteNamespace) Put(key string, value []byte) error {
	n.storage.writeMutex.Lock()
	defer n.storage.writeMutex.Unlock()
	_, err := n.storage.db.Exec(
		"INSERT OR REPLACE INTO entries (ns, key, stored_at, bytes) VALUES (?, ?, ?, ?)",
		n.name, key, time.Now().Unix(), value,
	)
	return err
}

func (n *sqliteNamespace) Delete(key string) error {
	n.storage.writeMutex.Lock()
	defer n.storage.writeMutex.Unlock()
	_, err := n.storage.db.Exec("DELETE FROM entries WHERE ns = ? AND key = ?", n.name, key)
	return err
}

func (n *sqliteNamespace) Keys() ([]string, error) {
	rows, err := n.storage.db.Query("SELECT key FROM entries WHERE ns = ?", n.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
