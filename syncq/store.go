// Package syncq implements the background sync tasks: draining locally
// queued transactions to the API once connectivity returns, and checking
// property price alerts.
package syncq

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

// Transaction is a finance record queued while offline.
type Transaction struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PendingStore holds transactions awaiting submission. An item is removed
// only after its remote submission is confirmed, so a crash or a failed POST
// leaves it queued for the next sync.
//
// Implementations must be thread-safe!
type PendingStore interface {
	// Add queues a transaction. An empty ID is assigned one.
	Add(t Transaction) (Transaction, error)
	// List returns all queued transactions in insertion order.
	List() ([]Transaction, error)
	// Remove deletes the transaction with the given id.
	// Removing a missing id is not an error.
	Remove(id string) error
}

// MemoryStore is an in-process pending store.
type MemoryStore struct {
	mutex sync.Mutex
	queue []Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Add(t Transaction) (Transaction, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.queue = append(m.queue, t)
	return t, nil
}

func (m *MemoryStore) List() ([]Transaction, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make([]Transaction, len(m.queue))
	copy(out, m.queue)
	return out, nil
}

func (m *MemoryStore) Remove(id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i, t := range m.queue {
		if t.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return nil
		}
	}
	return nil
}

// SQLiteStore persists the pending queue so queued work survives restarts.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore creates a new store with the given filename as the db.
// If the file name is empty, a new in-memory db is opened.
func NewSQLiteStore(filename string) *SQLiteStore {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS pending_transactions (
		id TEXT PRIMARY KEY,
		amount REAL,
		category TEXT,
		description TEXT,
		created_at INTEGER,
		queued_at INTEGER
	)`)
	if err != nil {
		panic(err)
	}
	return &SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}
}

func (s *SQLiteStore) Add(t Transaction) (Transaction, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO pending_transactions
		(id, amount, category, description, created_at, queued_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount, t.Category, t.Description, t.CreatedAt.Unix(), time.Now().UnixNano(),
	)
	return t, err
}

func (s *SQLiteStore) List() ([]Transaction, error) {
	rows, err := s.db.Query(
		`SELECT id, amount, category, description, created_at
		FROM pending_transactions ORDER BY queued_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	transactions := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.Amount, &t.Category, &t.Description, &createdAt); err != nil {
			return transactions, err
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (s *SQLiteStore) Remove(id string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM pending_transactions WHERE id = ?", id)
	return err
}
