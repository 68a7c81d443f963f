package cache

import (
	"time"
)

// Entry is a stored value together with its insertion time.
// The value is opaque to the store; for this proxy it is an HTTP response
// snapshot in wire form.
type Entry struct {
	Value    []byte
	StoredAt time.Time
}

// Storage is a collection of named, independently deletable namespaces.
// It models versioned cache partitions: the lifecycle manager opens the
// current namespaces on install and sweeps all others on activation.
//
// Implementations must be thread-safe!
type Storage interface {
	// Open returns the namespace with the given name, creating it if needed.
	// Opening an existing namespace returns a handle to the same data.
	Open(name string) (Namespace, error)
	// Names returns the names of all namespaces currently in the storage.
	Names() ([]string, error)
	// Delete removes a namespace and all of its entries.
	// Deleting a namespace that does not exist is not an error.
	Delete(name string) error
}

// Namespace stores entries under normalized request keys.
// Writes are idempotent: putting an existing key overwrites it.
//
// Implementations must be thread-safe!
type Namespace interface {
	// Get returns the entry for the given key, if it exists.
	Get(key string) (Entry, bool, error)
	// Put stores the value under the given key, recording the insertion time.
	Put(key string, value []byte) error
	// Delete removes the entry for the given key.
	// Deleting a missing key is not an error.
	Delete(key string) error
	// Keys returns all keys currently in the namespace.
	Keys() ([]string, error)
}
