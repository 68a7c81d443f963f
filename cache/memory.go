package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStorage keeps all namespaces in process memory.
// Each namespace is backed by its own go-cache instance.
type MemoryStorage struct {
	mutex      sync.RWMutex
	namespaces map[string]*memoryNamespace
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		namespaces: make(map[string]*memoryNamespace),
	}
}

func (m *MemoryStorage) Open(name string) (Namespace, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if ns, ok := m.namespaces[name]; ok {
		return ns, nil
	}
	ns := &memoryNamespace{
		entries: gocache.New(gocache.NoExpiration, 0),
	}
	m.namespaces[name] = ns
	return ns, nil
}

func (m *MemoryStorage) Names() ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	names := make([]string, 0, len(m.namespaces))
	for name := range m.namespaces {
		names = append(names, name)
	}
	return names, nil
}

func (m *MemoryStorage) Delete(name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if ns, ok := m.namespaces[name]; ok {
		ns.entries.Flush()
		delete(m.namespaces, name)
	}
	return nil
}

type memoryNamespace struct {
	entries *gocache.Cache
}

func (n *memoryNamespace) Get(key string) (Entry, bool, error) {
	val, ok := n.entries.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	return val.(Entry), true, nil
}

func (n *memoryNamespace) Put(key string, value []byte) error {
	n.entries.Set(key, Entry{Value: value, StoredAt: time.Now()}, gocache.NoExpiration)
	return nil
}

func (n *memoryNamespace) Delete(key string) error {
	n.entries.Delete(key)
	return nil
}

func (n *memoryNamespace) Keys() ([]string, error) {
	items := n.entries.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	return keys, nil
}
