package storage

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// ErrReadOnly is returned when a write is attempted through a read-only view.
var ErrReadOnly = errors.New("storage: read-only view")

// Reader exposes point lookups against a consistent view of the store.
type Reader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// Txn is a read-write view scoped to a single Update call. Reads observe the
// transaction's own pending writes.
type Txn interface {
	Reader
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// Database is a generic interface for a key-value store.
// This allows the ledger to use any database backend (in-memory or persistent).
//
// Update runs fn inside a single write transaction: when fn returns an error
// nothing it wrote becomes visible, otherwise every write commits atomically.
// Writers are serialised, so Update is the unit of isolation for the ledger.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	View(fn func(Reader) error) error
	Update(fn func(Txn) error) error
	Close() // A way to gracefully shut down the database connection.
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// View runs fn against the committed contents of the database.
func (db *MemDB) View(fn func(Reader) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(memReader{data: db.data})
}

// Update runs fn against an overlay of pending writes and applies the overlay
// only if fn succeeds.
func (db *MemDB) Update(fn func(Txn) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	txn := &memTxn{base: db.data, pending: make(map[string][]byte), deleted: make(map[string]struct{})}
	if err := fn(txn); err != nil {
		return err
	}
	for key := range txn.deleted {
		delete(db.data, key)
	}
	for key, value := range txn.pending {
		db.data[key] = value
	}
	return nil
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	// Nothing to close for an in-memory database.
}

type memReader struct {
	data map[string][]byte
}

func (r memReader) Get(key []byte) ([]byte, error) {
	value, ok := r.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (r memReader) Has(key []byte) (bool, error) {
	_, ok := r.data[string(key)]
	return ok, nil
}

type memTxn struct {
	base    map[string][]byte
	pending map[string][]byte
	deleted map[string]struct{}
}

func (t *memTxn) Get(key []byte) ([]byte, error) {
	k := string(key)
	if value, ok := t.pending[k]; ok {
		return append([]byte(nil), value...), nil
	}
	if _, ok := t.deleted[k]; ok {
		return nil, ErrNotFound
	}
	value, ok := t.base[k]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (t *memTxn) Has(key []byte) (bool, error) {
	_, err := t.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *memTxn) Put(key []byte, value []byte) error {
	k := string(key)
	delete(t.deleted, k)
	t.pending[k] = append([]byte(nil), value...)
	return nil
}

func (t *memTxn) Delete(key []byte) error {
	k := string(key)
	delete(t.pending, k)
	t.deleted[k] = struct{}{}
	return nil
}

// ReadOnly adapts a Reader into a Txn whose writes fail with ErrReadOnly.
func ReadOnly(r Reader) Txn {
	return readOnlyTxn{Reader: r}
}

type readOnlyTxn struct {
	Reader
}

func (readOnlyTxn) Put([]byte, []byte) error { return ErrReadOnly }

func (readOnlyTxn) Delete([]byte) error { return ErrReadOnly }
