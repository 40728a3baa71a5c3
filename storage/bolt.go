package storage

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ledgerBucket = []byte("ledger")

// BoltDB stores the ledger in a single bbolt bucket.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB opens (creating if needed) the bbolt file at path.
func NewBoltDB(path string, options *bolt.Options) (*BoltDB, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ledgerBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Put(key []byte, value []byte) error {
	return b.Update(func(txn Txn) error { return txn.Put(key, value) })
}

func (b *BoltDB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.View(func(r Reader) error {
		value, err := r.Get(key)
		out = value
		return err
	})
	return out, err
}

func (b *BoltDB) View(fn func(Reader) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(ledgerBucket)
		if bucket == nil {
			return fmt.Errorf("storage: bucket %s missing", ledgerBucket)
		}
		return fn(boltTxn{bucket: bucket})
	})
}

// Update maps directly onto bbolt's managed read-write transaction, which
// rolls back when fn returns an error.
func (b *BoltDB) Update(fn func(Txn) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(ledgerBucket)
		if bucket == nil {
			return fmt.Errorf("storage: bucket %s missing", ledgerBucket)
		}
		return fn(boltTxn{bucket: bucket})
	})
}

func (b *BoltDB) Close() {
	if b == nil || b.db == nil {
		return
	}
	_ = b.db.Close()
}

type boltTxn struct {
	bucket *bolt.Bucket
}

// Get copies the value out because bbolt memory is only valid for the life of
// the transaction.
func (t boltTxn) Get(key []byte) ([]byte, error) {
	raw := t.bucket.Get(key)
	if raw == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (t boltTxn) Has(key []byte) (bool, error) {
	return t.bucket.Get(key) != nil, nil
}

func (t boltTxn) Put(key []byte, value []byte) error {
	return t.bucket.Put(key, value)
}

func (t boltTxn) Delete(key []byte) error {
	return t.bucket.Delete(key)
}
