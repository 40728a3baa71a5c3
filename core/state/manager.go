package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"mailchain/storage"
)

// Manager provides typed access to ledger records within a single storage
// transaction. All writes become visible only if the enclosing Update commits.
type Manager struct {
	txn storage.Txn
}

// NewManager creates a state manager operating on the provided transaction.
func NewManager(txn storage.Txn) *Manager {
	return &Manager{txn: txn}
}

// NewReadOnlyManager wraps a read view; any attempted write fails with
// storage.ErrReadOnly.
func NewReadOnlyManager(r storage.Reader) *Manager {
	return &Manager{txn: storage.ReadOnly(r)}
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	data, err := m.txn.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return m.txn.Put(key, encoded)
}

// KVGet decodes the raw value stored under key into out.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	return m.getRLP(key, out)
}

// KVPut stores value under key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	return m.putRLP(key, value)
}
