package state

// NonceGet returns the next expected transaction nonce for addr.
func (m *Manager) NonceGet(addr [20]byte) (uint64, error) {
	var nonce uint64
	if _, err := m.getRLP(nonceKey(addr), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// NoncePut stores the next expected transaction nonce for addr.
func (m *Manager) NoncePut(addr [20]byte, nonce uint64) error {
	return m.putRLP(nonceKey(addr), nonce)
}
