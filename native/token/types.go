package token

// Mint describes a fungible token registered on the ledger.
type Mint struct {
	ID        [20]byte
	Authority [20]byte
	Decimals  uint8
	Supply    uint64
}

// Clone returns a copy of the mint.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}
