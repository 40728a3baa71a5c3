package state

import (
	"fmt"

	"mailchain/native/token"
)

type storedMint struct {
	ID        [20]byte
	Authority [20]byte
	Decimals  uint8
	Supply    uint64
}

// TokenMintGet loads the metadata of mint.
func (m *Manager) TokenMintGet(mint [20]byte) (*token.Mint, bool, error) {
	var stored storedMint
	ok, err := m.getRLP(tokenMintKey(mint), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &token.Mint{
		ID:        stored.ID,
		Authority: stored.Authority,
		Decimals:  stored.Decimals,
		Supply:    stored.Supply,
	}, true, nil
}

// TokenMintPut persists mint metadata.
func (m *Manager) TokenMintPut(mint *token.Mint) error {
	if mint == nil {
		return fmt.Errorf("state: nil mint")
	}
	return m.putRLP(tokenMintKey(mint.ID), &storedMint{
		ID:        mint.ID,
		Authority: mint.Authority,
		Decimals:  mint.Decimals,
		Supply:    mint.Supply,
	})
}

// TokenBalance returns the balance owner holds of mint. Missing balances are zero.
func (m *Manager) TokenBalance(mint [20]byte, owner [20]byte) (uint64, error) {
	var balance uint64
	if _, err := m.getRLP(tokenBalanceKey(mint, owner), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// TokenBalancePut stores the balance owner holds of mint.
func (m *Manager) TokenBalancePut(mint [20]byte, owner [20]byte, amount uint64) error {
	return m.putRLP(tokenBalanceKey(mint, owner), amount)
}
