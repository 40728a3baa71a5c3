package events

import (
	"encoding/hex"

	"mailchain/core/types"
	"mailchain/crypto"
)

const (
	// TypeTokenTransfer is emitted for every token balance movement.
	TypeTokenTransfer = "token.transfer"
	// TypeTokenMinted is emitted when new supply is credited to an account.
	TypeTokenMinted = "token.minted"
	// TypeTokenMintCreated is emitted when a mint is registered.
	TypeTokenMintCreated = "token.mint.created"
)

type Transfer struct {
	Mint   [20]byte
	From   [20]byte
	To     [20]byte
	Amount uint64
}

func (Transfer) EventType() string { return TypeTokenTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenTransfer,
		Attributes: map[string]string{
			"mint":   formatMint(e.Mint),
			"from":   crypto.FromArray(e.From).String(),
			"to":     crypto.FromArray(e.To).String(),
			"amount": formatAmount(e.Amount),
		},
	}
}

type Minted struct {
	Mint   [20]byte
	To     [20]byte
	Amount uint64
	Supply uint64
}

func (Minted) EventType() string { return TypeTokenMinted }

func (e Minted) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenMinted,
		Attributes: map[string]string{
			"mint":   formatMint(e.Mint),
			"to":     crypto.FromArray(e.To).String(),
			"amount": formatAmount(e.Amount),
			"supply": formatAmount(e.Supply),
		},
	}
}

type MintCreated struct {
	Mint      [20]byte
	Authority [20]byte
	Decimals  uint8
}

func (MintCreated) EventType() string { return TypeTokenMintCreated }

func (e MintCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenMintCreated,
		Attributes: map[string]string{
			"mint":      formatMint(e.Mint),
			"authority": crypto.FromArray(e.Authority).String(),
			"decimals":  formatAmount(uint64(e.Decimals)),
		},
	}
}

func formatMint(mint [20]byte) string {
	return "0x" + hex.EncodeToString(mint[:])
}
