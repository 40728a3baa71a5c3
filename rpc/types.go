package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"mailchain/core/types"
	"mailchain/crypto"
	"mailchain/native/mailer"
	"mailchain/native/mailservice"
)

// TransactionParams is the wire form of a signed transaction. Byte fields are
// 0x-prefixed hex.
type TransactionParams struct {
	ChainID uint64 `json:"chainId"`
	Program string `json:"program"`
	Method  string `json:"method"`
	Nonce   uint64 `json:"nonce"`
	Data    string `json:"data,omitempty"`
	R       string `json:"r"`
	S       string `json:"s"`
	V       string `json:"v"`
}

// TransactionParamsFrom converts a signed transaction into its wire form.
func TransactionParamsFrom(tx *types.Transaction) TransactionParams {
	return TransactionParams{
		ChainID: tx.ChainID,
		Program: encodeHex(tx.Program),
		Method:  tx.Method,
		Nonce:   tx.Nonce,
		Data:    encodeHex(tx.Data),
		R:       hexBig(tx.R),
		S:       hexBig(tx.S),
		V:       hexBig(tx.V),
	}
}

// Transaction decodes the wire form.
func (p TransactionParams) Transaction() (*types.Transaction, error) {
	program, err := decodeHex(p.Program)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	data, err := decodeHex(p.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	tx := &types.Transaction{
		ChainID: p.ChainID,
		Program: program,
		Method:  p.Method,
		Nonce:   p.Nonce,
		Data:    data,
	}
	if tx.R, err = parseBig(p.R); err != nil {
		return nil, fmt.Errorf("r: %w", err)
	}
	if tx.S, err = parseBig(p.S); err != nil {
		return nil, fmt.Errorf("s: %w", err)
	}
	if tx.V, err = parseBig(p.V); err != nil {
		return nil, fmt.Errorf("v: %w", err)
	}
	return tx, nil
}

// MailerStateResult reflects the mailer singleton.
type MailerStateResult struct {
	Owner          string `json:"owner"`
	USDCMint       string `json:"usdcMint"`
	SendFee        uint64 `json:"sendFee"`
	OwnerClaimable uint64 `json:"ownerClaimable"`
	Custody        string `json:"custody"`
}

func mailerStateResult(st *mailer.State, custody [20]byte) MailerStateResult {
	return MailerStateResult{
		Owner:          crypto.FromArray(st.Owner).String(),
		USDCMint:       encodeHex(st.USDCMint[:]),
		SendFee:        st.SendFee,
		OwnerClaimable: st.OwnerClaimable,
		Custody:        crypto.FromArray(custody).String(),
	}
}

// ClaimResult reflects a recipient claim and its window.
type ClaimResult struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Phase     string `json:"phase,omitempty"`
	WindowEnd int64  `json:"windowEnd,omitempty"`
}

func claimResult(claim *mailer.RecipientClaim) ClaimResult {
	out := ClaimResult{
		Recipient: crypto.FromArray(claim.Recipient).String(),
		Amount:    claim.Amount,
		Timestamp: claim.Timestamp,
	}
	if claim.Timestamp != 0 {
		out.WindowEnd = claim.WindowEnd()
	}
	return out
}

func claimStatusResult(status *mailer.ClaimStatus) ClaimResult {
	return ClaimResult{
		Recipient: crypto.FromArray(status.Recipient).String(),
		Amount:    status.Amount,
		Timestamp: status.Timestamp,
		Phase:     string(status.Phase),
		WindowEnd: status.WindowEnd,
	}
}

// ServiceStateResult reflects the mail-service singleton.
type ServiceStateResult struct {
	Owner         string `json:"owner"`
	USDCMint      string `json:"usdcMint"`
	DelegationFee uint64 `json:"delegationFee"`
	Custody       string `json:"custody"`
}

func serviceStateResult(st *mailservice.State, custody [20]byte) ServiceStateResult {
	return ServiceStateResult{
		Owner:         crypto.FromArray(st.Owner).String(),
		USDCMint:      encodeHex(st.USDCMint[:]),
		DelegationFee: st.DelegationFee,
		Custody:       crypto.FromArray(custody).String(),
	}
}

// DelegationResult reflects a delegation record. Delegate is empty when unset.
type DelegationResult struct {
	Delegator string `json:"delegator"`
	Delegate  string `json:"delegate,omitempty"`
	Active    bool   `json:"active"`
}

func delegationResult(d *mailservice.Delegation) DelegationResult {
	out := DelegationResult{Delegator: crypto.FromArray(d.Delegator).String()}
	if delegate, ok := d.Active(); ok {
		out.Active = true
		out.Delegate = crypto.FromArray(delegate).String()
	}
	return out
}

// BalanceResult reports a token balance.
type BalanceResult struct {
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Balance uint64 `json:"balance"`
}

// NonceResult reports the next expected nonce for an account.
type NonceResult struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func decodeHex(value string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nil, nil
	}
	return hex.DecodeString(trimmed)
}

// hexBig formats a big integer as a 0x-prefixed hexadecimal string.
func hexBig(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return fmt.Sprintf("0x%x", v)
}

func parseBig(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("value required")
	}
	out, ok := new(big.Int).SetString(strings.TrimPrefix(trimmed, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex integer %q", value)
	}
	return out, nil
}

// ParseMint decodes a 20-byte mint id in 0x hex.
func ParseMint(value string) ([20]byte, error) {
	var out [20]byte
	decoded, err := decodeHex(value)
	if err != nil {
		return out, err
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("mint must be 20 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}
