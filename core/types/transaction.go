package types

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrMissingSignature = errors.New("transaction: missing signature")
	ErrInvalidProgram   = errors.New("transaction: program must be 20 bytes")
)

// Transaction carries a single program instruction signed by its caller. The
// recovered signer is the only identity the runtime trusts for authority
// checks; Nonce binds the instruction to the signer's account sequence so it
// cannot be replayed.
type Transaction struct {
	ChainID uint64 `json:"chainId"`
	Program []byte `json:"program"`
	Method  string `json:"method"`
	Nonce   uint64 `json:"nonce"`
	Data    []byte `json:"data"` // RLP-encoded method arguments

	// Signatures
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

type unsignedTx struct {
	ChainID uint64
	Program []byte
	Method  string
	Nonce   uint64
	Data    []byte
}

// Hash returns the keccak256 digest of the unsigned transaction fields.
func (tx *Transaction) Hash() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(unsignedTx{
		ChainID: tx.ChainID,
		Program: tx.Program,
		Method:  tx.Method,
		Nonce:   tx.Nonce,
		Data:    tx.Data,
	})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

// ProgramID returns the target program as a fixed-size identity.
func (tx *Transaction) ProgramID() ([20]byte, error) {
	var out [20]byte
	if len(tx.Program) != len(out) {
		return out, ErrInvalidProgram
	}
	copy(out[:], tx.Program)
	return out, nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer address from the signature.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, ErrMissingSignature
	}
	if len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 {
		return nil, ErrMissingSignature
	}
	if !tx.V.IsUint64() || (tx.V.Uint64() != 27 && tx.V.Uint64() != 28) {
		return nil, ErrMissingSignature
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}
