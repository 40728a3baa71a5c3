package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestTransactionSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := &Transaction{
		ChainID: 7,
		Program: bytes.Repeat([]byte{0x11}, 20),
		Method:  "send_priority",
		Nonce:   3,
		Data:    []byte{0xc0},
	}
	if err := tx.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	from, err := tx.From()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	want := crypto.PubkeyToAddress(key.PublicKey).Bytes()
	if !bytes.Equal(from, want) {
		t.Fatalf("recovered %x, want %x", from, want)
	}
}

func TestTransactionTamperChangesSigner(t *testing.T) {
	key, _ := crypto.GenerateKey()
	tx := &Transaction{ChainID: 1, Program: bytes.Repeat([]byte{0x22}, 20), Method: "set_fee", Nonce: 0}
	if err := tx.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	tampered := &Transaction{ChainID: tx.ChainID, Program: tx.Program, Method: tx.Method, Nonce: 1, R: tx.R, S: tx.S, V: tx.V}
	from, err := tampered.From()
	if err == nil && bytes.Equal(from, crypto.PubkeyToAddress(key.PublicKey).Bytes()) {
		t.Fatalf("tampered transaction must not recover the original signer")
	}
}

func TestTransactionWithoutSignature(t *testing.T) {
	tx := &Transaction{Program: bytes.Repeat([]byte{0x01}, 20)}
	if _, err := tx.From(); err == nil {
		t.Fatalf("expected missing signature error")
	}
}

func TestProgramIDLength(t *testing.T) {
	tx := &Transaction{Program: []byte{0x01}}
	if _, err := tx.ProgramID(); err == nil {
		t.Fatalf("expected short program id to be rejected")
	}
}

func TestTransactionRejectsOutOfRangeV(t *testing.T) {
	key, _ := crypto.GenerateKey()
	tx := &Transaction{ChainID: 1, Program: bytes.Repeat([]byte{0x33}, 20), Method: "send", Nonce: 0}
	if err := tx.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	recID := tx.V.Uint64() - 27
	for _, v := range []uint64{recID, recID + 27 + 256, 29, 1 << 40} {
		forged := &Transaction{ChainID: tx.ChainID, Program: tx.Program, Method: tx.Method, R: tx.R, S: tx.S, V: new(big.Int).SetUint64(v)}
		if _, err := forged.From(); !errors.Is(err, ErrMissingSignature) {
			t.Fatalf("v=%d: expected ErrMissingSignature, got %v", v, err)
		}
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	forged := &Transaction{ChainID: tx.ChainID, Program: tx.Program, Method: tx.Method, R: tx.R, S: tx.S, V: huge.Add(huge, big.NewInt(27))}
	if _, err := forged.From(); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("oversized v: expected ErrMissingSignature, got %v", err)
	}
}

func TestTransactionJSONKeepsSignatureParts(t *testing.T) {
	tx := &Transaction{R: big.NewInt(1), S: big.NewInt(2), V: big.NewInt(27)}
	raw, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Transaction
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.R.Int64() != 1 || decoded.S.Int64() != 2 || decoded.V.Int64() != 27 {
		t.Fatalf("signature parts lost: %s", raw)
	}
}
