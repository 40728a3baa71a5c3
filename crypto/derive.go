package crypto

import (
	"github.com/ethereum/go-ethereum/crypto"
)

var programAddressDomain = []byte("mailchain/pda")

// ProgramAddress derives the custody identity a program signs with. The
// derivation is a pure function of the program ID and seeds, so any node can
// recompute it from on-ledger data alone. No private key exists for the
// result; only program handler code can authorise movements from it.
func ProgramAddress(program [20]byte, seeds ...[]byte) [20]byte {
	parts := make([][]byte, 0, len(seeds)+2)
	parts = append(parts, programAddressDomain, program[:])
	parts = append(parts, seeds...)
	hash := crypto.Keccak256(parts...)
	var out [20]byte
	copy(out[:], hash[12:])
	return out
}

// ProgramID derives a stable program identifier from a human-readable name.
// Used for default configuration and tests.
func ProgramID(name string) [20]byte {
	hash := crypto.Keccak256([]byte("mailchain/program"), []byte(name))
	var out [20]byte
	copy(out[:], hash[12:])
	return out
}
