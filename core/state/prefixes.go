package state

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	seedMailer      = "mailer"
	seedClaim       = "claim"
	seedMailService = "mail_service"
	seedDelegation  = "delegation"
)

var (
	tokenBalancePrefix = []byte("token-balance")
	tokenMintPrefix    = []byte("token-mint")
	noncePrefix        = []byte("nonce")
)

// recordKey derives the storage key of a program-owned record from its seed
// tag and discriminator.
func recordKey(program [20]byte, tag string, disc []byte) []byte {
	buf := make([]byte, 0, len(program)+len(tag)+len(disc)+2)
	buf = append(buf, program[:]...)
	buf = append(buf, 0x00)
	buf = append(buf, tag...)
	buf = append(buf, 0x00)
	buf = append(buf, disc...)
	return ethcrypto.Keccak256(buf)
}

func mailerStateKey(program [20]byte) []byte {
	return recordKey(program, seedMailer, nil)
}

func mailerClaimKey(program [20]byte, recipient [20]byte) []byte {
	return recordKey(program, seedClaim, recipient[:])
}

func mailServiceStateKey(program [20]byte) []byte {
	return recordKey(program, seedMailService, nil)
}

func delegationKey(program [20]byte, delegator [20]byte) []byte {
	return recordKey(program, seedDelegation, delegator[:])
}

func tokenMintKey(mint [20]byte) []byte {
	return ethcrypto.Keccak256(tokenMintPrefix, mint[:])
}

func tokenBalanceKey(mint [20]byte, owner [20]byte) []byte {
	return ethcrypto.Keccak256(tokenBalancePrefix, mint[:], owner[:])
}

func nonceKey(addr [20]byte) []byte {
	return ethcrypto.Keccak256(noncePrefix, addr[:])
}
