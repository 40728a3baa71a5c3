package state

import (
	"fmt"

	"mailchain/native/mailer"
)

type storedMailerState struct {
	Owner          [20]byte
	USDCMint       [20]byte
	SendFee        uint64
	OwnerClaimable uint64
}

type storedRecipientClaim struct {
	Recipient [20]byte
	Amount    uint64
	Timestamp uint64
}

// MailerStateGet loads the mailer singleton for program.
func (m *Manager) MailerStateGet(program [20]byte) (*mailer.State, bool, error) {
	var stored storedMailerState
	ok, err := m.getRLP(mailerStateKey(program), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &mailer.State{
		Owner:          stored.Owner,
		USDCMint:       stored.USDCMint,
		SendFee:        stored.SendFee,
		OwnerClaimable: stored.OwnerClaimable,
	}, true, nil
}

// MailerStatePut persists the mailer singleton for program.
func (m *Manager) MailerStatePut(program [20]byte, st *mailer.State) error {
	if st == nil {
		return fmt.Errorf("state: nil mailer state")
	}
	return m.putRLP(mailerStateKey(program), &storedMailerState{
		Owner:          st.Owner,
		USDCMint:       st.USDCMint,
		SendFee:        st.SendFee,
		OwnerClaimable: st.OwnerClaimable,
	})
}

// MailerClaimGet loads the claim record for recipient.
func (m *Manager) MailerClaimGet(program [20]byte, recipient [20]byte) (*mailer.RecipientClaim, bool, error) {
	var stored storedRecipientClaim
	ok, err := m.getRLP(mailerClaimKey(program, recipient), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &mailer.RecipientClaim{
		Recipient: stored.Recipient,
		Amount:    stored.Amount,
		Timestamp: int64(stored.Timestamp),
	}, true, nil
}

// MailerClaimPut persists a claim record keyed by its recipient.
func (m *Manager) MailerClaimPut(program [20]byte, claim *mailer.RecipientClaim) error {
	if claim == nil {
		return fmt.Errorf("state: nil recipient claim")
	}
	if claim.Timestamp < 0 {
		return fmt.Errorf("state: negative claim timestamp %d", claim.Timestamp)
	}
	return m.putRLP(mailerClaimKey(program, claim.Recipient), &storedRecipientClaim{
		Recipient: claim.Recipient,
		Amount:    claim.Amount,
		Timestamp: uint64(claim.Timestamp),
	})
}
