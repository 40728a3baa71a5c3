package state

import (
	"fmt"

	"mailchain/native/mailservice"
)

type storedMailServiceState struct {
	Owner         [20]byte
	USDCMint      [20]byte
	DelegationFee uint64
}

// storedDelegation keeps the delegate as a 0 or 20 byte string so the unset
// variant survives a round trip.
type storedDelegation struct {
	Delegator [20]byte
	Delegate  []byte
}

// MailServiceStateGet loads the mail-service singleton for program.
func (m *Manager) MailServiceStateGet(program [20]byte) (*mailservice.State, bool, error) {
	var stored storedMailServiceState
	ok, err := m.getRLP(mailServiceStateKey(program), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &mailservice.State{
		Owner:         stored.Owner,
		USDCMint:      stored.USDCMint,
		DelegationFee: stored.DelegationFee,
	}, true, nil
}

// MailServiceStatePut persists the mail-service singleton for program.
func (m *Manager) MailServiceStatePut(program [20]byte, st *mailservice.State) error {
	if st == nil {
		return fmt.Errorf("state: nil mail service state")
	}
	return m.putRLP(mailServiceStateKey(program), &storedMailServiceState{
		Owner:         st.Owner,
		USDCMint:      st.USDCMint,
		DelegationFee: st.DelegationFee,
	})
}

// MailServiceDelegationGet loads the delegation record of delegator.
func (m *Manager) MailServiceDelegationGet(program [20]byte, delegator [20]byte) (*mailservice.Delegation, bool, error) {
	var stored storedDelegation
	ok, err := m.getRLP(delegationKey(program, delegator), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	out := &mailservice.Delegation{Delegator: stored.Delegator}
	switch len(stored.Delegate) {
	case 0:
	case 20:
		var delegate [20]byte
		copy(delegate[:], stored.Delegate)
		out.Delegate = &delegate
	default:
		return nil, false, fmt.Errorf("state: invalid delegate length %d", len(stored.Delegate))
	}
	return out, true, nil
}

// MailServiceDelegationPut persists a delegation record keyed by its delegator.
func (m *Manager) MailServiceDelegationPut(program [20]byte, delegation *mailservice.Delegation) error {
	if delegation == nil {
		return fmt.Errorf("state: nil delegation")
	}
	stored := &storedDelegation{Delegator: delegation.Delegator}
	if delegation.Delegate != nil {
		stored.Delegate = append([]byte(nil), delegation.Delegate[:]...)
	}
	return m.putRLP(delegationKey(program, delegation.Delegator), stored)
}
