package mailservice

// DelegationFee is the default fee charged whenever a delegate is assigned,
// in token base units.
const DelegationFee uint64 = 10_000_000

// State is the singleton configuration of a mail-service deployment.
type State struct {
	Owner         [20]byte
	USDCMint      [20]byte
	DelegationFee uint64
}

// Clone returns a copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// Delegation records which identity, if any, may send on behalf of a
// delegator. A nil Delegate means no delegate is active.
type Delegation struct {
	Delegator [20]byte
	Delegate  *[20]byte
}

// Clone returns a deep copy of the delegation.
func (d *Delegation) Clone() *Delegation {
	if d == nil {
		return nil
	}
	clone := &Delegation{Delegator: d.Delegator}
	if d.Delegate != nil {
		delegate := *d.Delegate
		clone.Delegate = &delegate
	}
	return clone
}

// Active reports the current delegate.
func (d *Delegation) Active() ([20]byte, bool) {
	if d == nil || d.Delegate == nil {
		return [20]byte{}, false
	}
	return *d.Delegate, true
}
