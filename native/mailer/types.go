package mailer

const (
	// SendFee is the default base fee charged for a priority send, in token base units.
	SendFee uint64 = 100_000
	// ClaimPeriod is the number of seconds a recipient may claim accrued shares.
	ClaimPeriod int64 = 60 * 24 * 60 * 60
	// OwnerShare is the operator's percentage of every fee.
	OwnerShare uint64 = 10
	// RecipientShare is the recipient's percentage of a priority fee. It is
	// applied implicitly as total minus the owner share.
	RecipientShare uint64 = 90
)

// State is the singleton configuration and operator ledger of a mailer deployment.
type State struct {
	Owner          [20]byte
	USDCMint       [20]byte
	SendFee        uint64
	OwnerClaimable uint64
}

// Clone returns a copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// RecipientClaim tracks the revenue share accrued by a sender of priority mail.
// Timestamp marks the start of the open claim window and is zero whenever
// Amount is zero.
type RecipientClaim struct {
	Recipient [20]byte
	Amount    uint64
	Timestamp int64
}

// Clone returns a copy of the claim.
func (c *RecipientClaim) Clone() *RecipientClaim {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WindowEnd returns the last instant at which the claim can be paid out.
func (c *RecipientClaim) WindowEnd() int64 {
	if c == nil || c.Amount == 0 {
		return 0
	}
	return c.Timestamp + ClaimPeriod
}

// ClaimPhase enumerates the lifecycle of a recipient claim.
type ClaimPhase string

const (
	ClaimPhaseEmpty     ClaimPhase = "empty"
	ClaimPhaseClaimable ClaimPhase = "claimable"
	ClaimPhaseExpired   ClaimPhase = "expired"
)

// ClaimStatus is a read-only view of a claim evaluated at a point in time.
type ClaimStatus struct {
	Recipient [20]byte
	Phase     ClaimPhase
	Amount    uint64
	Timestamp int64
	WindowEnd int64
}
