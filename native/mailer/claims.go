package mailer

// claimable reports whether a claim opened at timestamp may still be paid
// out at now. The boundary instant belongs to the claimable side.
func claimable(timestamp int64, now int64) bool {
	return now <= timestamp+ClaimPeriod
}

// ClaimRecipientShare pays the caller's accrued revenue share out of program
// custody while the claim window is open.
func (e *Engine) ClaimRecipientShare(caller [20]byte) (uint64, error) {
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	claim, err := e.loadClaim(caller)
	if err != nil {
		return 0, err
	}
	if claim.Recipient != caller {
		return 0, ErrInvalidRecipient
	}
	if claim.Amount == 0 {
		return 0, ErrNoClaimableAmount
	}
	if !claimable(claim.Timestamp, e.now()) {
		return 0, ErrClaimPeriodExpired
	}

	amount := claim.Amount
	if err := e.gateway.Transfer(st.USDCMint, e.custody, caller, e.custody, amount); err != nil {
		return 0, err
	}
	claim.Amount = 0
	claim.Timestamp = 0
	if err := e.state.MailerClaimPut(e.program, claim); err != nil {
		return 0, err
	}
	e.emit(RecipientClaimedEvent(caller, amount))
	return amount, nil
}

// ClaimOwnerShare pays the operator's accumulated balance to the owner.
func (e *Engine) ClaimOwnerShare(caller [20]byte) (uint64, error) {
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	if caller != st.Owner {
		return 0, ErrOnlyOwner
	}
	if st.OwnerClaimable == 0 {
		return 0, ErrNoClaimableAmount
	}

	amount := st.OwnerClaimable
	if err := e.gateway.Transfer(st.USDCMint, e.custody, st.Owner, e.custody, amount); err != nil {
		return 0, err
	}
	st.OwnerClaimable = 0
	if err := e.state.MailerStatePut(e.program, st); err != nil {
		return 0, err
	}
	e.emit(OwnerClaimedEvent(amount))
	return amount, nil
}

// ClaimExpiredShares moves a recipient's unclaimed shares into the operator
// balance once the claim window has closed. Funds stay in custody.
func (e *Engine) ClaimExpiredShares(caller [20]byte, recipient [20]byte) (uint64, error) {
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	if caller != st.Owner {
		return 0, ErrOnlyOwner
	}
	claim, err := e.loadClaim(recipient)
	if err != nil {
		return 0, err
	}
	if claim.Amount == 0 {
		return 0, ErrNoClaimableAmount
	}
	if claimable(claim.Timestamp, e.now()) {
		return 0, ErrClaimPeriodNotExpired
	}

	amount := claim.Amount
	ownerClaimable, err := addAmount(st.OwnerClaimable, amount)
	if err != nil {
		return 0, err
	}
	claim.Amount = 0
	claim.Timestamp = 0
	st.OwnerClaimable = ownerClaimable
	if err := e.state.MailerClaimPut(e.program, claim); err != nil {
		return 0, err
	}
	if err := e.state.MailerStatePut(e.program, st); err != nil {
		return 0, err
	}
	e.emit(SharesExpiredEvent(claim.Recipient, amount))
	return amount, nil
}

// Claim returns the claim recorded for recipient. Recipients that never sent
// priority mail report an empty claim.
func (e *Engine) Claim(recipient [20]byte) (*RecipientClaim, error) {
	if _, err := e.loadState(); err != nil {
		return nil, err
	}
	return e.loadClaim(recipient)
}

// ClaimStatus evaluates recipient's claim against the current clock.
func (e *Engine) ClaimStatus(recipient [20]byte) (*ClaimStatus, error) {
	claim, err := e.Claim(recipient)
	if err != nil {
		return nil, err
	}
	status := &ClaimStatus{
		Recipient: recipient,
		Phase:     ClaimPhaseEmpty,
		Amount:    claim.Amount,
		Timestamp: claim.Timestamp,
		WindowEnd: claim.WindowEnd(),
	}
	if claim.Amount == 0 {
		return status, nil
	}
	if claimable(claim.Timestamp, e.now()) {
		status.Phase = ClaimPhaseClaimable
	} else {
		status.Phase = ClaimPhaseExpired
	}
	return status, nil
}
