package mailservice

import "mailchain/native/common"

var (
	ErrOnlyOwner            = common.ErrOnlyOwner
	ErrNoDelegationToReject = common.NewError(common.KindState, 6001, "no delegation to reject")
	ErrInvalidDelegator     = common.NewError(common.KindAuthorization, 6002, "invalid delegator")
	// ErrNotDelegate is returned when someone other than the current delegate
	// rejects a delegation.
	ErrNotDelegate = common.NewError(common.KindAuthorization, 6003, "no delegation to reject")
)
