package mailer

import "mailchain/native/common"

var (
	ErrOnlyOwner             = common.ErrOnlyOwner
	ErrNoClaimableAmount     = common.NewError(common.KindState, 6001, "no claimable amount available")
	ErrClaimPeriodExpired    = common.NewError(common.KindWindow, 6002, "claim period has expired")
	ErrClaimPeriodNotExpired = common.NewError(common.KindWindow, 6003, "claim period has not expired yet")
	ErrInvalidRecipient      = common.NewError(common.KindAuthorization, 6004, "invalid recipient")
)
