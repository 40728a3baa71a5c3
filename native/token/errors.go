package token

import "mailchain/native/common"

var (
	ErrInsufficientFunds = common.NewError(common.KindTransfer, 6200, "insufficient funds")
	ErrUnknownMint       = common.NewError(common.KindTransfer, 6201, "unknown mint")
	ErrUnauthorized      = common.NewError(common.KindAuthorization, 6202, "signer is not the token authority")
	ErrMintExists        = common.NewError(common.KindState, 6203, "mint already exists")
)
