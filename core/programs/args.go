package programs

// Mailer methods.
const (
	MethodMailerInitialize           = "initialize"
	MethodMailerSendPriority         = "send_priority"
	MethodMailerSendPriorityPrepared = "send_priority_prepared"
	MethodMailerSend                 = "send"
	MethodMailerSendPrepared         = "send_prepared"
	MethodMailerClaimRecipientShare  = "claim_recipient_share"
	MethodMailerClaimOwnerShare      = "claim_owner_share"
	MethodMailerClaimExpiredShares   = "claim_expired_shares"
	MethodMailerSetFee               = "set_fee"
)

// Mail-service methods.
const (
	MethodServiceInitialize       = "initialize"
	MethodServiceDelegateTo       = "delegate_to"
	MethodServiceRejectDelegation = "reject_delegation"
	MethodServiceSetDelegationFee = "set_delegation_fee"
	MethodServiceWithdrawFees     = "withdraw_fees"
)

// Token methods.
const (
	MethodTokenCreateMint = "create_mint"
	MethodTokenMintTo     = "mint_to"
	MethodTokenTransfer   = "transfer"
)

type InitializeArgs struct {
	USDCMint [20]byte
}

type SendArgs struct {
	Subject string
	Body    string
}

type SendPreparedArgs struct {
	MailID string
}

type ClaimExpiredArgs struct {
	Recipient [20]byte
}

type SetFeeArgs struct {
	Fee uint64
}

// DelegateArgs carries an optional delegate encoded as 0 (clear) or 20 bytes.
type DelegateArgs struct {
	Delegate []byte
}

type RejectDelegationArgs struct {
	Delegator [20]byte
}

type WithdrawArgs struct {
	Amount uint64
}

type CreateMintArgs struct {
	Mint     [20]byte
	Decimals uint8
}

type MintToArgs struct {
	Mint   [20]byte
	To     [20]byte
	Amount uint64
}

type TransferArgs struct {
	Mint   [20]byte
	To     [20]byte
	Amount uint64
}

// NoArgs is used by methods without parameters.
type NoArgs struct{}
