package mailer

import (
	"strconv"

	"mailchain/core/types"
	"mailchain/crypto"
)

const (
	// EventTypeInitialized is emitted once when a mailer deployment is created.
	EventTypeInitialized = "mailer.initialized"
	// EventTypeMailSent is emitted for every send carrying a subject and body.
	EventTypeMailSent = "mailer.mail.sent"
	// EventTypePreparedMailSent is emitted for sends that reference a prepared mail id.
	EventTypePreparedMailSent = "mailer.mail.prepared_sent"
	// EventTypeSharesRecorded is emitted when a priority fee is split.
	EventTypeSharesRecorded = "mailer.shares.recorded"
	// EventTypeRecipientClaimed is emitted when a recipient withdraws accrued shares.
	EventTypeRecipientClaimed = "mailer.recipient.claimed"
	// EventTypeOwnerClaimed is emitted when the operator withdraws its balance.
	EventTypeOwnerClaimed = "mailer.owner.claimed"
	// EventTypeSharesExpired is emitted when unclaimed shares are swept to the operator.
	EventTypeSharesExpired = "mailer.shares.expired"
	// EventTypeFeeUpdated is emitted when the send fee changes.
	EventTypeFeeUpdated = "mailer.fee.updated"
)

func formatAddress(addr [20]byte) string { return crypto.FromArray(addr).String() }

func formatAmount(v uint64) string { return strconv.FormatUint(v, 10) }

// InitializedEvent returns the payload announcing a new deployment.
func InitializedEvent(owner [20]byte, mint [20]byte, sendFee uint64) *types.Event {
	return &types.Event{
		Type: EventTypeInitialized,
		Attributes: map[string]string{
			"owner":   formatAddress(owner),
			"mint":    formatAddress(mint),
			"sendFee": formatAmount(sendFee),
		},
	}
}

// MailSentEvent returns the payload for a delivered message. Messages are
// always addressed to their sender.
func MailSentEvent(from [20]byte, subject string, body string) *types.Event {
	return &types.Event{
		Type: EventTypeMailSent,
		Attributes: map[string]string{
			"from":    formatAddress(from),
			"to":      formatAddress(from),
			"subject": subject,
			"body":    body,
		},
	}
}

// PreparedMailSentEvent returns the payload for a message sent by reference.
func PreparedMailSentEvent(from [20]byte, mailID string) *types.Event {
	return &types.Event{
		Type: EventTypePreparedMailSent,
		Attributes: map[string]string{
			"from":   formatAddress(from),
			"to":     formatAddress(from),
			"mailId": mailID,
		},
	}
}

// SharesRecordedEvent returns the payload describing a priority fee split.
func SharesRecordedEvent(recipient [20]byte, recipientAmount uint64, ownerAmount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeSharesRecorded,
		Attributes: map[string]string{
			"recipient":       formatAddress(recipient),
			"recipientAmount": formatAmount(recipientAmount),
			"ownerAmount":     formatAmount(ownerAmount),
		},
	}
}

// RecipientClaimedEvent returns the payload for a recipient payout.
func RecipientClaimedEvent(recipient [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRecipientClaimed,
		Attributes: map[string]string{
			"recipient": formatAddress(recipient),
			"amount":    formatAmount(amount),
		},
	}
}

// OwnerClaimedEvent returns the payload for an operator payout.
func OwnerClaimedEvent(amount uint64) *types.Event {
	return &types.Event{
		Type:       EventTypeOwnerClaimed,
		Attributes: map[string]string{"amount": formatAmount(amount)},
	}
}

// SharesExpiredEvent returns the payload for an expiry sweep.
func SharesExpiredEvent(recipient [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeSharesExpired,
		Attributes: map[string]string{
			"recipient": formatAddress(recipient),
			"amount":    formatAmount(amount),
		},
	}
}

// FeeUpdatedEvent returns the payload for a send fee change.
func FeeUpdatedEvent(oldFee uint64, newFee uint64) *types.Event {
	return &types.Event{
		Type: EventTypeFeeUpdated,
		Attributes: map[string]string{
			"oldFee": formatAmount(oldFee),
			"newFee": formatAmount(newFee),
		},
	}
}
