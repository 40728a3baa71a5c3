package mailservice

import (
	"strconv"

	"mailchain/core/types"
	"mailchain/crypto"
)

const (
	// EventTypeInitialized is emitted once when a mail-service deployment is created.
	EventTypeInitialized = "mailservice.initialized"
	// EventTypeDelegationSet is emitted whenever a delegation changes, including clears.
	EventTypeDelegationSet = "mailservice.delegation.set"
	// EventTypeFeeUpdated is emitted when the delegation fee changes.
	EventTypeFeeUpdated = "mailservice.fee.updated"
	// EventTypeFeesWithdrawn is emitted when the owner withdraws collected fees.
	EventTypeFeesWithdrawn = "mailservice.fees.withdrawn"
)

func formatAddress(addr [20]byte) string { return crypto.FromArray(addr).String() }

func InitializedEvent(owner [20]byte, mint [20]byte, fee uint64) *types.Event {
	return &types.Event{
		Type: EventTypeInitialized,
		Attributes: map[string]string{
			"owner":         formatAddress(owner),
			"mint":          formatAddress(mint),
			"delegationFee": strconv.FormatUint(fee, 10),
		},
	}
}

// DelegationSetEvent describes the delegate now active for delegator. A nil
// delegate is reported as an empty attribute.
func DelegationSetEvent(delegator [20]byte, delegate *[20]byte) *types.Event {
	value := ""
	if delegate != nil {
		value = formatAddress(*delegate)
	}
	return &types.Event{
		Type: EventTypeDelegationSet,
		Attributes: map[string]string{
			"delegator": formatAddress(delegator),
			"delegate":  value,
		},
	}
}

func FeeUpdatedEvent(oldFee uint64, newFee uint64) *types.Event {
	return &types.Event{
		Type: EventTypeFeeUpdated,
		Attributes: map[string]string{
			"oldFee": strconv.FormatUint(oldFee, 10),
			"newFee": strconv.FormatUint(newFee, 10),
		},
	}
}

func FeesWithdrawnEvent(owner [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeFeesWithdrawn,
		Attributes: map[string]string{
			"owner":  formatAddress(owner),
			"amount": strconv.FormatUint(amount, 10),
		},
	}
}
