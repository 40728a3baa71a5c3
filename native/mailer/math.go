package mailer

import (
	"math"

	"github.com/holiman/uint256"

	"mailchain/native/common"
)

var hundred = uint256.NewInt(100)

// splitFee divides total into the operator share and the recipient share.
// The owner part is floored and the recipient receives the remainder, so the
// two always sum to total.
func splitFee(total uint64) (owner uint64, recipient uint64) {
	product := new(uint256.Int).Mul(uint256.NewInt(total), uint256.NewInt(OwnerShare))
	product.Div(product, hundred)
	owner = product.Uint64()
	return owner, total - owner
}

// ownerFee is the amount charged for a standard send.
func ownerFee(sendFee uint64) uint64 {
	owner, _ := splitFee(sendFee)
	return owner
}

func addAmount(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, common.ErrArithmeticOverflow
	}
	return a + b, nil
}
