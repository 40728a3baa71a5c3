package events

import "strconv"

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}
