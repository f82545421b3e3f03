package events

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func formatAddress(addr common.Address) string {
	if addr == (common.Address{}) {
		return ""
	}
	return strings.ToLower(addr.Hex())
}

// FormatAmount renders a 256-bit amount as a base-10 string, treating nil as zero.
func FormatAmount(v *uint256.Int) string { return formatAmount(v) }

// FormatAddress renders an address as lowercase hex, or the empty string for
// the zero address.
func FormatAddress(addr common.Address) string { return formatAddress(addr) }
