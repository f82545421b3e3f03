package events

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/core/types"
)

const (
	// TypeTokenSupply is emitted whenever a token supply is minted.
	TypeTokenSupply = "token.supply"

	// SupplyReasonMint identifies the one-time mint of an asset ledger.
	SupplyReasonMint = "mint"
)

// TokenSupply captures a supply delta for a fungible token.
type TokenSupply struct {
	Asset  common.Address
	Symbol string
	Total  *uint256.Int
	Delta  *uint256.Int
	Reason string
}

func (TokenSupply) EventType() string { return TypeTokenSupply }

// Event renders the structured supply change event for downstream consumers.
func (e TokenSupply) Event() *types.Event {
	attrs := map[string]string{
		"asset": formatAddress(e.Asset),
		"total": formatAmount(e.Total),
	}
	symbol := strings.ToUpper(strings.TrimSpace(e.Symbol))
	if symbol == "" {
		symbol = "UNKNOWN"
	}
	attrs["symbol"] = symbol
	if e.Delta != nil {
		attrs["delta"] = formatAmount(e.Delta)
	}
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeTokenSupply, Attributes: attrs}
}
