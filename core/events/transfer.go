package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/core/types"
)

const (
	// TypeTransfer is emitted for every asset ledger balance movement.
	TypeTransfer = "token.transfer"
)

type Transfer struct {
	Asset  common.Address
	From   common.Address
	To     common.Address
	Amount *uint256.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"asset":  formatAddress(e.Asset),
		"amount": formatAmount(e.Amount),
	}
	if from := formatAddress(e.From); from != "" {
		attrs["from"] = from
	}
	if to := formatAddress(e.To); to != "" {
		attrs["to"] = to
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
