package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"curvefoundry/native/curve"
)

// Transaction payloads are RLP encoded into Transaction.Data. The target of
// an operation is always Transaction.To and attached base asset value is
// always Transaction.Value, so payloads only carry the remaining arguments.

// TransferPayload moves Amount of Asset from the sender to Transaction.To.
type TransferPayload struct {
	Asset  common.Address
	Amount *uint256.Int
}

// DeploySystemPayload asks the registry for a factory and vault pair.
type DeploySystemPayload struct {
	Administrator common.Address
	DeploymentFee *uint256.Int
	Settings      curve.Settings
}

// ImplementationPayload swaps the template of one kind.
type ImplementationPayload struct {
	Kind           string
	Implementation common.Address
}

// FeePayload sets a deployment fee.
type FeePayload struct {
	Fee *uint256.Int
}

// RecipientPayload names where swept funds, allocations or positions go.
type RecipientPayload struct {
	Recipient common.Address
}

// OwnerPayload names a new owner.
type OwnerPayload struct {
	Owner common.Address
}

// DeployInstancePayload names the issued asset of a new curve.
type DeployInstancePayload struct {
	Name   string
	Symbol string
}

// SettingsPayload replaces a factory's curve settings.
type SettingsPayload struct {
	Settings curve.Settings
}

// BuyPayload bounds the tokens received for the attached value.
type BuyPayload struct {
	MinTokensOut *uint256.Int
}

// SellPayload sells Amount tokens back to the curve.
type SellPayload struct {
	Amount      *uint256.Int
	MinValueOut *uint256.Int
}

// PositionPayload addresses a locked position in a vault.
type PositionPayload struct {
	PositionID uint64
	Recipient  common.Address
}

// AccrueFeesPayload credits trading fees, paid by the sender, to a venue
// position.
type AccrueFeesPayload struct {
	PositionID uint64
	Amount0    *uint256.Int
	Amount1    *uint256.Int
}

// EncodePayload RLP encodes a payload for Transaction.Data.
func EncodePayload(payload interface{}) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return rlp.EncodeToBytes(payload)
}

func decodePayload(data []byte, out interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
