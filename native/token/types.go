package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// DefaultDecimals is the precision of every asset ledger created by a factory.
const DefaultDecimals uint8 = 18

// FixedSupply is the total supply minted once into every issued asset.
var FixedSupply = new(uint256.Int).Mul(uint256.NewInt(1_000_000_000), uint256.NewInt(1_000_000_000_000_000_000))

// Asset is the metadata record of a fungible asset ledger.
type Asset struct {
	Address        common.Address
	Name           string
	Symbol         string
	Decimals       uint8
	TotalSupply    *uint256.Int
	Minted         bool
	Creator        common.Address
	Implementation common.Address
	CreatedAt      uint64
}

// Clone returns a deep copy of the asset record.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	clone.TotalSupply = cloneAmount(a.TotalSupply)
	return &clone
}

// Definition describes a ledger to be created.
type Definition struct {
	Address        common.Address
	Name           string
	Symbol         string
	Decimals       uint8
	Creator        common.Address
	Implementation common.Address
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
