// Package pool defines the contract the curve engine uses to migrate reserves
// to a concentrated-liquidity venue, plus an in-process reference venue.
package pool

import (
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Capability creates venue pools and full-range positions. Implementations
// must either complete fully or fail without side effects.
type Capability interface {
	CreateAndInitializePool(caller, factory, issued, base common.Address, feeTier uint32, baseReserve, issuedReserve *uint256.Int) (common.Address, error)
	CreatePosition(caller, manager, issued, base common.Address, feeTier uint32, tickSpacing int32, baseAmount, issuedAmount *uint256.Int) (uint64, error)
}

// PositionManager tracks ownership of venue positions and the fees they owe.
type PositionManager interface {
	OwnerOf(manager common.Address, positionID uint64) (common.Address, error)
	TransferPosition(caller, manager common.Address, positionID uint64, to common.Address) error
	Collect(caller, manager common.Address, positionID uint64, recipient common.Address) (*uint256.Int, *uint256.Int, error)
}

// Pool is a venue pool record. Token0 sorts below Token1.
type Pool struct {
	Address      common.Address
	Token0       common.Address
	Token1       common.Address
	Fee          uint32
	TickSpacing  int32
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	Reserve0     *uint256.Int
	Reserve1     *uint256.Int
	CreatedAt    uint64
}

// Clone returns a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.SqrtPriceX96 = cloneAmount(p.SqrtPriceX96)
	clone.Liquidity = cloneAmount(p.Liquidity)
	clone.Reserve0 = cloneAmount(p.Reserve0)
	clone.Reserve1 = cloneAmount(p.Reserve1)
	return &clone
}

// Position is a liquidity position minted by the venue.
type Position struct {
	ID          uint64
	Pool        common.Address
	Owner       common.Address
	TickLower   int32
	TickUpper   int32
	Liquidity   *uint256.Int
	Amount0     *uint256.Int
	Amount1     *uint256.Int
	TokensOwed0 *uint256.Int
	TokensOwed1 *uint256.Int
	CreatedAt   uint64
}

// Clone returns a deep copy of the position record.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Liquidity = cloneAmount(p.Liquidity)
	clone.Amount0 = cloneAmount(p.Amount0)
	clone.Amount1 = cloneAmount(p.Amount1)
	clone.TokensOwed0 = cloneAmount(p.TokensOwed0)
	clone.TokensOwed1 = cloneAmount(p.TokensOwed1)
	return &clone
}

// RLP has no signed integers, so ticks are stored as their two's complement
// bit patterns.

type storedPool struct {
	Address      common.Address
	Token0       common.Address
	Token1       common.Address
	Fee          uint32
	TickSpacing  uint32
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	Reserve0     *uint256.Int
	Reserve1     *uint256.Int
	CreatedAt    uint64
}

// EncodeRLP implements rlp.Encoder.
func (p *Pool) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &storedPool{
		Address:      p.Address,
		Token0:       p.Token0,
		Token1:       p.Token1,
		Fee:          p.Fee,
		TickSpacing:  uint32(p.TickSpacing),
		SqrtPriceX96: cloneAmount(p.SqrtPriceX96),
		Liquidity:    cloneAmount(p.Liquidity),
		Reserve0:     cloneAmount(p.Reserve0),
		Reserve1:     cloneAmount(p.Reserve1),
		CreatedAt:    p.CreatedAt,
	})
}

// DecodeRLP implements rlp.Decoder.
func (p *Pool) DecodeRLP(s *rlp.Stream) error {
	var stored storedPool
	if err := s.Decode(&stored); err != nil {
		return err
	}
	*p = Pool{
		Address:      stored.Address,
		Token0:       stored.Token0,
		Token1:       stored.Token1,
		Fee:          stored.Fee,
		TickSpacing:  int32(stored.TickSpacing),
		SqrtPriceX96: stored.SqrtPriceX96,
		Liquidity:    stored.Liquidity,
		Reserve0:     stored.Reserve0,
		Reserve1:     stored.Reserve1,
		CreatedAt:    stored.CreatedAt,
	}
	return nil
}

type storedPosition struct {
	ID          uint64
	Pool        common.Address
	Owner       common.Address
	TickLower   uint32
	TickUpper   uint32
	Liquidity   *uint256.Int
	Amount0     *uint256.Int
	Amount1     *uint256.Int
	TokensOwed0 *uint256.Int
	TokensOwed1 *uint256.Int
	CreatedAt   uint64
}

// EncodeRLP implements rlp.Encoder.
func (p *Position) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &storedPosition{
		ID:          p.ID,
		Pool:        p.Pool,
		Owner:       p.Owner,
		TickLower:   uint32(p.TickLower),
		TickUpper:   uint32(p.TickUpper),
		Liquidity:   cloneAmount(p.Liquidity),
		Amount0:     cloneAmount(p.Amount0),
		Amount1:     cloneAmount(p.Amount1),
		TokensOwed0: cloneAmount(p.TokensOwed0),
		TokensOwed1: cloneAmount(p.TokensOwed1),
		CreatedAt:   p.CreatedAt,
	})
}

// DecodeRLP implements rlp.Decoder.
func (p *Position) DecodeRLP(s *rlp.Stream) error {
	var stored storedPosition
	if err := s.Decode(&stored); err != nil {
		return err
	}
	*p = Position{
		ID:          stored.ID,
		Pool:        stored.Pool,
		Owner:       stored.Owner,
		TickLower:   int32(stored.TickLower),
		TickUpper:   int32(stored.TickUpper),
		Liquidity:   stored.Liquidity,
		Amount0:     stored.Amount0,
		Amount1:     stored.Amount1,
		TokensOwed0: stored.TokensOwed0,
		TokensOwed1: stored.TokensOwed1,
		CreatedAt:   stored.CreatedAt,
	}
	return nil
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
