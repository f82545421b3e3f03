package pool

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// MinTick and MaxTick bound the tick range of a venue pool.
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	// MinSqrtRatio is the sqrt price at MinTick.
	MinSqrtRatio = big.NewInt(4295128739)
	// MaxSqrtRatio is the sqrt price at MaxTick.
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

var tickSpacings = map[uint32]int32{
	100:    1,
	500:    10,
	3_000:  60,
	10_000: 200,
}

// TickSpacing returns the tick spacing enabled for a fee tier.
func TickSpacing(feeTier uint32) (int32, bool) {
	spacing, ok := tickSpacings[feeTier]
	return spacing, ok
}

// FullRangeTicks returns the widest usable tick bounds for a spacing.
func FullRangeTicks(spacing int32) (int32, int32) {
	if spacing <= 0 {
		return MinTick, MaxTick
	}
	lower := (MinTick / spacing) * spacing
	upper := (MaxTick / spacing) * spacing
	return lower, upper
}

// SortTokens orders two token addresses the way the venue keys its pools.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// EncodeSqrtPriceX96 returns sqrt(amount1/amount0) as a Q64.96 fixed point
// number, the price encoding the venue initialises pools with.
func EncodeSqrtPriceX96(amount0, amount1 *uint256.Int) (*uint256.Int, error) {
	if amount0 == nil || amount1 == nil || amount0.IsZero() || amount1.IsZero() {
		return nil, ErrInvalidReserves
	}
	ratio := new(big.Int).Lsh(amount1.ToBig(), 192)
	ratio.Quo(ratio, amount0.ToBig())
	price := new(big.Int).Sqrt(ratio)
	if price.Cmp(MinSqrtRatio) < 0 || price.Cmp(MaxSqrtRatio) >= 0 {
		return nil, ErrPriceOutOfRange
	}
	out, overflow := uint256.FromBig(price)
	if overflow {
		return nil, ErrPriceOutOfRange
	}
	return out, nil
}

// fullRangeLiquidity approximates the liquidity of a full-range deposit as
// the geometric mean of both amounts.
func fullRangeLiquidity(amount0, amount1 *uint256.Int) *uint256.Int {
	product := new(big.Int).Mul(amount0.ToBig(), amount1.ToBig())
	liquidity, _ := uint256.FromBig(new(big.Int).Sqrt(product))
	return liquidity
}
