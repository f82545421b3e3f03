package curve

import "github.com/holiman/uint256"

// Pricing is the stateless settlement strategy shared by every curve cloned
// from the same implementation.
type Pricing interface {
	// Quote returns the output of swapping amountIn against the reserves.
	Quote(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error)
	// Fee returns the portion of gross withheld at feeBps.
	Fee(gross *uint256.Int, feeBps uint32) (*uint256.Int, error)
}

// ConstantProduct prices swaps along x*y=k with truncating division, so every
// quote rounds in favour of the curve.
type ConstantProduct struct{}

// Quote computes amountIn*reserveOut/(reserveIn+amountIn).
func (ConstantProduct) Quote(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountIn == nil || reserveIn == nil || reserveOut == nil {
		return new(uint256.Int), nil
	}
	denominator, overflow := new(uint256.Int).AddOverflow(reserveIn, amountIn)
	if overflow {
		return nil, ErrMathOverflow
	}
	if denominator.IsZero() {
		return new(uint256.Int), nil
	}
	out, overflow := new(uint256.Int).MulDivOverflow(amountIn, reserveOut, denominator)
	if overflow {
		return nil, ErrMathOverflow
	}
	return out, nil
}

// Fee computes gross*feeBps/10000.
func (ConstantProduct) Fee(gross *uint256.Int, feeBps uint32) (*uint256.Int, error) {
	if gross == nil || feeBps == 0 {
		return new(uint256.Int), nil
	}
	fee, overflow := new(uint256.Int).MulDivOverflow(gross, uint256.NewInt(uint64(feeBps)), uint256.NewInt(bpsDenominator))
	if overflow {
		return nil, ErrMathOverflow
	}
	return fee, nil
}
