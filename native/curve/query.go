package curve

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Curve returns a copy of the curve record.
func (e *Engine) Curve(addr common.Address) (*Curve, error) {
	c, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// Exists reports whether a curve is stored at addr.
func (e *Engine) Exists(addr common.Address) bool {
	if e == nil || e.state == nil {
		return false
	}
	ok, err := e.state.KVGet(curveKey(addr), nil)
	return err == nil && ok
}

// CurrentPhase returns the phase of the curve.
func (e *Engine) CurrentPhase(addr common.Address) (Phase, error) {
	c, err := e.load(addr)
	if err != nil {
		return 0, err
	}
	return c.Phase, nil
}

// Reserves returns the base and issued reserves of the curve.
func (e *Engine) Reserves(addr common.Address) (*uint256.Int, *uint256.Int, error) {
	c, err := e.load(addr)
	if err != nil {
		return nil, nil, err
	}
	return c.BaseReserve, c.IssuedReserve, nil
}

// Settings returns the settings snapshot the curve was created with.
func (e *Engine) Settings(addr common.Address) (Settings, error) {
	c, err := e.load(addr)
	if err != nil {
		return Settings{}, err
	}
	return c.Settings.Clone(), nil
}

// Participant returns the pre-bonding ledger entry of user on the curve.
func (e *Engine) Participant(curveAddr, user common.Address) (*Participant, error) {
	if _, err := e.load(curveAddr); err != nil {
		return nil, err
	}
	return e.loadParticipant(curveAddr, user)
}

// Contribution returns the cumulative pre-bonding contribution of user.
func (e *Engine) Contribution(curveAddr, user common.Address) (*uint256.Int, error) {
	p, err := e.Participant(curveAddr, user)
	if err != nil {
		return nil, err
	}
	return p.Contribution, nil
}

// Allocation returns the unclaimed pre-bonding allocation of user.
func (e *Engine) Allocation(curveAddr, user common.Address) (*uint256.Int, error) {
	p, err := e.Participant(curveAddr, user)
	if err != nil {
		return nil, err
	}
	return p.Allocation, nil
}

// QuoteContribution returns the allocation a contribution would earn now.
func (e *Engine) QuoteContribution(curveAddr common.Address, amount *uint256.Int) (*uint256.Int, error) {
	c, err := e.load(curveAddr)
	if err != nil {
		return nil, err
	}
	if err := requirePhase(c, PhasePreBonding); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	pricing, err := e.PricingFor(c.Implementation)
	if err != nil {
		return nil, err
	}
	return pricing.Quote(amount, c.BaseReserve, c.IssuedReserve)
}

// QuoteBuy returns the issued tokens a buy of ethIn would deliver now.
func (e *Engine) QuoteBuy(curveAddr common.Address, ethIn *uint256.Int) (*uint256.Int, error) {
	c, err := e.load(curveAddr)
	if err != nil {
		return nil, err
	}
	if err := requirePhase(c, PhaseBonding); err != nil {
		return nil, err
	}
	if ethIn == nil || ethIn.IsZero() {
		return nil, ErrInvalidAmount
	}
	return e.quoteBuy(c, ethIn)
}

// QuoteSell returns the settlement a sell of tokenAmount would receive now.
func (e *Engine) QuoteSell(curveAddr common.Address, tokenAmount *uint256.Int) (*SellQuote, error) {
	c, err := e.load(curveAddr)
	if err != nil {
		return nil, err
	}
	if err := requirePhase(c, PhaseBonding); err != nil {
		return nil, err
	}
	if tokenAmount == nil || tokenAmount.IsZero() {
		return nil, ErrInvalidAmount
	}
	return e.quoteSell(c, tokenAmount)
}
