package curve

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/core/events"
	"curvefoundry/core/types"
	"curvefoundry/native/pool"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type ledger interface {
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
	BalanceOf(asset, holder common.Address) (*uint256.Int, error)
}

type locker interface {
	Lock(caller, vault common.Address, positionID uint64, owner common.Address) error
}

// Engine runs every curve instance. Instances share only the pricing
// strategies registered per implementation address.
type Engine struct {
	state          engineState
	ledger         ledger
	venue          pool.Capability
	vaults         locker
	emitter        events.Emitter
	nowFn          func() int64
	pricing        map[common.Address]Pricing
	defaultPricing Pricing
}

// NewEngine constructs a curve engine pricing unregistered implementations
// with ConstantProduct.
func NewEngine() *Engine {
	return &Engine{
		emitter:        events.NoopEmitter{},
		nowFn:          func() int64 { return time.Now().Unix() },
		pricing:        make(map[common.Address]Pricing),
		defaultPricing: ConstantProduct{},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the asset ledger used to settle trades.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetVenue configures the external pool capability used at finalization.
func (e *Engine) SetVenue(venue pool.Capability) { e.venue = venue }

// SetLocker configures the custody vault engine positions are locked in.
func (e *Engine) SetLocker(l locker) { e.vaults = l }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// RegisterPricing binds a pricing strategy to a curve implementation address.
func (e *Engine) RegisterPricing(implementation common.Address, p Pricing) {
	if p == nil {
		delete(e.pricing, implementation)
		return
	}
	e.pricing[implementation] = p
}

// SetDefaultPricing configures the strategy used by implementations without
// a registered one. A nil strategy makes unregistered implementations fail.
func (e *Engine) SetDefaultPricing(p Pricing) { e.defaultPricing = p }

// PricingFor resolves the strategy that prices curves of implementation.
func (e *Engine) PricingFor(implementation common.Address) (Pricing, error) {
	if p, ok := e.pricing[implementation]; ok {
		return p, nil
	}
	if e.defaultPricing != nil {
		return e.defaultPricing, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPricing, implementation.Hex())
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn())
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.ledger == nil {
		return fmt.Errorf("%w: ledger", ErrCollaboratorMissing)
	}
	return nil
}

func (e *Engine) load(addr common.Address) (*Curve, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var c Curve
	ok, err := e.state.KVGet(curveKey(addr), &c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCurveNotFound, addr.Hex())
	}
	c.ensureDefaults()
	if err := checkConsistency(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (e *Engine) save(c *Curve) error {
	return e.state.KVPut(curveKey(c.Address), c)
}

func (e *Engine) loadParticipant(curveAddr, user common.Address) (*Participant, error) {
	var p Participant
	if _, err := e.state.KVGet(participantKey(curveAddr, user), &p); err != nil {
		return nil, err
	}
	p.ensureDefaults()
	return &p, nil
}

// Create stores a new curve in PreBonding with the virtual base as its base
// reserve and the whole supply as its issued reserve.
func (e *Engine) Create(params CreateParams) (*Curve, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if params.Address == (common.Address{}) || params.Token == (common.Address{}) || params.Admin == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if params.TotalSupply == nil || params.TotalSupply.IsZero() {
		return nil, ErrInvalidAmount
	}
	settings, err := PrepareSettings(params.Settings)
	if err != nil {
		return nil, err
	}
	if _, err := e.PricingFor(params.Implementation); err != nil {
		return nil, err
	}
	if ok, err := e.state.KVGet(curveKey(params.Address), nil); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrCurveExists, params.Address.Hex())
	}
	c := &Curve{
		Address:        params.Address,
		Token:          params.Token,
		Factory:        params.Factory,
		Vault:          params.Vault,
		Admin:          params.Admin,
		Implementation: params.Implementation,
		Settings:       settings,
		Phase:          PhasePreBonding,
		BaseReserve:    settings.VirtualBase.Clone(),
		IssuedReserve:  params.TotalSupply.Clone(),
		TotalSupply:    params.TotalSupply.Clone(),
		CreatedAt:      e.now(),
	}
	c.ensureDefaults()
	if err := e.save(c); err != nil {
		return nil, err
	}
	e.emit(CurveCreatedEvent(c))
	return c.Clone(), nil
}

// ContributePreBonding records a pre-bonding contribution whose base amount
// has already been credited to the curve. The allocation is priced against
// the running reserves and stays locked until finalization. Reaching the
// pre-bonding target moves the curve to Bonding.
func (e *Engine) ContributePreBonding(caller, curveAddr common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	c, err := e.load(curveAddr)
	if err != nil {
		return nil, err
	}
	if err := requirePhase(c, PhasePreBonding); err != nil {
		return nil, err
	}
	target := c.Settings.PreBondingTarget
	remaining, err := sub(target, c.TotalPreBondingContributions)
	if err != nil {
		return nil, err
	}
	if amount.Gt(remaining) {
		return nil, fmt.Errorf("%w: remaining %s", ErrTargetExceeded, remaining.Dec())
	}
	if amount.Lt(c.Settings.MinContribution) {
		return nil, fmt.Errorf("%w: minimum %s", ErrBelowMinContribution, c.Settings.MinContribution.Dec())
	}
	pricing, err := e.PricingFor(c.Implementation)
	if err != nil {
		return nil, err
	}
	tokensOut, err := pricing.Quote(amount, c.BaseReserve, c.IssuedReserve)
	if err != nil {
		return nil, err
	}
	if tokensOut.IsZero() {
		return nil, ErrZeroOutput
	}
	participant, err := e.loadParticipant(curveAddr, caller)
	if err != nil {
		return nil, err
	}

	if participant.Contribution, err = add(participant.Contribution, amount); err != nil {
		return nil, err
	}
	if participant.Allocation, err = add(participant.Allocation, tokensOut); err != nil {
		return nil, err
	}
	participant.Locked = true
	if c.TotalPreBondingContributions, err = add(c.TotalPreBondingContributions, amount); err != nil {
		return nil, err
	}
	if c.BaseReserve, err = add(c.BaseReserve, amount); err != nil {
		return nil, err
	}
	if c.TotalBaseCollected, err = add(c.TotalBaseCollected, amount); err != nil {
		return nil, err
	}
	if c.TotalAllocated, err = add(c.TotalAllocated, tokensOut); err != nil {
		return nil, err
	}
	if c.OutstandingAllocations, err = add(c.OutstandingAllocations, tokensOut); err != nil {
		return nil, err
	}
	if c.TotalAllocated.Gt(c.TotalSupply) {
		return nil, fmt.Errorf("%w: allocations exceed supply", ErrMathOverflow)
	}
	bonded := c.TotalPreBondingContributions.Eq(target)
	if bonded {
		if err := transition(c, PhaseBonding); err != nil {
			return nil, err
		}
		if c.BaseReserve, err = add(c.Settings.VirtualBase, c.TotalPreBondingContributions); err != nil {
			return nil, err
		}
		if c.IssuedReserve, err = sub(c.TotalSupply, c.TotalAllocated); err != nil {
			return nil, err
		}
	}
	if err := e.save(c); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(participantKey(curveAddr, caller), participant); err != nil {
		return nil, err
	}
	e.emit(PreBondingContributionEvent(curveAddr, caller, amount, tokensOut))
	if bonded {
		e.emit(PhaseChangedEvent(curveAddr, PhasePreBonding, PhaseBonding))
	}
	return tokensOut, nil
}

// BuyTokens settles a buy whose base amount has already been credited to the
// curve and delivers the issued tokens to the caller.
func (e *Engine) BuyTokens(caller, curveAddr common.Address, ethIn, minTokensOut *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if ethIn == nil || ethIn.IsZero() {
		return nil, ErrInvalidAmount
	}
	c, err := e.load(curveAddr)
	if err != nil {
		return nil, err
	}
	if err := requirePhase(c, PhaseBonding); err != nil {
		return nil, err
	}
	tokensOut, err := e.quoteBuy(c, ethIn)
	if err != nil {
		return nil, err
	}
	if minTokensOut != nil && tokensOut.Lt(minTokensOut) {
		return nil, fmt.Errorf("%w: got %s, want at least %s", ErrSlippage, tokensOut.Dec(), minTokensOut.Dec())
	}

	if c.BaseReserve, err = add(c.BaseReserve, ethIn); err != nil {
		return nil, err
	}
	if c.IssuedReserve, err = sub(c.IssuedReserve, tokensOut); err != nil {
		return nil, err
	}
	if c.TotalBaseCollected, err = add(c.TotalBaseCollected, ethIn); err != nil {
		return nil, err
	}
	if err := e.save(c); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(c.Token, c.Address, caller, tokensOut); err != nil {
		return nil, err
	}
	e.emit(TokensPurchasedEvent(curveAddr, caller, ethIn, tokensOut))
	return tokensOut, nil
}

// SellTokens returns issued tokens to the curve. The sell fee is withheld
// from the gross output and forwarded to the fee recipient when one is set.
func (e *Engine) SellTokens(caller, curveAddr common.Address, tokenAmount, minEthOut *uint256.Int) (*SellQuote, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if tokenAmount == nil || tokenAmount.IsZero() {
		return nil, ErrInvalidAmount
	}
	c, err := e.load(curveAddr)
	if err != nil {
		return nil, err
	}
	if err := requirePhase(c, PhaseBonding); err != nil {
		return nil, err
	}
	quote, err := e.quoteSell(c, tokenAmount)
	if err != nil {
		return nil, err
	}
	if minEthOut != nil && quote.Net.Lt(minEthOut) {
		return nil, fmt.Errorf("%w: got %s, want at least %s", ErrSlippage, quote.Net.Dec(), minEthOut.Dec())
	}
	balance, err := e.ledger.BalanceOf(c.Token, caller)
	if err != nil {
		return nil, err
	}
	if balance.Lt(tokenAmount) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance.Dec(), tokenAmount.Dec())
	}
	forwardFee := c.Settings.FeeRecipient != (common.Address{}) && !quote.Fee.IsZero()
	outflow := quote.Net.Clone()
	if forwardFee {
		if outflow, err = add(outflow, quote.Fee); err != nil {
			return nil, err
		}
	}
	if outflow.Gt(c.TotalBaseCollected) {
		return nil, fmt.Errorf("%w: need %s, hold %s", ErrInsufficientLiquidity, outflow.Dec(), c.TotalBaseCollected.Dec())
	}

	if c.IssuedReserve, err = add(c.IssuedReserve, tokenAmount); err != nil {
		return nil, err
	}
	if c.BaseReserve, err = sub(c.BaseReserve, quote.Net); err != nil {
		return nil, err
	}
	if c.TotalBaseCollected, err = sub(c.TotalBaseCollected, outflow); err != nil {
		return nil, err
	}
	if c.TotalFeesCollected, err = add(c.TotalFeesCollected, quote.Fee); err != nil {
		return nil, err
	}
	if err := e.save(c); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(c.Token, caller, c.Address, tokenAmount); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(c.Settings.BaseAsset, c.Address, caller, quote.Net); err != nil {
		return nil, err
	}
	if forwardFee {
		if err := e.ledger.Transfer(c.Settings.BaseAsset, c.Address, c.Settings.FeeRecipient, quote.Fee); err != nil {
			return nil, err
		}
	}
	e.emit(TokensSoldEvent(curveAddr, caller, tokenAmount, quote.Net, quote.Fee))
	return quote, nil
}

// FinalizeCurve migrates the curve's holdings into a full-range venue
// position and locks it in the paired vault under the admin. The curve is
// marked finalized before the venue is called.
func (e *Engine) FinalizeCurve(caller, curveAddr common.Address) (common.Address, uint64, error) {
	if err := e.ready(); err != nil {
		return common.Address{}, 0, err
	}
	if e.venue == nil || e.vaults == nil {
		return common.Address{}, 0, fmt.Errorf("%w: venue or vault", ErrCollaboratorMissing)
	}
	c, err := e.load(curveAddr)
	if err != nil {
		return common.Address{}, 0, err
	}
	if caller != c.Admin {
		return common.Address{}, 0, ErrNotAdmin
	}
	if c.IsFinalized {
		return common.Address{}, 0, ErrAlreadyFinalized
	}
	if err := requirePhase(c, PhaseBonding); err != nil {
		return common.Address{}, 0, err
	}
	if c.TotalBaseCollected.Lt(c.Settings.BondingTarget) {
		return common.Address{}, 0, fmt.Errorf("%w: collected %s of %s", ErrTargetNotReached, c.TotalBaseCollected.Dec(), c.Settings.BondingTarget.Dec())
	}
	baseAmount, err := e.ledger.BalanceOf(c.Settings.BaseAsset, c.Address)
	if err != nil {
		return common.Address{}, 0, err
	}
	issuedHeld, err := e.ledger.BalanceOf(c.Token, c.Address)
	if err != nil {
		return common.Address{}, 0, err
	}
	issuedAmount, err := sub(issuedHeld, c.OutstandingAllocations)
	if err != nil {
		return common.Address{}, 0, err
	}
	spacing, ok := pool.TickSpacing(c.Settings.PoolFeeTier)
	if !ok {
		return common.Address{}, 0, fmt.Errorf("%w: unsupported pool fee tier %d", ErrInvalidSettings, c.Settings.PoolFeeTier)
	}
	if err := transition(c, PhaseFinalized); err != nil {
		return common.Address{}, 0, err
	}
	c.FinalizedAt = e.now()
	if err := e.save(c); err != nil {
		return common.Address{}, 0, err
	}

	poolAddr, err := e.venue.CreateAndInitializePool(c.Address, c.Settings.PoolFactory, c.Token, c.Settings.BaseAsset, c.Settings.PoolFeeTier, c.BaseReserve, c.IssuedReserve)
	if err != nil {
		return common.Address{}, 0, err
	}
	positionID, err := e.venue.CreatePosition(c.Address, c.Settings.PositionManager, c.Token, c.Settings.BaseAsset, c.Settings.PoolFeeTier, spacing, baseAmount, issuedAmount)
	if err != nil {
		return common.Address{}, 0, err
	}
	if err := e.vaults.Lock(c.Address, c.Vault, positionID, c.Admin); err != nil {
		return common.Address{}, 0, err
	}

	c, err = e.load(curveAddr)
	if err != nil {
		return common.Address{}, 0, err
	}
	c.Pool = poolAddr
	c.PositionID = positionID
	if err := e.save(c); err != nil {
		return common.Address{}, 0, err
	}
	e.emit(PhaseChangedEvent(curveAddr, PhaseBonding, PhaseFinalized))
	e.emit(CurveFinalizedEvent(curveAddr, poolAddr, positionID))
	return poolAddr, positionID, nil
}

// WithdrawTokenAllocation releases the caller's pre-bonding allocation to
// the recipient once the curve is finalized.
func (e *Engine) WithdrawTokenAllocation(caller, curveAddr, recipient common.Address) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	c, err := e.load(curveAddr)
	if err != nil {
		return nil, err
	}
	if !c.IsFinalized {
		return nil, ErrNotFinalized
	}
	participant, err := e.loadParticipant(curveAddr, caller)
	if err != nil {
		return nil, err
	}
	if !participant.Locked {
		return nil, ErrNothingLocked
	}
	released := participant.Allocation.Clone()
	participant.Allocation = new(uint256.Int)
	participant.Locked = false
	if c.OutstandingAllocations, err = sub(c.OutstandingAllocations, released); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(participantKey(curveAddr, caller), participant); err != nil {
		return nil, err
	}
	if err := e.save(c); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(c.Token, c.Address, recipient, released); err != nil {
		return nil, err
	}
	e.emit(AllocationWithdrawnEvent(curveAddr, caller, recipient, released))
	return released, nil
}

func (e *Engine) quoteBuy(c *Curve, ethIn *uint256.Int) (*uint256.Int, error) {
	pricing, err := e.PricingFor(c.Implementation)
	if err != nil {
		return nil, err
	}
	tokensOut, err := pricing.Quote(ethIn, c.BaseReserve, c.IssuedReserve)
	if err != nil {
		return nil, err
	}
	if tokensOut.IsZero() {
		return nil, ErrZeroOutput
	}
	return tokensOut, nil
}

func (e *Engine) quoteSell(c *Curve, tokenAmount *uint256.Int) (*SellQuote, error) {
	pricing, err := e.PricingFor(c.Implementation)
	if err != nil {
		return nil, err
	}
	gross, err := pricing.Quote(tokenAmount, c.IssuedReserve, c.BaseReserve)
	if err != nil {
		return nil, err
	}
	fee, err := pricing.Fee(gross, c.Settings.SellFeeBps)
	if err != nil {
		return nil, err
	}
	net, err := sub(gross, fee)
	if err != nil {
		return nil, err
	}
	if net.IsZero() {
		return nil, ErrZeroOutput
	}
	return &SellQuote{Gross: gross, Fee: fee, Net: net}, nil
}

func add(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrMathOverflow
	}
	return out, nil
}

func sub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("%w: underflow", ErrMathOverflow)
	}
	return out, nil
}
