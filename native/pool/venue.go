package pool

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
	"curvefoundry/core/types"
)

var (
	ErrNilState          = coreerrors.New(coreerrors.KindInvariant, "pool venue: state not configured")
	ErrUnknownFactory    = coreerrors.New(coreerrors.KindInvariant, "pool venue: unknown pool factory")
	ErrUnknownManager    = coreerrors.New(coreerrors.KindInvariant, "pool venue: unknown position manager")
	ErrUnsupportedFee    = coreerrors.New(coreerrors.KindValidation, "pool venue: unsupported fee tier")
	ErrTickSpacing       = coreerrors.New(coreerrors.KindValidation, "pool venue: tick spacing mismatch")
	ErrIdenticalTokens   = coreerrors.New(coreerrors.KindValidation, "pool venue: identical tokens")
	ErrInvalidReserves   = coreerrors.New(coreerrors.KindValidation, "pool venue: reserves must be positive")
	ErrInvalidAmount     = coreerrors.New(coreerrors.KindValidation, "pool venue: amount must be positive")
	ErrPriceOutOfRange   = coreerrors.New(coreerrors.KindValidation, "pool venue: price out of range")
	ErrPoolNotFound      = coreerrors.New(coreerrors.KindNotFound, "pool venue: pool not found")
	ErrPositionNotFound  = coreerrors.New(coreerrors.KindNotFound, "pool venue: position not found")
	ErrNotPositionOwner  = coreerrors.New(coreerrors.KindAuthorization, "pool venue: caller does not own position")
	ErrZeroAddress       = coreerrors.New(coreerrors.KindInvariant, "pool venue: zero address")
	ErrLiquidityOverflow = coreerrors.New(coreerrors.KindInvariant, "pool venue: liquidity overflow")
)

var poolInitCodeHash = crypto.Keccak256([]byte("curvefoundry/pool"))

type venueState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type ledger interface {
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
}

// Venue is a state-backed concentrated-liquidity venue. It plays both the
// pool factory and the position manager role, each behind its own address.
type Venue struct {
	state   venueState
	ledger  ledger
	emitter events.Emitter
	nowFn   func() int64
	factory common.Address
	manager common.Address
}

// NewVenue constructs a venue answering for the supplied factory and
// position manager addresses.
func NewVenue(factory, manager common.Address) *Venue {
	return &Venue{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		factory: factory,
		manager: manager,
	}
}

// SetState configures the state backend used by the venue.
func (v *Venue) SetState(state venueState) { v.state = state }

// SetLedger configures the asset ledger deposits and fees move through.
func (v *Venue) SetLedger(l ledger) { v.ledger = l }

// SetEmitter configures the event emitter used by the venue.
func (v *Venue) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (v *Venue) SetNowFunc(now func() int64) {
	if now == nil {
		v.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	v.nowFn = now
}

// FactoryAddress returns the address the venue answers to as pool factory.
func (v *Venue) FactoryAddress() common.Address { return v.factory }

// ManagerAddress returns the address the venue answers to as position manager.
func (v *Venue) ManagerAddress() common.Address { return v.manager }

func (v *Venue) emit(evt *types.Event) {
	if v == nil || v.emitter == nil || evt == nil {
		return
	}
	v.emitter.Emit(events.Wrap(evt))
}

func (v *Venue) now() uint64 {
	if v == nil || v.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(v.nowFn())
}

func (v *Venue) ready() error {
	if v == nil || v.state == nil || v.ledger == nil {
		return ErrNilState
	}
	return nil
}

// PoolAddress derives the deterministic address of the pool for a token pair
// and fee tier.
func (v *Venue) PoolAddress(tokenA, tokenB common.Address, fee uint32) common.Address {
	token0, token1 := SortTokens(tokenA, tokenB)
	salt := crypto.Keccak256Hash(poolIndexKey(token0, token1, fee))
	return crypto.CreateAddress2(v.factory, salt, poolInitCodeHash)
}

// CreateAndInitializePool returns the pool for the pair, creating it at the
// price implied by the reserves when it does not exist yet.
func (v *Venue) CreateAndInitializePool(caller, factory, issued, base common.Address, feeTier uint32, baseReserve, issuedReserve *uint256.Int) (common.Address, error) {
	if err := v.ready(); err != nil {
		return common.Address{}, err
	}
	if factory != v.factory {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownFactory, factory.Hex())
	}
	if issued == base {
		return common.Address{}, ErrIdenticalTokens
	}
	if issued == (common.Address{}) || base == (common.Address{}) {
		return common.Address{}, ErrZeroAddress
	}
	spacing, ok := TickSpacing(feeTier)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", ErrUnsupportedFee, feeTier)
	}
	token0, token1 := SortTokens(issued, base)
	var existing common.Address
	if ok, err := v.state.KVGet(poolIndexKey(token0, token1, feeTier), &existing); err != nil {
		return common.Address{}, err
	} else if ok {
		return existing, nil
	}
	amount0, amount1 := issuedReserve, baseReserve
	if token0 == base {
		amount0, amount1 = baseReserve, issuedReserve
	}
	sqrtPrice, err := EncodeSqrtPriceX96(amount0, amount1)
	if err != nil {
		return common.Address{}, err
	}
	p := &Pool{
		Address:      v.PoolAddress(token0, token1, feeTier),
		Token0:       token0,
		Token1:       token1,
		Fee:          feeTier,
		TickSpacing:  spacing,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    new(uint256.Int),
		Reserve0:     new(uint256.Int),
		Reserve1:     new(uint256.Int),
		CreatedAt:    v.now(),
	}
	if err := v.state.KVPut(poolKey(p.Address), p); err != nil {
		return common.Address{}, err
	}
	if err := v.state.KVPut(poolIndexKey(token0, token1, feeTier), p.Address); err != nil {
		return common.Address{}, err
	}
	v.emit(PoolCreatedEvent(p))
	return p.Address, nil
}

// CreatePosition pulls both amounts from the caller into the pool and mints a
// full-range position owned by the caller.
func (v *Venue) CreatePosition(caller, manager, issued, base common.Address, feeTier uint32, tickSpacing int32, baseAmount, issuedAmount *uint256.Int) (uint64, error) {
	if err := v.ready(); err != nil {
		return 0, err
	}
	if manager != v.manager {
		return 0, fmt.Errorf("%w: %s", ErrUnknownManager, manager.Hex())
	}
	if caller == (common.Address{}) {
		return 0, ErrZeroAddress
	}
	if baseAmount == nil || issuedAmount == nil || baseAmount.IsZero() || issuedAmount.IsZero() {
		return 0, ErrInvalidAmount
	}
	p, err := v.PoolFor(issued, base, feeTier)
	if err != nil {
		return 0, err
	}
	if tickSpacing != p.TickSpacing {
		return 0, fmt.Errorf("%w: pool uses %d, got %d", ErrTickSpacing, p.TickSpacing, tickSpacing)
	}
	amount0, amount1 := issuedAmount, baseAmount
	if p.Token0 == base {
		amount0, amount1 = baseAmount, issuedAmount
	}
	liquidity := fullRangeLiquidity(amount0, amount1)
	nextLiquidity, overflow := new(uint256.Int).AddOverflow(p.Liquidity, liquidity)
	if overflow {
		return 0, ErrLiquidityOverflow
	}
	id, err := v.nextPositionID()
	if err != nil {
		return 0, err
	}
	lower, upper := FullRangeTicks(p.TickSpacing)
	pos := &Position{
		ID:          id,
		Pool:        p.Address,
		Owner:       caller,
		TickLower:   lower,
		TickUpper:   upper,
		Liquidity:   liquidity,
		Amount0:     amount0.Clone(),
		Amount1:     amount1.Clone(),
		TokensOwed0: new(uint256.Int),
		TokensOwed1: new(uint256.Int),
		CreatedAt:   v.now(),
	}
	p.Liquidity = nextLiquidity
	p.Reserve0 = new(uint256.Int).Add(p.Reserve0, amount0)
	p.Reserve1 = new(uint256.Int).Add(p.Reserve1, amount1)
	if err := v.state.KVPut(poolKey(p.Address), p); err != nil {
		return 0, err
	}
	if err := v.state.KVPut(positionKey(id), pos); err != nil {
		return 0, err
	}
	if err := v.ledger.Transfer(p.Token0, caller, p.Address, amount0); err != nil {
		return 0, err
	}
	if err := v.ledger.Transfer(p.Token1, caller, p.Address, amount1); err != nil {
		return 0, err
	}
	v.emit(PositionMintedEvent(pos))
	return id, nil
}

// OwnerOf returns the owner of a position.
func (v *Venue) OwnerOf(manager common.Address, positionID uint64) (common.Address, error) {
	if manager != v.manager {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownManager, manager.Hex())
	}
	pos, err := v.loadPosition(positionID)
	if err != nil {
		return common.Address{}, err
	}
	return pos.Owner, nil
}

// TransferPosition hands a position owned by the caller to another address.
func (v *Venue) TransferPosition(caller, manager common.Address, positionID uint64, to common.Address) error {
	if manager != v.manager {
		return fmt.Errorf("%w: %s", ErrUnknownManager, manager.Hex())
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	pos, err := v.loadPosition(positionID)
	if err != nil {
		return err
	}
	if pos.Owner != caller {
		return ErrNotPositionOwner
	}
	pos.Owner = to
	if err := v.state.KVPut(positionKey(positionID), pos); err != nil {
		return err
	}
	v.emit(PositionTransferredEvent(positionID, caller, to))
	return nil
}

// Collect pays every fee owed to a position to the recipient and returns the
// amounts in token0/token1 order.
func (v *Venue) Collect(caller, manager common.Address, positionID uint64, recipient common.Address) (*uint256.Int, *uint256.Int, error) {
	if err := v.ready(); err != nil {
		return nil, nil, err
	}
	if manager != v.manager {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownManager, manager.Hex())
	}
	if recipient == (common.Address{}) {
		return nil, nil, ErrZeroAddress
	}
	pos, err := v.loadPosition(positionID)
	if err != nil {
		return nil, nil, err
	}
	if pos.Owner != caller {
		return nil, nil, ErrNotPositionOwner
	}
	p, err := v.Pool(pos.Pool)
	if err != nil {
		return nil, nil, err
	}
	owed0, owed1 := pos.TokensOwed0, pos.TokensOwed1
	pos.TokensOwed0 = new(uint256.Int)
	pos.TokensOwed1 = new(uint256.Int)
	if err := v.state.KVPut(positionKey(positionID), pos); err != nil {
		return nil, nil, err
	}
	if err := v.ledger.Transfer(p.Token0, p.Address, recipient, owed0); err != nil {
		return nil, nil, err
	}
	if err := v.ledger.Transfer(p.Token1, p.Address, recipient, owed1); err != nil {
		return nil, nil, err
	}
	v.emit(FeesCollectedEvent(positionID, recipient, owed0, owed1))
	return owed0, owed1, nil
}

// AccrueFees moves trading fees from the payer into the pool and credits them
// to the position.
func (v *Venue) AccrueFees(payer common.Address, positionID uint64, amount0, amount1 *uint256.Int) error {
	if err := v.ready(); err != nil {
		return err
	}
	if amount0 == nil {
		amount0 = new(uint256.Int)
	}
	if amount1 == nil {
		amount1 = new(uint256.Int)
	}
	if amount0.IsZero() && amount1.IsZero() {
		return ErrInvalidAmount
	}
	pos, err := v.loadPosition(positionID)
	if err != nil {
		return err
	}
	p, err := v.Pool(pos.Pool)
	if err != nil {
		return err
	}
	owed0, overflow0 := new(uint256.Int).AddOverflow(pos.TokensOwed0, amount0)
	owed1, overflow1 := new(uint256.Int).AddOverflow(pos.TokensOwed1, amount1)
	if overflow0 || overflow1 {
		return ErrLiquidityOverflow
	}
	pos.TokensOwed0, pos.TokensOwed1 = owed0, owed1
	if err := v.state.KVPut(positionKey(positionID), pos); err != nil {
		return err
	}
	if err := v.ledger.Transfer(p.Token0, payer, p.Address, amount0); err != nil {
		return err
	}
	if err := v.ledger.Transfer(p.Token1, payer, p.Address, amount1); err != nil {
		return err
	}
	v.emit(FeesAccruedEvent(positionID, amount0, amount1))
	return nil
}

// Pool returns the pool record stored at addr.
func (v *Venue) Pool(addr common.Address) (*Pool, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	var p Pool
	ok, err := v.state.KVGet(poolKey(addr), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, addr.Hex())
	}
	return p.Clone(), nil
}

// PoolFor returns the pool for a token pair and fee tier.
func (v *Venue) PoolFor(tokenA, tokenB common.Address, fee uint32) (*Pool, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	token0, token1 := SortTokens(tokenA, tokenB)
	var addr common.Address
	ok, err := v.state.KVGet(poolIndexKey(token0, token1, fee), &addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPoolNotFound
	}
	return v.Pool(addr)
}

// Position returns the position record.
func (v *Venue) Position(id uint64) (*Position, error) {
	pos, err := v.loadPosition(id)
	if err != nil {
		return nil, err
	}
	return pos.Clone(), nil
}

func (v *Venue) loadPosition(id uint64) (*Position, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	var pos Position
	ok, err := v.state.KVGet(positionKey(id), &pos)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPositionNotFound, id)
	}
	return pos.Clone(), nil
}

func (v *Venue) nextPositionID() (uint64, error) {
	var last uint64
	if _, err := v.state.KVGet(positionSeqKey, &last); err != nil {
		return 0, err
	}
	next := last + 1
	if err := v.state.KVPut(positionSeqKey, next); err != nil {
		return 0, err
	}
	return next, nil
}
