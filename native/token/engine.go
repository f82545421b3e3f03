package token

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
)

var (
	ErrNilState            = coreerrors.New(coreerrors.KindInvariant, "token engine: state not configured")
	ErrAssetExists         = coreerrors.New(coreerrors.KindInvariant, "token engine: asset already exists")
	ErrAssetNotFound       = coreerrors.New(coreerrors.KindNotFound, "token engine: asset not found")
	ErrAlreadyMinted       = coreerrors.New(coreerrors.KindInvariant, "token engine: supply already minted")
	ErrInvalidName         = coreerrors.New(coreerrors.KindValidation, "token engine: invalid name")
	ErrInvalidSymbol       = coreerrors.New(coreerrors.KindValidation, "token engine: invalid symbol")
	ErrInvalidAmount       = coreerrors.New(coreerrors.KindValidation, "token engine: amount must be positive")
	ErrInsufficientBalance = coreerrors.New(coreerrors.KindEconomic, "token engine: insufficient balance")
	ErrZeroAddress         = coreerrors.New(coreerrors.KindInvariant, "token engine: zero address")
	ErrSupplyOverflow      = coreerrors.New(coreerrors.KindInvariant, "token engine: balance overflow")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Engine maintains every fungible asset ledger: the genesis base asset and
// each issued asset stamped out by a factory.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a token engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn())
}

func (e *Engine) loadAsset(addr common.Address) (*Asset, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var asset Asset
	ok, err := e.state.KVGet(assetKey(addr), &asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, addr.Hex())
	}
	if asset.TotalSupply == nil {
		asset.TotalSupply = new(uint256.Int)
	}
	return &asset, nil
}

// Create registers a new asset ledger with zero supply.
func (e *Engine) Create(def Definition) (*Asset, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if def.Address == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	name, err := NormalizeName(def.Name)
	if err != nil {
		return nil, err
	}
	symbol, err := NormalizeSymbol(def.Symbol)
	if err != nil {
		return nil, err
	}
	if ok, err := e.state.KVGet(assetKey(def.Address), nil); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetExists, def.Address.Hex())
	}
	decimals := def.Decimals
	if decimals == 0 {
		decimals = DefaultDecimals
	}
	asset := &Asset{
		Address:        def.Address,
		Name:           name,
		Symbol:         symbol,
		Decimals:       decimals,
		TotalSupply:    new(uint256.Int),
		Creator:        def.Creator,
		Implementation: def.Implementation,
		CreatedAt:      e.now(),
	}
	if err := e.state.KVPut(assetKey(asset.Address), asset); err != nil {
		return nil, err
	}
	return asset.Clone(), nil
}

// Mint credits the full supply of an asset to the supplied holder. Each asset
// may be minted exactly once; later attempts fail with ErrAlreadyMinted.
func (e *Engine) Mint(assetAddr, to common.Address, amount *uint256.Int) error {
	asset, err := e.loadAsset(assetAddr)
	if err != nil {
		return err
	}
	if asset.Minted {
		return ErrAlreadyMinted
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	asset.Minted = true
	asset.TotalSupply = amount.Clone()
	if err := e.state.KVPut(assetKey(assetAddr), asset); err != nil {
		return err
	}
	if err := e.credit(assetAddr, to, amount); err != nil {
		return err
	}
	e.emit(events.TokenSupply{
		Asset:  assetAddr,
		Symbol: asset.Symbol,
		Total:  asset.TotalSupply,
		Delta:  amount,
		Reason: events.SupplyReasonMint,
	})
	e.emit(events.Transfer{Asset: assetAddr, To: to, Amount: amount})
	return nil
}

// Transfer moves amount of the asset between holders. Zero-amount transfers
// are no-ops.
func (e *Engine) Transfer(assetAddr, from, to common.Address, amount *uint256.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if _, err := e.loadAsset(assetAddr); err != nil {
		return err
	}
	if from == to {
		balance, err := e.BalanceOf(assetAddr, from)
		if err != nil {
			return err
		}
		if balance.Lt(amount) {
			return ErrInsufficientBalance
		}
		return nil
	}
	if err := e.debit(assetAddr, from, amount); err != nil {
		return err
	}
	if err := e.credit(assetAddr, to, amount); err != nil {
		return err
	}
	e.emit(events.Transfer{Asset: assetAddr, From: from, To: to, Amount: amount})
	return nil
}

// BalanceOf returns the holder's balance of the asset.
func (e *Engine) BalanceOf(assetAddr, holder common.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	balance := new(uint256.Int)
	if _, err := e.state.KVGet(balanceKey(assetAddr, holder), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// Asset returns the metadata record of the asset.
func (e *Engine) Asset(addr common.Address) (*Asset, error) {
	asset, err := e.loadAsset(addr)
	if err != nil {
		return nil, err
	}
	return asset.Clone(), nil
}

// Exists reports whether an asset ledger is registered at addr.
func (e *Engine) Exists(addr common.Address) bool {
	if e == nil || e.state == nil {
		return false
	}
	ok, err := e.state.KVGet(assetKey(addr), nil)
	return err == nil && ok
}

func (e *Engine) credit(assetAddr, holder common.Address, amount *uint256.Int) error {
	balance, err := e.BalanceOf(assetAddr, holder)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	return e.state.KVPut(balanceKey(assetAddr, holder), next)
}

func (e *Engine) debit(assetAddr, holder common.Address, amount *uint256.Int) error {
	balance, err := e.BalanceOf(assetAddr, holder)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance.Dec(), amount.Dec())
	}
	return e.state.KVPut(balanceKey(assetAddr, holder), new(uint256.Int).Sub(balance, amount))
}
