package factory

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
	"curvefoundry/native/curve"
	"curvefoundry/native/token"
)

var (
	ErrNilState           = coreerrors.New(coreerrors.KindInvariant, "factory engine: state not configured")
	ErrAlreadyInitialized = coreerrors.New(coreerrors.KindInvariant, "factory engine: factory already initialized")
	ErrFactoryNotFound    = coreerrors.New(coreerrors.KindNotFound, "factory engine: factory not found")
	ErrInstanceNotFound   = coreerrors.New(coreerrors.KindNotFound, "factory engine: instance not found")
	ErrNotOwner           = coreerrors.New(coreerrors.KindAuthorization, "factory engine: caller is not the factory owner")
	ErrInsufficientFee    = coreerrors.New(coreerrors.KindEconomic, "factory engine: attached value below deployment fee")
	ErrNoFees             = coreerrors.New(coreerrors.KindEconomic, "factory engine: no fees to withdraw")
	ErrZeroAddress        = coreerrors.New(coreerrors.KindInvariant, "factory engine: zero address")
	ErrFeeOverflow        = coreerrors.New(coreerrors.KindInvariant, "factory engine: fee balance overflow")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

type tokenLedger interface {
	Create(def token.Definition) (*token.Asset, error)
	Mint(asset, to common.Address, amount *uint256.Int) error
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
}

type curveCreator interface {
	Create(params curve.CreateParams) (*curve.Curve, error)
}

// Engine runs every factory clone. A factory stamps out asset ledger and
// curve pairs sharing its settings snapshot and its vault.
type Engine struct {
	state   engineState
	tokens  tokenLedger
	curves  curveCreator
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a factory engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokens configures the asset ledger new tokens are created in.
func (e *Engine) SetTokens(tokens tokenLedger) { e.tokens = tokens }

// SetCurves configures the curve engine new curves are created in.
func (e *Engine) SetCurves(curves curveCreator) { e.curves = curves }

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

func (e *Engine) load(addr common.Address) (*Factory, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var f Factory
	ok, err := e.state.KVGet(factoryKey(addr), &f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, addr.Hex())
	}
	f.ensureDefaults()
	return &f, nil
}

func (e *Engine) save(f *Factory) error {
	return e.state.KVPut(factoryKey(f.Address), f)
}

func (e *Engine) loadOwned(caller, addr common.Address) (*Factory, error) {
	f, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	if caller != f.Owner {
		return nil, ErrNotOwner
	}
	return f, nil
}

// Initialize creates the record of a freshly cloned factory. The caller is
// recorded as the registry that deployed it.
func (e *Engine) Initialize(caller common.Address, params InitParams) (*Factory, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if params.Address == (common.Address{}) || params.Owner == (common.Address{}) || params.Vault == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if ok, err := e.state.KVGet(factoryKey(params.Address), nil); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, params.Address.Hex())
	}
	settings, err := curve.PrepareSettings(params.Settings)
	if err != nil {
		return nil, err
	}
	f := &Factory{
		Address:             params.Address,
		Owner:               params.Owner,
		Registry:            caller,
		Vault:               params.Vault,
		Implementation:      params.Implementation,
		TokenImplementation: params.TokenImplementation,
		CurveImplementation: params.CurveImplementation,
		Settings:            settings,
		DeploymentFee:       new(uint256.Int),
		FeeBalance:          new(uint256.Int),
		CreatedAt:           e.now(),
	}
	if params.DeploymentFee != nil {
		f.DeploymentFee.Set(params.DeploymentFee)
	}
	if err := e.save(f); err != nil {
		return nil, err
	}
	return f.Clone(), nil
}

// DeployInstance creates an asset ledger holding the fixed supply and a curve
// that owns all of it. The attached value, already credited to the factory,
// is kept as deployment fees. The caller becomes the curve admin.
func (e *Engine) DeployInstance(caller, factoryAddr common.Address, value *uint256.Int, name, symbol string) (*Instance, error) {
	if e.tokens == nil || e.curves == nil {
		return nil, ErrNilState
	}
	f, err := e.load(factoryAddr)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(uint256.Int)
	}
	if value.Lt(f.DeploymentFee) {
		return nil, fmt.Errorf("%w: attached %s, fee %s", ErrInsufficientFee, value.Dec(), f.DeploymentFee.Dec())
	}
	normalizedName, err := token.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	normalizedSymbol, err := token.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	balance, overflow := new(uint256.Int).AddOverflow(f.FeeBalance, value)
	if overflow {
		return nil, ErrFeeOverflow
	}
	inst := &Instance{
		Factory:   factoryAddr,
		Token:     crypto.CreateAddress(factoryAddr, f.Nonce),
		Curve:     crypto.CreateAddress(factoryAddr, f.Nonce+1),
		Creator:   caller,
		Name:      normalizedName,
		Symbol:    normalizedSymbol,
		CreatedAt: e.now(),
	}
	f.Nonce += 2
	f.Instances++
	f.FeeBalance = balance
	if err := e.save(f); err != nil {
		return nil, err
	}

	if _, err := e.tokens.Create(token.Definition{
		Address:        inst.Token,
		Name:           inst.Name,
		Symbol:         inst.Symbol,
		Decimals:       token.DefaultDecimals,
		Creator:        caller,
		Implementation: f.TokenImplementation,
	}); err != nil {
		return nil, err
	}
	supply := token.FixedSupply.Clone()
	if err := e.tokens.Mint(inst.Token, inst.Token, supply); err != nil {
		return nil, err
	}
	if err := e.tokens.Transfer(inst.Token, inst.Token, inst.Curve, supply); err != nil {
		return nil, err
	}
	if _, err := e.curves.Create(curve.CreateParams{
		Address:        inst.Curve,
		Token:          inst.Token,
		Factory:        factoryAddr,
		Vault:          f.Vault,
		Admin:          caller,
		Implementation: f.CurveImplementation,
		Settings:       f.Settings,
		TotalSupply:    supply,
	}); err != nil {
		return nil, err
	}

	if err := e.state.KVPut(curveForTokenKey(factoryAddr, inst.Token), inst.Curve); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(tokenForCurveKey(factoryAddr, inst.Curve), inst.Token); err != nil {
		return nil, err
	}
	for _, addr := range []common.Address{inst.Token, inst.Curve} {
		if err := e.state.KVPut(instanceKey(factoryAddr, addr), inst); err != nil {
			return nil, err
		}
		if err := e.state.KVAppend(instanceListKey(factoryAddr), addr.Bytes()); err != nil {
			return nil, err
		}
	}
	e.emit(events.Wrap(InstanceDeployedEvent(inst)))
	return inst, nil
}

// UpdateSettings replaces the settings applied to curves deployed from now
// on. PreBondingTarget is always re-derived from VirtualBase.
func (e *Engine) UpdateSettings(caller, factoryAddr common.Address, settings curve.Settings) (curve.Settings, error) {
	f, err := e.loadOwned(caller, factoryAddr)
	if err != nil {
		return curve.Settings{}, err
	}
	prepared, err := curve.PrepareSettings(settings)
	if err != nil {
		return curve.Settings{}, err
	}
	f.Settings = prepared
	if err := e.save(f); err != nil {
		return curve.Settings{}, err
	}
	e.emit(events.Wrap(SettingsUpdatedEvent(f)))
	return prepared.Clone(), nil
}

// UpdateDeploymentFee changes the fee charged per deployed instance.
func (e *Engine) UpdateDeploymentFee(caller, factoryAddr common.Address, fee *uint256.Int) error {
	f, err := e.loadOwned(caller, factoryAddr)
	if err != nil {
		return err
	}
	if fee == nil {
		fee = new(uint256.Int)
	}
	old := f.DeploymentFee
	f.DeploymentFee = fee.Clone()
	if err := e.save(f); err != nil {
		return err
	}
	e.emit(events.DeploymentFeeUpdated{Deployer: factoryAddr, Old: old, New: f.DeploymentFee})
	return nil
}

// WithdrawFees sweeps the factory's accumulated fees to the recipient.
func (e *Engine) WithdrawFees(caller, factoryAddr, recipient common.Address) (*uint256.Int, error) {
	if e.tokens == nil {
		return nil, ErrNilState
	}
	f, err := e.loadOwned(caller, factoryAddr)
	if err != nil {
		return nil, err
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if f.FeeBalance.IsZero() {
		return nil, ErrNoFees
	}
	amount := f.FeeBalance
	f.FeeBalance = new(uint256.Int)
	if err := e.save(f); err != nil {
		return nil, err
	}
	if err := e.tokens.Transfer(f.Settings.BaseAsset, factoryAddr, recipient, amount); err != nil {
		return nil, err
	}
	e.emit(events.FeesWithdrawn{Deployer: factoryAddr, Recipient: recipient, Amount: amount})
	return amount, nil
}

// Factory returns a copy of the factory record.
func (e *Engine) Factory(addr common.Address) (*Factory, error) {
	f, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	return f.Clone(), nil
}

// CurveForToken returns the curve paired with a token of this factory.
func (e *Engine) CurveForToken(factoryAddr, tokenAddr common.Address) (common.Address, error) {
	return e.lookup(curveForTokenKey(factoryAddr, tokenAddr), tokenAddr)
}

// TokenForCurve returns the token paired with a curve of this factory.
func (e *Engine) TokenForCurve(factoryAddr, curveAddr common.Address) (common.Address, error) {
	return e.lookup(tokenForCurveKey(factoryAddr, curveAddr), curveAddr)
}

func (e *Engine) lookup(key []byte, subject common.Address) (common.Address, error) {
	if e == nil || e.state == nil {
		return common.Address{}, ErrNilState
	}
	var out common.Address
	ok, err := e.state.KVGet(key, &out)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInstanceNotFound, subject.Hex())
	}
	return out, nil
}

// Instance returns the deployment record of a token or curve.
func (e *Engine) Instance(factoryAddr, addr common.Address) (*Instance, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var inst Instance
	ok, err := e.state.KVGet(instanceKey(factoryAddr, addr), &inst)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, addr.Hex())
	}
	return &inst, nil
}

// IsInstance reports whether addr is a token or curve deployed by the factory.
func (e *Engine) IsInstance(factoryAddr, addr common.Address) bool {
	if e == nil || e.state == nil {
		return false
	}
	ok, err := e.state.KVGet(instanceKey(factoryAddr, addr), nil)
	return err == nil && ok
}

// Instances lists every token and curve deployed by the factory in
// deployment order.
func (e *Engine) Instances(factoryAddr common.Address) ([]common.Address, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var raw [][]byte
	if err := e.state.KVGetList(instanceListKey(factoryAddr), &raw); err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(raw))
	for _, entry := range raw {
		out = append(out, common.BytesToAddress(entry))
	}
	return out, nil
}
