package registry

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
	"curvefoundry/native/curve"
	nativecommon "curvefoundry/native/common"
	"curvefoundry/native/factory"
	"curvefoundry/native/vault"
)

// ModuleName is the pause key guarding system deployments.
const ModuleName = "registry"

var (
	ErrNilState           = coreerrors.New(coreerrors.KindInvariant, "registry engine: state not configured")
	ErrNotInitialized     = coreerrors.New(coreerrors.KindNotFound, "registry engine: registry not initialized")
	ErrAlreadyInitialized = coreerrors.New(coreerrors.KindInvariant, "registry engine: registry already initialized")
	ErrNotOwner           = coreerrors.New(coreerrors.KindAuthorization, "registry engine: caller is not the registry owner")
	ErrInsufficientFee    = coreerrors.New(coreerrors.KindEconomic, "registry engine: attached value below deployment fee")
	ErrNoFees             = coreerrors.New(coreerrors.KindEconomic, "registry engine: no fees to withdraw")
	ErrUnknownKind        = coreerrors.New(coreerrors.KindValidation, "registry engine: unknown implementation kind")
	ErrZeroAddress        = coreerrors.New(coreerrors.KindInvariant, "registry engine: zero address")
	ErrAlreadyPaused      = coreerrors.New(coreerrors.KindPhase, "registry engine: already paused")
	ErrNotPaused          = coreerrors.New(coreerrors.KindPhase, "registry engine: not paused")
	ErrSystemNotFound     = coreerrors.New(coreerrors.KindNotFound, "registry engine: system not found")
	ErrFeeOverflow        = coreerrors.New(coreerrors.KindInvariant, "registry engine: fee balance overflow")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

type ledger interface {
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
}

type factoryInitializer interface {
	Initialize(caller common.Address, params factory.InitParams) (*factory.Factory, error)
}

type vaultInitializer interface {
	Initialize(caller common.Address, params vault.InitParams) (*vault.Vault, error)
}

// Engine is the top-level deployment registry. It stamps out a factory and
// vault pair per administrator and keeps the template catalog.
type Engine struct {
	state     engineState
	ledger    ledger
	factories factoryInitializer
	vaults    vaultInitializer
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine constructs a registry engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the asset ledger used for refunds and withdrawals.
func (e *Engine) SetLedger(l ledger) { e.ledger = l }

// SetFactories configures the factory engine new factories are created in.
func (e *Engine) SetFactories(f factoryInitializer) { e.factories = f }

// SetVaults configures the vault engine new vaults are created in.
func (e *Engine) SetVaults(v vaultInitializer) { e.vaults = v }

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

func (e *Engine) load() (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var r Registry
	ok, err := e.state.KVGet(registryKey, &r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	r.ensureDefaults()
	return &r, nil
}

func (e *Engine) loadOwned(caller common.Address) (*Registry, error) {
	r, err := e.load()
	if err != nil {
		return nil, err
	}
	if caller != r.Owner {
		return nil, ErrNotOwner
	}
	return r, nil
}

func (e *Engine) save(r *Registry) error {
	return e.state.KVPut(registryKey, r)
}

// Initialize creates the registry record. It runs once, at genesis.
func (e *Engine) Initialize(params InitParams) (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if params.Address == (common.Address{}) || params.Owner == (common.Address{}) || params.BaseAsset == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if ok, err := e.state.KVGet(registryKey, nil); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}
	lock := params.VaultLockDuration
	if lock <= 0 {
		lock = vault.DefaultLockDuration
	}
	r := &Registry{
		Address:         params.Address,
		Owner:           params.Owner,
		BaseAsset:       params.BaseAsset,
		Implementations: params.Implementations,
		DeploymentFee:   new(uint256.Int),
		FeeBalance:      new(uint256.Int),
		VaultLockSecs:   uint64(lock / time.Second),
		CreatedAt:       e.now(),
	}
	if params.DeploymentFee != nil {
		r.DeploymentFee.Set(params.DeploymentFee)
	}
	if err := e.save(r); err != nil {
		return nil, err
	}
	return r, nil
}

// IsPaused implements the pause view consulted before deployments.
func (e *Engine) IsPaused(module string) bool {
	if module != ModuleName {
		return false
	}
	r, err := e.load()
	return err == nil && r.Paused
}

// DeploySystem clones a factory and a vault for the administrator. The
// attached value has already been credited to the registry; anything above
// the deployment fee is refunded to the caller.
func (e *Engine) DeploySystem(caller common.Address, value *uint256.Int, administrator common.Address, deploymentFee *uint256.Int, settings curve.Settings) (*System, error) {
	if e.ledger == nil || e.factories == nil || e.vaults == nil {
		return nil, ErrNilState
	}
	r, err := e.load()
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e, ModuleName); err != nil {
		return nil, err
	}
	if value == nil {
		value = new(uint256.Int)
	}
	if value.Lt(r.DeploymentFee) {
		return nil, fmt.Errorf("%w: attached %s, fee %s", ErrInsufficientFee, value.Dec(), r.DeploymentFee.Dec())
	}
	if administrator == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	prepared, err := curve.PrepareSettings(settings)
	if err != nil {
		return nil, err
	}
	refund := new(uint256.Int).Sub(value, r.DeploymentFee)
	balance, overflow := new(uint256.Int).AddOverflow(r.FeeBalance, r.DeploymentFee)
	if overflow {
		return nil, ErrFeeOverflow
	}
	sys := &System{
		Factory:       crypto.CreateAddress(r.Address, r.Nonce),
		Vault:         crypto.CreateAddress(r.Address, r.Nonce+1),
		Administrator: administrator,
		Deployer:      caller,
		CreatedAt:     e.now(),
	}
	r.Nonce += 2
	r.FeeBalance = balance
	if err := e.save(r); err != nil {
		return nil, err
	}

	if _, err := e.vaults.Initialize(r.Address, vault.InitParams{
		Address:         sys.Vault,
		Implementation:  r.Implementations.Vault,
		PositionManager: prepared.PositionManager,
		LockDuration:    r.VaultLockDuration(),
	}); err != nil {
		return nil, err
	}
	if _, err := e.factories.Initialize(r.Address, factory.InitParams{
		Address:             sys.Factory,
		Owner:               administrator,
		Vault:               sys.Vault,
		Implementation:      r.Implementations.Factory,
		TokenImplementation: r.Implementations.Token,
		CurveImplementation: r.Implementations.Curve,
		Settings:            prepared,
		DeploymentFee:       deploymentFee,
	}); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(instanceKey(sys.Factory), KindFactory); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(instanceKey(sys.Vault), KindVault); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(systemKey(sys.Factory), sys); err != nil {
		return nil, err
	}
	if err := e.state.KVAppend(systemListKey, sys.Factory.Bytes()); err != nil {
		return nil, err
	}
	if !refund.IsZero() {
		if err := e.ledger.Transfer(r.BaseAsset, r.Address, caller, refund); err != nil {
			return nil, err
		}
		e.emit(events.FeeRefunded{Deployer: r.Address, Payer: caller, Amount: refund})
	}
	e.emit(events.Wrap(SystemDeployedEvent(sys)))
	return sys, nil
}

// UpdateImplementation swaps the template used for future clones of kind.
// Existing instances keep the implementation they were created with.
func (e *Engine) UpdateImplementation(caller common.Address, kind Kind, implementation common.Address) (common.Address, error) {
	r, err := e.loadOwned(caller)
	if err != nil {
		return common.Address{}, err
	}
	slot := r.Implementations.slot(kind)
	if slot == nil {
		return common.Address{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if implementation == (common.Address{}) {
		return common.Address{}, ErrZeroAddress
	}
	old := *slot
	*slot = implementation
	if err := e.save(r); err != nil {
		return common.Address{}, err
	}
	e.emit(events.Wrap(ImplementationUpdatedEvent(kind, old, implementation)))
	return old, nil
}

// Pause blocks new system deployments. Deployed systems keep working.
func (e *Engine) Pause(caller common.Address) error {
	return e.setPaused(caller, true)
}

// Unpause resumes system deployments.
func (e *Engine) Unpause(caller common.Address) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller common.Address, paused bool) error {
	r, err := e.loadOwned(caller)
	if err != nil {
		return err
	}
	if r.Paused == paused {
		if paused {
			return ErrAlreadyPaused
		}
		return ErrNotPaused
	}
	r.Paused = paused
	if err := e.save(r); err != nil {
		return err
	}
	e.emit(events.Wrap(PauseChangedEvent(paused, caller)))
	return nil
}

// UpdateDeploymentFee changes the fee charged per deployed system.
func (e *Engine) UpdateDeploymentFee(caller common.Address, fee *uint256.Int) error {
	r, err := e.loadOwned(caller)
	if err != nil {
		return err
	}
	if fee == nil {
		fee = new(uint256.Int)
	}
	old := r.DeploymentFee
	r.DeploymentFee = fee.Clone()
	if err := e.save(r); err != nil {
		return err
	}
	e.emit(events.DeploymentFeeUpdated{Deployer: r.Address, Old: old, New: r.DeploymentFee})
	return nil
}

// WithdrawFees sweeps the registry's accumulated fees to the recipient.
func (e *Engine) WithdrawFees(caller, recipient common.Address) (*uint256.Int, error) {
	if e.ledger == nil {
		return nil, ErrNilState
	}
	r, err := e.loadOwned(caller)
	if err != nil {
		return nil, err
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if r.FeeBalance.IsZero() {
		return nil, ErrNoFees
	}
	amount := r.FeeBalance
	r.FeeBalance = new(uint256.Int)
	if err := e.save(r); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(r.BaseAsset, r.Address, recipient, amount); err != nil {
		return nil, err
	}
	e.emit(events.FeesWithdrawn{Deployer: r.Address, Recipient: recipient, Amount: amount})
	return amount, nil
}

// TransferOwnership hands the registry to a new owner.
func (e *Engine) TransferOwnership(caller, newOwner common.Address) error {
	r, err := e.loadOwned(caller)
	if err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return ErrZeroAddress
	}
	previous := r.Owner
	r.Owner = newOwner
	if err := e.save(r); err != nil {
		return err
	}
	e.emit(events.Wrap(OwnershipTransferredEvent(previous, newOwner)))
	return nil
}

// Registry returns the registry record.
func (e *Engine) Registry() (*Registry, error) {
	return e.load()
}

// Implementation returns the current template of kind.
func (e *Engine) Implementation(kind Kind) (common.Address, error) {
	r, err := e.load()
	if err != nil {
		return common.Address{}, err
	}
	slot := r.Implementations.slot(kind)
	if slot == nil {
		return common.Address{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return *slot, nil
}

// IsInstance reports whether addr is a factory or vault deployed here.
func (e *Engine) IsInstance(addr common.Address) bool {
	_, ok := e.InstanceKind(addr)
	return ok
}

// InstanceKind returns the kind of a deployed factory or vault.
func (e *Engine) InstanceKind(addr common.Address) (Kind, bool) {
	if e == nil || e.state == nil {
		return "", false
	}
	var kind Kind
	ok, err := e.state.KVGet(instanceKey(addr), &kind)
	if err != nil || !ok {
		return "", false
	}
	return kind, true
}

// System returns the system a factory belongs to.
func (e *Engine) System(factoryAddr common.Address) (*System, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var sys System
	ok, err := e.state.KVGet(systemKey(factoryAddr), &sys)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSystemNotFound, factoryAddr.Hex())
	}
	return &sys, nil
}

// Systems lists every deployed system in deployment order.
func (e *Engine) Systems() ([]*System, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var raw [][]byte
	if err := e.state.KVGetList(systemListKey, &raw); err != nil {
		return nil, err
	}
	out := make([]*System, 0, len(raw))
	for _, entry := range raw {
		sys, err := e.System(common.BytesToAddress(entry))
		if err != nil {
			return nil, err
		}
		out = append(out, sys)
	}
	return out, nil
}
