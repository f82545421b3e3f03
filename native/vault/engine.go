package vault

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
	"curvefoundry/core/types"
	"curvefoundry/native/pool"
)

var (
	ErrNilState           = coreerrors.New(coreerrors.KindInvariant, "vault engine: state not configured")
	ErrAlreadyInitialized = coreerrors.New(coreerrors.KindInvariant, "vault engine: vault already initialized")
	ErrVaultNotFound      = coreerrors.New(coreerrors.KindNotFound, "vault engine: vault not found")
	ErrAlreadyLocked      = coreerrors.New(coreerrors.KindInvariant, "vault engine: position already locked")
	ErrNotLocked          = coreerrors.New(coreerrors.KindNotFound, "vault engine: position not locked")
	ErrNotOwner           = coreerrors.New(coreerrors.KindAuthorization, "vault engine: caller is not the position owner")
	ErrStillLocked        = coreerrors.New(coreerrors.KindPhase, "vault engine: lock duration not elapsed")
	ErrZeroAddress        = coreerrors.New(coreerrors.KindInvariant, "vault engine: zero address")
	ErrInvalidDuration    = coreerrors.New(coreerrors.KindValidation, "vault engine: lock duration must be positive")
	ErrNoPositionManager  = coreerrors.New(coreerrors.KindInvariant, "vault engine: position manager not configured")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Engine holds venue positions in time-locked custody. Every vault clone is
// a record keyed by its address; the engine itself is shared.
type Engine struct {
	state     engineState
	positions pool.PositionManager
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine constructs a vault engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPositionManager configures the venue positions are pulled from.
func (e *Engine) SetPositionManager(pm pool.PositionManager) { e.positions = pm }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock the lock duration is measured against.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
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

// Initialize creates the vault record for a freshly cloned vault. The caller
// is recorded as the vault's registry.
func (e *Engine) Initialize(caller common.Address, params InitParams) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if params.Address == (common.Address{}) || params.PositionManager == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	duration := params.LockDuration
	if duration == 0 {
		duration = DefaultLockDuration
	}
	if duration < time.Second {
		return nil, ErrInvalidDuration
	}
	if ok, err := e.state.KVGet(vaultKey(params.Address), nil); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, params.Address.Hex())
	}
	v := &Vault{
		Address:         params.Address,
		Registry:        caller,
		Implementation:  params.Implementation,
		PositionManager: params.PositionManager,
		LockSeconds:     uint64(duration / time.Second),
		CreatedAt:       e.now(),
	}
	if err := e.state.KVPut(vaultKey(v.Address), v); err != nil {
		return nil, err
	}
	return v, nil
}

// Vault returns the configuration of a vault.
func (e *Engine) Vault(addr common.Address) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var v Vault
	ok, err := e.state.KVGet(vaultKey(addr), &v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, addr.Hex())
	}
	return &v, nil
}

func (e *Engine) loadPosition(vault common.Address, id uint64) (*LockedPosition, error) {
	var lp LockedPosition
	ok, err := e.state.KVGet(positionKey(vault, id), &lp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &lp, nil
}

// Lock takes custody of a position owned by the caller on behalf of owner and
// starts the lock clock.
func (e *Engine) Lock(caller, vaultAddr common.Address, positionID uint64, owner common.Address) error {
	v, err := e.Vault(vaultAddr)
	if err != nil {
		return err
	}
	if e.positions == nil {
		return ErrNoPositionManager
	}
	if owner == (common.Address{}) {
		return ErrZeroAddress
	}
	existing, err := e.loadPosition(vaultAddr, positionID)
	if err != nil {
		return err
	}
	if existing != nil && existing.IsLocked {
		return fmt.Errorf("%w: %d", ErrAlreadyLocked, positionID)
	}
	holder, err := e.positions.OwnerOf(v.PositionManager, positionID)
	if err != nil {
		return err
	}
	if holder != caller {
		return fmt.Errorf("%w: position %d held by %s", ErrNotOwner, positionID, holder.Hex())
	}
	lp := &LockedPosition{
		PositionID: positionID,
		Owner:      owner,
		LockedAt:   e.now(),
		IsLocked:   true,
	}
	if err := e.state.KVPut(positionKey(vaultAddr, positionID), lp); err != nil {
		return err
	}
	if err := e.state.KVAppend(ownerIndexKey(vaultAddr, owner), encodeID(positionID)); err != nil {
		return err
	}
	if err := e.positions.TransferPosition(caller, v.PositionManager, positionID, vaultAddr); err != nil {
		return err
	}
	e.emit(PositionLockedEvent(vaultAddr, owner, positionID, lp.LockedAt+v.LockSeconds))
	return nil
}

// Unlock releases a position to the recipient once the lock duration has
// elapsed. Only the recorded owner may unlock.
func (e *Engine) Unlock(caller, vaultAddr common.Address, positionID uint64, recipient common.Address) error {
	v, err := e.Vault(vaultAddr)
	if err != nil {
		return err
	}
	if e.positions == nil {
		return ErrNoPositionManager
	}
	lp, err := e.requireOwner(caller, vaultAddr, positionID)
	if err != nil {
		return err
	}
	if e.now() < lp.LockedAt+v.LockSeconds {
		return fmt.Errorf("%w: unlocks at %d", ErrStillLocked, lp.LockedAt+v.LockSeconds)
	}
	if recipient == (common.Address{}) {
		return ErrZeroAddress
	}
	if err := e.state.KVDelete(positionKey(vaultAddr, positionID)); err != nil {
		return err
	}
	if err := e.state.KVRemove(ownerIndexKey(vaultAddr, lp.Owner), encodeID(positionID)); err != nil {
		return err
	}
	if err := e.positions.TransferPosition(vaultAddr, v.PositionManager, positionID, recipient); err != nil {
		return err
	}
	e.emit(PositionUnlockedEvent(vaultAddr, lp.Owner, positionID, recipient))
	return nil
}

// ClaimFees forwards the fees accrued by a locked position to its owner. It
// is available for the whole lock period.
func (e *Engine) ClaimFees(caller, vaultAddr common.Address, positionID uint64) (*FeeClaim, error) {
	v, err := e.Vault(vaultAddr)
	if err != nil {
		return nil, err
	}
	if e.positions == nil {
		return nil, ErrNoPositionManager
	}
	lp, err := e.requireOwner(caller, vaultAddr, positionID)
	if err != nil {
		return nil, err
	}
	amount0, amount1, err := e.positions.Collect(vaultAddr, v.PositionManager, positionID, lp.Owner)
	if err != nil {
		return nil, err
	}
	e.emit(FeesClaimedEvent(vaultAddr, lp.Owner, positionID, amount0, amount1))
	return &FeeClaim{Amount0: amount0, Amount1: amount1}, nil
}

func (e *Engine) requireOwner(caller, vaultAddr common.Address, positionID uint64) (*LockedPosition, error) {
	lp, err := e.loadPosition(vaultAddr, positionID)
	if err != nil {
		return nil, err
	}
	if lp == nil || !lp.IsLocked {
		return nil, fmt.Errorf("%w: %d", ErrNotLocked, positionID)
	}
	if lp.Owner != caller {
		return nil, ErrNotOwner
	}
	return lp, nil
}

// IsLocked reports whether the vault currently holds the position.
func (e *Engine) IsLocked(vaultAddr common.Address, positionID uint64) (bool, error) {
	if e == nil || e.state == nil {
		return false, ErrNilState
	}
	lp, err := e.loadPosition(vaultAddr, positionID)
	if err != nil {
		return false, err
	}
	return lp != nil && lp.IsLocked, nil
}

// RemainingLockTime returns how long the position stays locked. It is zero
// once the duration has elapsed or when the position was never locked.
func (e *Engine) RemainingLockTime(vaultAddr common.Address, positionID uint64) (time.Duration, error) {
	v, err := e.Vault(vaultAddr)
	if err != nil {
		return 0, err
	}
	lp, err := e.loadPosition(vaultAddr, positionID)
	if err != nil {
		return 0, err
	}
	if lp == nil || !lp.IsLocked {
		return 0, nil
	}
	unlockAt := lp.LockedAt + v.LockSeconds
	now := e.now()
	if now >= unlockAt {
		return 0, nil
	}
	return time.Duration(unlockAt-now) * time.Second, nil
}

// Position returns the custody record of a position.
func (e *Engine) Position(vaultAddr common.Address, positionID uint64) (*LockedPosition, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	lp, err := e.loadPosition(vaultAddr, positionID)
	if err != nil {
		return nil, err
	}
	if lp == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotLocked, positionID)
	}
	return lp, nil
}

// PositionsOf lists the ids of positions locked for owner in lock order.
func (e *Engine) PositionsOf(vaultAddr, owner common.Address) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var raw [][]byte
	if err := e.state.KVGetList(ownerIndexKey(vaultAddr, owner), &raw); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		if id, ok := decodeID(entry); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
