package vault

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
	"curvefoundry/core/state/statetest"
	"curvefoundry/native/pool"
	"curvefoundry/native/token"
)

var (
	registryAddr = common.HexToAddress("0x4e00000000000000000000000000000000000001")
	vaultAddr    = common.HexToAddress("0x5a00000000000000000000000000000000000001")
	poolFactory  = common.HexToAddress("0x9000000000000000000000000000000000000001")
	positionMgr  = common.HexToAddress("0x9000000000000000000000000000000000000002")
	tokenA       = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenB       = common.HexToAddress("0x2000000000000000000000000000000000000001")
	creator      = common.HexToAddress("0xc000000000000000000000000000000000000001")
	owner        = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	stranger     = common.HexToAddress("0xb0b0000000000000000000000000000000000001")
)

type vaultFixture struct {
	engine *Engine
	venue  *pool.Venue
	tokens *token.Engine
	rec    *events.Recorder
	clock  int64
}

func newVaultFixture(t *testing.T) (*vaultFixture, uint64) {
	t.Helper()
	state := statetest.NewManager(t)
	f := &vaultFixture{rec: &events.Recorder{}, clock: 1_700_000_000}
	now := func() int64 { return f.clock }

	f.tokens = token.NewEngine()
	f.tokens.SetState(state)
	for _, def := range []token.Definition{
		{Address: tokenA, Name: "Alpha", Symbol: "A"},
		{Address: tokenB, Name: "Beta", Symbol: "B"},
	} {
		_, err := f.tokens.Create(def)
		require.NoError(t, err)
		require.NoError(t, f.tokens.Mint(def.Address, creator, uint256.NewInt(1_000_000)))
	}

	f.venue = pool.NewVenue(poolFactory, positionMgr)
	f.venue.SetState(state)
	f.venue.SetLedger(f.tokens)
	f.venue.SetNowFunc(now)
	_, err := f.venue.CreateAndInitializePool(creator, poolFactory, tokenA, tokenB, 3_000, uint256.NewInt(1_000), uint256.NewInt(1_000))
	require.NoError(t, err)
	id, err := f.venue.CreatePosition(creator, positionMgr, tokenA, tokenB, 3_000, 60, uint256.NewInt(1_000), uint256.NewInt(1_000))
	require.NoError(t, err)

	f.engine = NewEngine()
	f.engine.SetState(state)
	f.engine.SetPositionManager(f.venue)
	f.engine.SetEmitter(f.rec)
	f.engine.SetNowFunc(now)
	_, err = f.engine.Initialize(registryAddr, InitParams{Address: vaultAddr, PositionManager: positionMgr})
	require.NoError(t, err)
	return f, id
}

func TestInitializeDefaults(t *testing.T) {
	f, _ := newVaultFixture(t)

	v, err := f.engine.Vault(vaultAddr)
	require.NoError(t, err)
	require.Equal(t, registryAddr, v.Registry)
	require.Equal(t, DefaultLockDuration, v.LockDuration())

	_, err = f.engine.Initialize(registryAddr, InitParams{Address: vaultAddr, PositionManager: positionMgr})
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindInvariant))

	_, err = f.engine.Initialize(registryAddr, InitParams{Address: stranger, PositionManager: positionMgr, LockDuration: time.Millisecond})
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = f.engine.Initialize(registryAddr, InitParams{Address: stranger})
	require.ErrorIs(t, err, ErrZeroAddress)
}

func TestLockUnlockLifecycle(t *testing.T) {
	f, id := newVaultFixture(t)

	require.ErrorIs(t, f.engine.Lock(creator, vaultAddr, id, common.Address{}), ErrZeroAddress)
	require.ErrorIs(t, f.engine.Lock(stranger, vaultAddr, id, owner), ErrNotOwner)

	require.NoError(t, f.engine.Lock(creator, vaultAddr, id, owner))
	holder, err := f.venue.OwnerOf(positionMgr, id)
	require.NoError(t, err)
	require.Equal(t, vaultAddr, holder)

	locked, err := f.engine.IsLocked(vaultAddr, id)
	require.NoError(t, err)
	require.True(t, locked)
	ids, err := f.engine.PositionsOf(vaultAddr, owner)
	require.NoError(t, err)
	require.Equal(t, []uint64{id}, ids)
	remaining, err := f.engine.RemainingLockTime(vaultAddr, id)
	require.NoError(t, err)
	require.Equal(t, DefaultLockDuration, remaining)

	err = f.engine.Lock(creator, vaultAddr, id, owner)
	require.ErrorIs(t, err, ErrAlreadyLocked)

	f.clock += int64((DefaultLockDuration - time.Second) / time.Second)
	err = f.engine.Unlock(owner, vaultAddr, id, owner)
	require.ErrorIs(t, err, ErrStillLocked)
	remaining, err = f.engine.RemainingLockTime(vaultAddr, id)
	require.NoError(t, err)
	require.Equal(t, time.Second, remaining)

	f.clock++
	require.ErrorIs(t, f.engine.Unlock(stranger, vaultAddr, id, stranger), ErrNotOwner)
	require.ErrorIs(t, f.engine.Unlock(owner, vaultAddr, id, common.Address{}), ErrZeroAddress)
	remaining, err = f.engine.RemainingLockTime(vaultAddr, id)
	require.NoError(t, err)
	require.Zero(t, remaining)

	require.NoError(t, f.engine.Unlock(owner, vaultAddr, id, stranger))
	holder, err = f.venue.OwnerOf(positionMgr, id)
	require.NoError(t, err)
	require.Equal(t, stranger, holder)

	locked, err = f.engine.IsLocked(vaultAddr, id)
	require.NoError(t, err)
	require.False(t, locked)
	ids, err = f.engine.PositionsOf(vaultAddr, owner)
	require.NoError(t, err)
	require.Empty(t, ids)
	_, err = f.engine.Position(vaultAddr, id)
	require.ErrorIs(t, err, ErrNotLocked)
	require.ErrorIs(t, f.engine.Unlock(owner, vaultAddr, id, owner), ErrNotLocked)

	var kinds []string
	for _, evt := range f.rec.Since(0) {
		kinds = append(kinds, evt.Type)
	}
	require.Equal(t, []string{EventTypePositionLocked, EventTypePositionUnlocked}, kinds)
}

func TestClaimFeesAnyTimeForOwnerOnly(t *testing.T) {
	f, id := newVaultFixture(t)
	require.NoError(t, f.engine.Lock(creator, vaultAddr, id, owner))
	require.NoError(t, f.venue.AccrueFees(creator, id, uint256.NewInt(5), uint256.NewInt(8)))

	_, err := f.engine.ClaimFees(stranger, vaultAddr, id)
	require.ErrorIs(t, err, ErrNotOwner)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindAuthorization))

	claim, err := f.engine.ClaimFees(owner, vaultAddr, id)
	require.NoError(t, err)
	require.Equal(t, uint64(5), claim.Amount0.Uint64())
	require.Equal(t, uint64(8), claim.Amount1.Uint64())
	balance, err := f.tokens.BalanceOf(tokenB, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(8), balance.Uint64())

	locked, err := f.engine.IsLocked(vaultAddr, id)
	require.NoError(t, err)
	require.True(t, locked)

	claim, err = f.engine.ClaimFees(owner, vaultAddr, id)
	require.NoError(t, err)
	require.True(t, claim.Amount0.IsZero())

	_, err = f.engine.ClaimFees(owner, vaultAddr, id+1)
	require.ErrorIs(t, err, ErrNotLocked)
}

func TestRemainingLockTimeNeverLocked(t *testing.T) {
	f, _ := newVaultFixture(t)
	remaining, err := f.engine.RemainingLockTime(vaultAddr, 42)
	require.NoError(t, err)
	require.Zero(t, remaining)

	_, err = f.engine.RemainingLockTime(stranger, 42)
	require.ErrorIs(t, err, ErrVaultNotFound)
}
