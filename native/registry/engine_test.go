package registry

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
	"curvefoundry/core/state/statetest"
	"curvefoundry/native/curve"
	nativecommon "curvefoundry/native/common"
	"curvefoundry/native/factory"
	"curvefoundry/native/token"
	"curvefoundry/native/vault"
)

var (
	registryAddr = common.HexToAddress("0x4e00000000000000000000000000000000000001")
	baseAsset    = common.HexToAddress("0xba5e000000000000000000000000000000000001")
	owner        = common.HexToAddress("0x0e00000000000000000000000000000000000001")
	deployer     = common.HexToAddress("0xde00000000000000000000000000000000000001")
	admin        = common.HexToAddress("0xad00000000000000000000000000000000000001")
	treasury     = common.HexToAddress("0x7000000000000000000000000000000000000001")
)

func testSettings() curve.Settings {
	return curve.Settings{
		VirtualBase:     uint256.NewInt(1_000),
		BondingTarget:   uint256.NewInt(2_000),
		MinContribution: uint256.NewInt(1),
		PoolFeeTier:     3_000,
		SellFeeBps:      100,
		PoolFactory:     common.HexToAddress("0x9000000000000000000000000000000000000001"),
		PositionManager: common.HexToAddress("0x9000000000000000000000000000000000000002"),
		BaseAsset:       baseAsset,
	}
}

type registryFixture struct {
	engine    *Engine
	tokens    *token.Engine
	factories *factory.Engine
	vaults    *vault.Engine
	rec       *events.Recorder
}

func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()
	state := statetest.NewManager(t)
	rec := &events.Recorder{}
	tokens := token.NewEngine()
	tokens.SetState(state)
	_, err := tokens.Create(token.Definition{Address: baseAsset, Name: "Base", Symbol: "BASE"})
	require.NoError(t, err)
	require.NoError(t, tokens.Mint(baseAsset, treasury, uint256.NewInt(1_000_000)))
	require.NoError(t, tokens.Transfer(baseAsset, treasury, deployer, uint256.NewInt(10_000)))

	factories := factory.NewEngine()
	factories.SetState(state)
	vaults := vault.NewEngine()
	vaults.SetState(state)

	engine := NewEngine()
	engine.SetState(state)
	engine.SetLedger(tokens)
	engine.SetFactories(factories)
	engine.SetVaults(vaults)
	engine.SetEmitter(rec)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })

	r, err := engine.Initialize(InitParams{
		Address:       registryAddr,
		Owner:         owner,
		BaseAsset:     baseAsset,
		DeploymentFee: uint256.NewInt(500),
		Implementations: Implementations{
			Factory: common.HexToAddress("0x1000000000000000000000000000000000000001"),
			Vault:   common.HexToAddress("0x1000000000000000000000000000000000000002"),
			Curve:   common.HexToAddress("0x1000000000000000000000000000000000000003"),
			Token:   common.HexToAddress("0x1000000000000000000000000000000000000004"),
		},
	})
	require.NoError(t, err)
	require.Equal(t, vault.DefaultLockDuration, r.VaultLockDuration())
	return &registryFixture{engine: engine, tokens: tokens, factories: factories, vaults: vaults, rec: rec}
}

// deploy credits the attached value to the registry first and returns it
// when the deployment is rejected.
func (f *registryFixture) deploy(t *testing.T, value uint64, settings curve.Settings) (*System, error) {
	t.Helper()
	amount := uint256.NewInt(value)
	require.NoError(t, f.tokens.Transfer(baseAsset, deployer, registryAddr, amount))
	sys, err := f.engine.DeploySystem(deployer, amount, admin, uint256.NewInt(25), settings)
	if err != nil {
		require.NoError(t, f.tokens.Transfer(baseAsset, registryAddr, deployer, amount))
	}
	return sys, err
}

func (f *registryFixture) balance(t *testing.T, holder common.Address) uint64 {
	t.Helper()
	b, err := f.tokens.BalanceOf(baseAsset, holder)
	require.NoError(t, err)
	return b.Uint64()
}

func TestInitializeIsOneShot(t *testing.T) {
	f := newRegistryFixture(t)
	_, err := f.engine.Initialize(InitParams{Address: registryAddr, Owner: owner, BaseAsset: baseAsset})
	require.ErrorIs(t, err, ErrAlreadyInitialized)

	empty := NewEngine()
	empty.SetState(statetest.NewManager(t))
	_, err = empty.Registry()
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = empty.Initialize(InitParams{Address: registryAddr, BaseAsset: baseAsset})
	require.ErrorIs(t, err, ErrZeroAddress)
}

func TestDeploySystemRefundsExcess(t *testing.T) {
	f := newRegistryFixture(t)

	sys, err := f.deploy(t, 501, testSettings())
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(registryAddr, 0), sys.Factory)
	require.Equal(t, crypto.CreateAddress(registryAddr, 1), sys.Vault)
	require.Equal(t, uint64(10_000-500), f.balance(t, deployer))
	require.Equal(t, uint64(500), f.balance(t, registryAddr))

	r, err := f.engine.Registry()
	require.NoError(t, err)
	require.Equal(t, uint64(500), r.FeeBalance.Uint64())
	require.Equal(t, uint64(2), r.Nonce)

	fac, err := f.factories.Factory(sys.Factory)
	require.NoError(t, err)
	require.Equal(t, admin, fac.Owner)
	require.Equal(t, registryAddr, fac.Registry)
	require.Equal(t, sys.Vault, fac.Vault)
	require.Equal(t, uint64(200), fac.Settings.PreBondingTarget.Uint64())
	require.Equal(t, uint64(25), fac.DeploymentFee.Uint64())
	require.Equal(t, r.Implementations.Curve, fac.CurveImplementation)

	v, err := f.vaults.Vault(sys.Vault)
	require.NoError(t, err)
	require.Equal(t, registryAddr, v.Registry)
	require.Equal(t, testSettings().PositionManager, v.PositionManager)

	kind, ok := f.engine.InstanceKind(sys.Factory)
	require.True(t, ok)
	require.Equal(t, KindFactory, kind)
	kind, ok = f.engine.InstanceKind(sys.Vault)
	require.True(t, ok)
	require.Equal(t, KindVault, kind)
	require.False(t, f.engine.IsInstance(admin))

	evts := f.rec.Since(0)
	require.Len(t, evts, 2)
	require.Equal(t, events.TypeFeeRefunded, evts[0].Type)
	require.Equal(t, "1", evts[0].Attributes["amount"])
	require.Equal(t, EventTypeSystemDeployed, evts[1].Type)
	require.Equal(t, events.FormatAddress(sys.Factory), evts[1].Attributes["factory"])
}

func TestDeploySystemRejections(t *testing.T) {
	f := newRegistryFixture(t)

	_, err := f.deploy(t, 499, testSettings())
	require.ErrorIs(t, err, ErrInsufficientFee)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindEconomic))

	bad := testSettings()
	bad.BondingTarget = uint256.NewInt(100)
	_, err = f.deploy(t, 500, bad)
	require.ErrorIs(t, err, curve.ErrInvalidSettings)

	amount := uint256.NewInt(500)
	_, err = f.engine.DeploySystem(deployer, amount, common.Address{}, nil, testSettings())
	require.ErrorIs(t, err, ErrZeroAddress)

	require.Equal(t, uint64(10_000), f.balance(t, deployer))
	systems, err := f.engine.Systems()
	require.NoError(t, err)
	require.Empty(t, systems)
	require.Zero(t, f.rec.Len())
}

func TestPauseBlocksOnlyDeployments(t *testing.T) {
	f := newRegistryFixture(t)
	first, err := f.deploy(t, 500, testSettings())
	require.NoError(t, err)

	require.ErrorIs(t, f.engine.Pause(admin), ErrNotOwner)
	require.ErrorIs(t, f.engine.Unpause(owner), ErrNotPaused)
	require.NoError(t, f.engine.Pause(owner))
	require.ErrorIs(t, f.engine.Pause(owner), ErrAlreadyPaused)
	require.True(t, f.engine.IsPaused(ModuleName))
	require.False(t, f.engine.IsPaused("factory"))

	_, err = f.deploy(t, 500, testSettings())
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindPhase))

	require.NoError(t, f.engine.UpdateDeploymentFee(owner, uint256.NewInt(10)))
	_, err = f.engine.UpdateImplementation(owner, KindCurve, admin)
	require.NoError(t, err)
	amount, err := f.engine.WithdrawFees(owner, treasury)
	require.NoError(t, err)
	require.Equal(t, uint64(500), amount.Uint64())

	require.NoError(t, f.factories.UpdateDeploymentFee(admin, first.Factory, uint256.NewInt(1)))

	require.NoError(t, f.engine.Unpause(owner))
	second, err := f.deploy(t, 10, testSettings())
	require.NoError(t, err)
	systems, err := f.engine.Systems()
	require.NoError(t, err)
	require.Len(t, systems, 2)
	require.Equal(t, first.Factory, systems[0].Factory)
	require.Equal(t, second.Factory, systems[1].Factory)

	fac, err := f.factories.Factory(second.Factory)
	require.NoError(t, err)
	require.Equal(t, admin, fac.CurveImplementation)
}

func TestUpdateImplementation(t *testing.T) {
	f := newRegistryFixture(t)
	next := common.HexToAddress("0x2000000000000000000000000000000000000001")

	_, err := f.engine.UpdateImplementation(admin, KindFactory, next)
	require.ErrorIs(t, err, ErrNotOwner)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindAuthorization))
	_, err = f.engine.UpdateImplementation(owner, Kind("router"), next)
	require.ErrorIs(t, err, ErrUnknownKind)
	_, err = f.engine.UpdateImplementation(owner, KindVault, common.Address{})
	require.ErrorIs(t, err, ErrZeroAddress)

	old, err := f.engine.UpdateImplementation(owner, KindToken, next)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x1000000000000000000000000000000000000004"), old)
	current, err := f.engine.Implementation(KindToken)
	require.NoError(t, err)
	require.Equal(t, next, current)

	kind, err := ParseKind(" Vault ")
	require.NoError(t, err)
	require.Equal(t, KindVault, kind)
	_, err = ParseKind("pool")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestFeesAndOwnership(t *testing.T) {
	f := newRegistryFixture(t)

	_, err := f.engine.WithdrawFees(owner, treasury)
	require.ErrorIs(t, err, ErrNoFees)
	_, err = f.deploy(t, 700, testSettings())
	require.NoError(t, err)
	_, err = f.engine.WithdrawFees(owner, common.Address{})
	require.ErrorIs(t, err, ErrZeroAddress)

	require.ErrorIs(t, f.engine.TransferOwnership(admin, admin), ErrNotOwner)
	require.ErrorIs(t, f.engine.TransferOwnership(owner, common.Address{}), ErrZeroAddress)
	require.NoError(t, f.engine.TransferOwnership(owner, admin))
	_, err = f.engine.WithdrawFees(owner, treasury)
	require.ErrorIs(t, err, ErrNotOwner)

	before := f.balance(t, treasury)
	amount, err := f.engine.WithdrawFees(admin, treasury)
	require.NoError(t, err)
	require.Equal(t, uint64(500), amount.Uint64())
	require.Equal(t, before+500, f.balance(t, treasury))
	require.Equal(t, uint64(0), f.balance(t, registryAddr))
}

func TestVaultLockDurationFlowsToNewVaults(t *testing.T) {
	state := statetest.NewManager(t)
	vaults := vault.NewEngine()
	vaults.SetState(state)
	factories := factory.NewEngine()
	factories.SetState(state)
	tokens := token.NewEngine()
	tokens.SetState(state)

	engine := NewEngine()
	engine.SetState(state)
	engine.SetLedger(tokens)
	engine.SetFactories(factories)
	engine.SetVaults(vaults)
	_, err := engine.Initialize(InitParams{
		Address:           registryAddr,
		Owner:             owner,
		BaseAsset:         baseAsset,
		VaultLockDuration: 30 * 24 * time.Hour,
	})
	require.NoError(t, err)

	sys, err := engine.DeploySystem(deployer, nil, admin, nil, testSettings())
	require.NoError(t, err)
	v, err := vaults.Vault(sys.Vault)
	require.NoError(t, err)
	require.Equal(t, 30*24*time.Hour, v.LockDuration())
}
