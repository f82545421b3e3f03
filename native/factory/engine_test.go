package factory

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
	"curvefoundry/core/state/statetest"
	"curvefoundry/native/curve"
	"curvefoundry/native/token"
)

var (
	registryAddr = common.HexToAddress("0x4e00000000000000000000000000000000000001")
	factoryAddr  = common.HexToAddress("0xfac0000000000000000000000000000000000001")
	vaultAddr    = common.HexToAddress("0x5a00000000000000000000000000000000000001")
	baseAsset    = common.HexToAddress("0xba5e000000000000000000000000000000000001")
	owner        = common.HexToAddress("0x0e00000000000000000000000000000000000001")
	creator      = common.HexToAddress("0xc4ea700000000000000000000000000000000001")
	stranger     = common.HexToAddress("0xb0b0000000000000000000000000000000000001")
	treasury     = common.HexToAddress("0x7000000000000000000000000000000000000001")
)

func testSettings() curve.Settings {
	return curve.Settings{
		VirtualBase:      uint256.NewInt(1_000),
		PreBondingTarget: uint256.NewInt(7),
		BondingTarget:    uint256.NewInt(2_000),
		MinContribution:  uint256.NewInt(1),
		PoolFeeTier:      3_000,
		SellFeeBps:       50,
		PoolFactory:      common.HexToAddress("0x9000000000000000000000000000000000000001"),
		PositionManager:  common.HexToAddress("0x9000000000000000000000000000000000000002"),
		BaseAsset:        baseAsset,
	}
}

type factoryFixture struct {
	engine *Engine
	tokens *token.Engine
	curves *curve.Engine
	rec    *events.Recorder
}

func newFactoryFixture(t *testing.T) *factoryFixture {
	t.Helper()
	state := statetest.NewManager(t)
	rec := &events.Recorder{}
	tokens := token.NewEngine()
	tokens.SetState(state)
	_, err := tokens.Create(token.Definition{Address: baseAsset, Name: "Base", Symbol: "BASE"})
	require.NoError(t, err)
	require.NoError(t, tokens.Mint(baseAsset, treasury, uint256.NewInt(1_000_000)))
	require.NoError(t, tokens.Transfer(baseAsset, treasury, creator, uint256.NewInt(10_000)))

	curves := curve.NewEngine()
	curves.SetState(state)
	curves.SetLedger(tokens)

	engine := NewEngine()
	engine.SetState(state)
	engine.SetTokens(tokens)
	engine.SetCurves(curves)
	engine.SetEmitter(rec)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })

	f, err := engine.Initialize(registryAddr, InitParams{
		Address:       factoryAddr,
		Owner:         owner,
		Vault:         vaultAddr,
		Settings:      testSettings(),
		DeploymentFee: uint256.NewInt(100),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(200), f.Settings.PreBondingTarget.Uint64())
	require.Equal(t, registryAddr, f.Registry)
	return &factoryFixture{engine: engine, tokens: tokens, curves: curves, rec: rec}
}

func (f *factoryFixture) deploy(t *testing.T, value uint64, name, symbol string) (*Instance, error) {
	t.Helper()
	amount := uint256.NewInt(value)
	require.NoError(t, f.tokens.Transfer(baseAsset, creator, factoryAddr, amount))
	inst, err := f.engine.DeployInstance(creator, factoryAddr, amount, name, symbol)
	if err != nil {
		require.NoError(t, f.tokens.Transfer(baseAsset, factoryAddr, creator, amount))
	}
	return inst, err
}

func TestInitializeIsOneShot(t *testing.T) {
	f := newFactoryFixture(t)
	_, err := f.engine.Initialize(registryAddr, InitParams{
		Address:  factoryAddr,
		Owner:    owner,
		Vault:    vaultAddr,
		Settings: testSettings(),
	})
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindInvariant))

	bad := testSettings()
	bad.BondingTarget = uint256.NewInt(200)
	_, err = f.engine.Initialize(registryAddr, InitParams{Address: stranger, Owner: owner, Vault: vaultAddr, Settings: bad})
	require.ErrorIs(t, err, curve.ErrInvalidSettings)
}

func TestDeployInstance(t *testing.T) {
	f := newFactoryFixture(t)

	_, err := f.deploy(t, 99, "Fan Coin", "FAN")
	require.ErrorIs(t, err, ErrInsufficientFee)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindEconomic))
	_, err = f.deploy(t, 100, "Fan Coin", "FAN-1")
	require.ErrorIs(t, err, token.ErrInvalidSymbol)

	inst, err := f.deploy(t, 150, "Fan Coin", "fan")
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(factoryAddr, 0), inst.Token)
	require.Equal(t, crypto.CreateAddress(factoryAddr, 1), inst.Curve)
	require.Equal(t, "FAN", inst.Symbol)

	c, err := f.curves.Curve(inst.Curve)
	require.NoError(t, err)
	require.Equal(t, curve.PhasePreBonding, c.Phase)
	require.Equal(t, creator, c.Admin)
	require.Equal(t, vaultAddr, c.Vault)
	require.True(t, c.TotalSupply.Eq(token.FixedSupply))
	require.True(t, c.BaseReserve.Eq(uint256.NewInt(1_000)))

	held, err := f.tokens.BalanceOf(inst.Token, inst.Curve)
	require.NoError(t, err)
	require.True(t, held.Eq(token.FixedSupply))
	require.ErrorIs(t, f.tokens.Mint(inst.Token, creator, uint256.NewInt(1)), token.ErrAlreadyMinted)

	curveAddr, err := f.engine.CurveForToken(factoryAddr, inst.Token)
	require.NoError(t, err)
	require.Equal(t, inst.Curve, curveAddr)
	tokenAddr, err := f.engine.TokenForCurve(factoryAddr, inst.Curve)
	require.NoError(t, err)
	require.Equal(t, inst.Token, tokenAddr)
	require.True(t, f.engine.IsInstance(factoryAddr, inst.Token))
	require.True(t, f.engine.IsInstance(factoryAddr, inst.Curve))
	require.False(t, f.engine.IsInstance(factoryAddr, stranger))
	_, err = f.engine.CurveForToken(factoryAddr, stranger)
	require.ErrorIs(t, err, ErrInstanceNotFound)

	second, err := f.deploy(t, 100, "Second", "TWO")
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(factoryAddr, 2), second.Token)
	all, err := f.engine.Instances(factoryAddr)
	require.NoError(t, err)
	require.Equal(t, []common.Address{inst.Token, inst.Curve, second.Token, second.Curve}, all)

	record, err := f.engine.Factory(factoryAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(250), record.FeeBalance.Uint64())
	require.Equal(t, uint64(2), record.Instances)
}

func TestUpdateSettingsDerivesTargetAndSparesExistingCurves(t *testing.T) {
	f := newFactoryFixture(t)
	first, err := f.deploy(t, 100, "First", "ONE")
	require.NoError(t, err)

	next := testSettings()
	next.VirtualBase = uint256.NewInt(5_000)
	next.PreBondingTarget = uint256.NewInt(1)
	next.BondingTarget = uint256.NewInt(9_000)

	_, err = f.engine.UpdateSettings(stranger, factoryAddr, next)
	require.ErrorIs(t, err, ErrNotOwner)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindAuthorization))

	applied, err := f.engine.UpdateSettings(owner, factoryAddr, next)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), applied.PreBondingTarget.Uint64())

	next.BondingTarget = uint256.NewInt(1_000)
	_, err = f.engine.UpdateSettings(owner, factoryAddr, next)
	require.ErrorIs(t, err, curve.ErrInvalidSettings)

	second, err := f.deploy(t, 100, "Second", "TWO")
	require.NoError(t, err)
	old, err := f.curves.Settings(first.Curve)
	require.NoError(t, err)
	require.Equal(t, uint64(200), old.PreBondingTarget.Uint64())
	fresh, err := f.curves.Settings(second.Curve)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), fresh.PreBondingTarget.Uint64())
}

func TestDeploymentFeeAndWithdrawal(t *testing.T) {
	f := newFactoryFixture(t)

	require.ErrorIs(t, f.engine.UpdateDeploymentFee(stranger, factoryAddr, uint256.NewInt(1)), ErrNotOwner)
	require.NoError(t, f.engine.UpdateDeploymentFee(owner, factoryAddr, uint256.NewInt(300)))
	_, err := f.deploy(t, 299, "Coin", "COIN")
	require.ErrorIs(t, err, ErrInsufficientFee)

	_, err = f.engine.WithdrawFees(owner, factoryAddr, stranger)
	require.ErrorIs(t, err, ErrNoFees)

	_, err = f.deploy(t, 300, "Coin", "COIN")
	require.NoError(t, err)

	_, err = f.engine.WithdrawFees(owner, factoryAddr, common.Address{})
	require.ErrorIs(t, err, ErrZeroAddress)
	_, err = f.engine.WithdrawFees(stranger, factoryAddr, stranger)
	require.ErrorIs(t, err, ErrNotOwner)

	amount, err := f.engine.WithdrawFees(owner, factoryAddr, stranger)
	require.NoError(t, err)
	require.Equal(t, uint64(300), amount.Uint64())
	balance, err := f.tokens.BalanceOf(baseAsset, stranger)
	require.NoError(t, err)
	require.Equal(t, uint64(300), balance.Uint64())

	_, err = f.engine.WithdrawFees(owner, factoryAddr, stranger)
	require.ErrorIs(t, err, ErrNoFees)

	var seen []string
	for _, evt := range f.rec.Since(0) {
		seen = append(seen, evt.Type)
		if evt.Type == events.TypeDeploymentFeeUpdated {
			require.Equal(t, "100", evt.Attributes["old"])
			require.Equal(t, "300", evt.Attributes["new"])
		}
	}
	require.Equal(t, []string{events.TypeDeploymentFeeUpdated, EventTypeInstanceDeployed, events.TypeFeesWithdrawn}, seen)
}
