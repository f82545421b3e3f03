package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"curvefoundry/core"
	"curvefoundry/core/genesis"
	"curvefoundry/crypto"
	"curvefoundry/native/curve"
	"curvefoundry/storage"
)

const deployScript = `
seal: true
signers:
  operator: {keystore: unused}
  creator: {keystore: unused}
transactions:
  - signer: operator
    type: transfer
    to: creator
    args: {amount: "5000000000000000000"}
  - signer: operator
    type: registry_deploy_system
    to: registry
    value: "10000000000000000"
    args:
      administrator: operator
      deploymentFee: "1000"
      virtualBase: "1000000000000000000"
      bondingTarget: "2000000000000000000"
      minContribution: "1000000000000000"
      sellFeeBps: "100"
  - signer: creator
    type: factory_deploy_instance
    to: $1.factory
    value: "1000"
    args: {name: Scripted, symbol: SCR}
  - signer: creator
    type: curve_contribute
    to: $2.curve
    value: "200000000000000000"
`

func newScriptNode(t *testing.T) (*core.Node, map[string]*crypto.PrivateKey) {
	t.Helper()
	operator, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	creator, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	node, err := core.NewNode(storage.NewMemDB(), genesis.DefaultGenesisSpec(operator.Address()), core.WithLogger(logger))
	require.NoError(t, err)
	return node, map[string]*crypto.PrivateKey{"operator": operator, "creator": creator}
}

func TestScriptRunsDeploymentChain(t *testing.T) {
	script, err := parseScript([]byte(deployScript))
	require.NoError(t, err)
	node, signers := newScriptNode(t)

	runner := newScriptRunner(node, signers, slog.New(slog.NewTextHandler(io.Discard, nil)))
	receipts, err := runner.run(script)
	require.NoError(t, err)
	require.Len(t, receipts, 4)
	for _, receipt := range receipts {
		require.True(t, receipt.Succeeded(), receipt.Error)
	}
	require.Equal(t, uint64(1), node.Height())

	curveAddr := common.HexToAddress(receipts[2].Outputs["curve"])
	c, err := node.Curve(curveAddr)
	require.NoError(t, err)
	require.Equal(t, curve.PhaseBonding, c.Phase)
	require.Equal(t, signers["creator"].Address(), c.Admin)
	require.Equal(t, node.VenueManager(), c.Settings.PositionManager)
	require.Equal(t, node.BaseAsset(), c.Settings.BaseAsset)
	require.Equal(t, uint32(3_000), c.Settings.PoolFeeTier)
	require.Equal(t, uint32(100), c.Settings.SellFeeBps)
}

func TestScriptStopsOnFailure(t *testing.T) {
	script, err := parseScript([]byte(`
signers:
  operator: {keystore: unused}
transactions:
  - signer: operator
    type: curve_buy
    to: "0x00000000000000000000000000000000000000aa"
    value: "1"
  - signer: operator
    type: registry_pause
    to: registry
`))
	require.NoError(t, err)
	node, signers := newScriptNode(t)

	receipts, err := newScriptRunner(node, signers, slog.New(slog.NewTextHandler(io.Discard, nil))).run(script)
	require.ErrorIs(t, err, curve.ErrCurveNotFound)
	require.Len(t, receipts, 1)
	require.False(t, receipts[0].Succeeded())

	script.ContinueOnError = true
	receipts, err = newScriptRunner(node, signers, slog.New(slog.NewTextHandler(io.Discard, nil))).run(script)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	require.True(t, receipts[1].Succeeded())
	reg, err := node.Registry()
	require.NoError(t, err)
	require.True(t, reg.Paused)
}

func TestScriptUnresolvedReference(t *testing.T) {
	script, err := parseScript([]byte(`
signers:
  operator: {keystore: unused}
transactions:
  - signer: operator
    type: factory_deploy_instance
    to: $4.factory
`))
	require.NoError(t, err)
	node, signers := newScriptNode(t)
	_, err = newScriptRunner(node, signers, slog.New(slog.NewTextHandler(io.Discard, nil))).run(script)
	require.ErrorContains(t, err, "unresolved address")
	require.Zero(t, node.Pending())
}

func TestParseScriptRejectsUnknowns(t *testing.T) {
	_, err := parseScript([]byte("transactions: []\n"))
	require.Error(t, err)

	_, err = parseScript([]byte(`
signers: {a: {keystore: x}}
transactions: [{signer: a, type: curve_teleport, to: registry}]
`))
	require.ErrorContains(t, err, "unknown type")

	_, err = parseScript([]byte(`
signers: {a: {keystore: x}}
transactions: [{signer: b, type: registry_pause, to: registry}]
`))
	require.ErrorContains(t, err, "unknown signer")
}

func TestUnlockSignersReadsKeystores(t *testing.T) {
	dir := t.TempDir()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(dir, "signer.keystore")
	addr, err := crypto.SaveToKeystore(path, key, "pw", crypto.LightScrypt)
	require.NoError(t, err)

	script := &Script{Signers: map[string]SignerSpec{"s": {Keystore: path}}}
	keys, err := unlockSigners(script, func(SignerSpec) (string, error) { return "pw", nil })
	require.NoError(t, err)
	require.Equal(t, addr, keys["s"].Address())

	_, err = unlockSigners(script, func(SignerSpec) (string, error) { return "wrong", nil })
	require.Error(t, err)
}
