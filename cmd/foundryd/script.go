package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"curvefoundry/core"
	"curvefoundry/core/types"
	"curvefoundry/crypto"
	"curvefoundry/native/curve"
)

// Script is a batch of transactions applied by `foundryd apply`.
//
//	seal: true
//	signers:
//	  operator: {keystore: ./operator.keystore, passphraseEnv: FOUNDRY_OPERATOR_PASS}
//	transactions:
//	  - signer: operator
//	    type: registry_deploy_system
//	    to: registry
//	    value: "10000000000000000"
//	    args: {administrator: operator, virtualBase: "1000000000000000000", bondingTarget: "2000000000000000000"}
//	  - signer: operator
//	    type: factory_deploy_instance
//	    to: $0.factory
//	    args: {name: Example, symbol: EXM}
//
// Addresses may name a signer, one of registry, venue or base, or an output of
// an earlier transaction as $<index>.<output>.
type Script struct {
	Seal            bool                  `yaml:"seal"`
	ContinueOnError bool                  `yaml:"continueOnError"`
	Signers         map[string]SignerSpec `yaml:"signers"`
	Transactions    []TxSpec              `yaml:"transactions"`
}

// SignerSpec locates the keystore of a named signer.
type SignerSpec struct {
	Keystore      string `yaml:"keystore"`
	PassphraseEnv string `yaml:"passphraseEnv"`
}

// TxSpec describes one transaction of a script.
type TxSpec struct {
	Signer string            `yaml:"signer"`
	Type   string            `yaml:"type"`
	To     string            `yaml:"to"`
	Value  string            `yaml:"value"`
	Args   map[string]string `yaml:"args"`
}

func loadScript(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %q: %w", path, err)
	}
	return parseScript(raw)
}

func parseScript(raw []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(raw, &script); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if len(script.Transactions) == 0 {
		return nil, fmt.Errorf("script has no transactions")
	}
	for i, spec := range script.Transactions {
		if _, ok := types.ParseTxType(strings.TrimSpace(spec.Type)); !ok {
			return nil, fmt.Errorf("transactions[%d]: unknown type %q", i, spec.Type)
		}
		if _, ok := script.Signers[spec.Signer]; !ok {
			return nil, fmt.Errorf("transactions[%d]: unknown signer %q", i, spec.Signer)
		}
	}
	return &script, nil
}

// unlockSigners decrypts every keystore named by the script.
func unlockSigners(script *Script, passphrase func(SignerSpec) (string, error)) (map[string]*crypto.PrivateKey, error) {
	keys := make(map[string]*crypto.PrivateKey, len(script.Signers))
	for name, spec := range script.Signers {
		pass, err := passphrase(spec)
		if err != nil {
			return nil, fmt.Errorf("signer %s: %w", name, err)
		}
		key, err := crypto.LoadFromKeystore(spec.Keystore, pass)
		if err != nil {
			return nil, fmt.Errorf("signer %s: %w", name, err)
		}
		keys[name] = key
	}
	return keys, nil
}

type scriptRunner struct {
	node     *core.Node
	signers  map[string]*crypto.PrivateKey
	receipts []*types.Receipt
	logger   *slog.Logger
}

func newScriptRunner(node *core.Node, signers map[string]*crypto.PrivateKey, logger *slog.Logger) *scriptRunner {
	return &scriptRunner{
		node:    node,
		signers: signers,
		logger:  logger.With(slog.String("batch", uuid.NewString())),
	}
}

// run applies the script in order. Execution failures stop the batch unless
// the script continues on error; admission failures always stop it.
func (r *scriptRunner) run(script *Script) ([]*types.Receipt, error) {
	for i, spec := range script.Transactions {
		tx, err := r.build(spec)
		if err != nil {
			return r.receipts, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		receipt, err := r.node.ApplyTransaction(tx)
		if receipt == nil {
			return r.receipts, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		r.receipts = append(r.receipts, receipt)
		r.logger.Info("script transaction",
			slog.Int("index", i),
			slog.String("type", receipt.Type),
			slog.Bool("ok", receipt.Succeeded()))
		if err != nil && !script.ContinueOnError {
			return r.receipts, fmt.Errorf("transactions[%d]: %w", i, err)
		}
	}
	if script.Seal {
		if _, err := r.node.SealBlock(); err != nil {
			return r.receipts, err
		}
	}
	return r.receipts, nil
}

func (r *scriptRunner) build(spec TxSpec) (*types.Transaction, error) {
	key := r.signers[spec.Signer]
	if key == nil {
		return nil, fmt.Errorf("signer %q is not unlocked", spec.Signer)
	}
	txType, _ := types.ParseTxType(strings.TrimSpace(spec.Type))
	to, err := r.address(spec.To)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	value, err := r.amount(spec.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	payload, err := r.payload(txType, args(spec.Args))
	if err != nil {
		return nil, err
	}
	data, err := core.EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	nonce, err := r.node.Nonce(key.Address())
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{Type: txType, Nonce: nonce, To: to, Value: value, Data: data}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, err
	}
	return tx, nil
}

type args map[string]string

func (a args) get(name string) string { return strings.TrimSpace(a[name]) }

func (r *scriptRunner) payload(txType types.TxType, a args) (interface{}, error) {
	var err error
	amount := func(name string) *uint256.Int {
		if err != nil {
			return nil
		}
		var v *uint256.Int
		if v, err = r.amount(a.get(name)); err != nil {
			err = fmt.Errorf("%s: %w", name, err)
		}
		return v
	}
	address := func(name, fallback string) common.Address {
		if err != nil {
			return common.Address{}
		}
		raw := a.get(name)
		if raw == "" {
			raw = fallback
		}
		var v common.Address
		if v, err = r.address(raw); err != nil {
			err = fmt.Errorf("%s: %w", name, err)
		}
		return v
	}
	position := func() uint64 {
		if err != nil {
			return 0
		}
		var id uint64
		if id, err = strconv.ParseUint(r.resolve(a.get("positionId")), 10, 64); err != nil {
			err = fmt.Errorf("positionId: %w", err)
		}
		return id
	}

	var payload interface{}
	switch txType {
	case types.TxTypeTransfer:
		payload = &core.TransferPayload{Asset: address("asset", "base"), Amount: amount("amount")}
	case types.TxTypeDeploySystem:
		payload = &core.DeploySystemPayload{
			Administrator: address("administrator", ""),
			DeploymentFee: amount("deploymentFee"),
			Settings:      r.settings(a, amount, address),
		}
	case types.TxTypeUpdateImplementation:
		payload = &core.ImplementationPayload{Kind: a.get("kind"), Implementation: address("implementation", "")}
	case types.TxTypeUpdateRegistryFee, types.TxTypeUpdateFactoryFee:
		payload = &core.FeePayload{Fee: amount("fee")}
	case types.TxTypeWithdrawRegistryFees, types.TxTypeWithdrawFactoryFees, types.TxTypeWithdrawAllocation:
		payload = &core.RecipientPayload{Recipient: address("recipient", "")}
	case types.TxTypeTransferRegistryOwnership:
		payload = &core.OwnerPayload{Owner: address("owner", "")}
	case types.TxTypeDeployInstance:
		payload = &core.DeployInstancePayload{Name: a.get("name"), Symbol: a.get("symbol")}
	case types.TxTypeUpdateFactorySettings:
		payload = &core.SettingsPayload{Settings: r.settings(a, amount, address)}
	case types.TxTypeBuy:
		payload = &core.BuyPayload{MinTokensOut: amount("minTokensOut")}
	case types.TxTypeSell:
		payload = &core.SellPayload{Amount: amount("amount"), MinValueOut: amount("minValueOut")}
	case types.TxTypeUnlockPosition:
		payload = &core.PositionPayload{PositionID: position(), Recipient: address("recipient", "")}
	case types.TxTypeClaimPositionFees:
		payload = &core.PositionPayload{PositionID: position()}
	case types.TxTypeAccruePoolFees:
		payload = &core.AccrueFeesPayload{PositionID: position(), Amount0: amount("amount0"), Amount1: amount("amount1")}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *scriptRunner) settings(a args, amount func(string) *uint256.Int, address func(string, string) common.Address) curve.Settings {
	feeTier := uint64(3_000)
	if raw := a.get("poolFeeTier"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil {
			feeTier = parsed
		}
	}
	var sellFee uint64
	if raw := a.get("sellFeeBps"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil {
			sellFee = parsed
		}
	}
	var feeRecipient common.Address
	if a.get("feeRecipient") != "" {
		feeRecipient = address("feeRecipient", "")
	}
	return curve.Settings{
		VirtualBase:     amount("virtualBase"),
		BondingTarget:   amount("bondingTarget"),
		MinContribution: amount("minContribution"),
		PoolFeeTier:     uint32(feeTier),
		SellFeeBps:      uint32(sellFee),
		PoolFactory:     address("poolFactory", r.node.VenueFactory().Hex()),
		PositionManager: address("positionManager", "venue"),
		BaseAsset:       address("baseAsset", "base"),
		FeeRecipient:    feeRecipient,
	}
}

// resolve substitutes $<index>.<output> references with the output of an
// earlier transaction. Unknown references resolve to the empty string.
func (r *scriptRunner) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "$") {
		return raw
	}
	indexText, key, ok := strings.Cut(raw[1:], ".")
	if !ok {
		return ""
	}
	index, err := strconv.Atoi(indexText)
	if err != nil || index < 0 || index >= len(r.receipts) {
		return ""
	}
	return r.receipts[index].Outputs[key]
}

func (r *scriptRunner) address(raw string) (common.Address, error) {
	value := r.resolve(raw)
	switch value {
	case "":
		return common.Address{}, fmt.Errorf("unresolved address %q", raw)
	case "registry":
		return r.node.RegistryAddress(), nil
	case "venue":
		return r.node.VenueManager(), nil
	case "base":
		return r.node.BaseAsset(), nil
	}
	if key, ok := r.signers[value]; ok {
		return key.Address(), nil
	}
	return crypto.ParseAddress(value)
}

func (r *scriptRunner) amount(raw string) (*uint256.Int, error) {
	value := r.resolve(raw)
	if value == "" {
		return nil, nil
	}
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}
