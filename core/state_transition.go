package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
	"curvefoundry/core/types"
	"curvefoundry/native/registry"
)

// payable lists the operations that accept attached base asset value.
var payable = map[types.TxType]bool{
	types.TxTypeDeploySystem:   true,
	types.TxTypeDeployInstance: true,
	types.TxTypeContribute:     true,
	types.TxTypeBuy:            true,
}

type outputs map[string]string

func (o outputs) addr(key string, v common.Address) { o[key] = events.FormatAddress(v) }
func (o outputs) amount(key string, v *uint256.Int) { o[key] = events.FormatAmount(v) }

// ApplyTransaction verifies and executes tx. Once signature and nonce check
// out the transaction is included: its nonce is consumed and a receipt is
// produced even if execution fails. A failed execution leaves no state change
// and no events behind; its error is returned alongside the receipt.
func (n *Node) ApplyTransaction(tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrInvalidPayload)
	}
	from, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	expected, err := n.state.Nonce(from)
	if err != nil {
		return nil, err
	}
	if tx.Nonce != expected {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, expected, tx.Nonce)
	}

	started := time.Now()
	snap := n.trie.Snapshot()
	mark := n.recorder.Len()
	out, execErr := n.execute(from, tx)
	if execErr != nil {
		n.trie.Revert(snap)
		n.recorder.Truncate(mark)
	}
	if err := n.state.IncrementNonce(from); err != nil {
		return nil, err
	}

	receipt := &types.Receipt{
		TxHash: hash,
		Type:   tx.Type.String(),
		From:   from,
		Nonce:  tx.Nonce,
		Status: types.ReceiptStatusSuccess,
	}
	kind := ""
	if execErr != nil {
		kind = coreerrors.KindOf(execErr).String()
		receipt.Status = types.ReceiptStatusFailed
		receipt.Error = execErr.Error()
		receipt.ErrorKind = kind
	} else {
		receipt.Outputs = out
		receipt.Events = n.recorder.Since(mark)
		for _, evt := range receipt.Events {
			n.metrics.ObserveEvent(evt.Type)
		}
	}
	n.pending = append(n.pending, tx)
	n.receipts = append(n.receipts, receipt)
	n.metrics.ObserveTransaction(receipt.Type, kind, time.Since(started))

	attrs := []any{
		slog.String("tx", hash.Hex()),
		slog.String("type", receipt.Type),
		slog.String("from", from.Hex()),
		slog.Uint64("nonce", tx.Nonce),
	}
	if execErr != nil {
		n.logger.Warn("transaction rejected", append(attrs, slog.String("kind", kind), slog.Any("error", execErr))...)
		return receipt, execErr
	}
	n.logger.Info("transaction applied", append(attrs, slog.Int("events", len(receipt.Events)))...)
	return receipt, nil
}

func (n *Node) execute(from common.Address, tx *types.Transaction) (outputs, error) {
	value := amountOrZero(tx.Value)
	if !value.IsZero() {
		if !payable[tx.Type] {
			return nil, fmt.Errorf("%w: %s", ErrValueNotAccepted, tx.Type)
		}
		if err := n.tokens.Transfer(n.meta.BaseAsset, from, tx.To, value); err != nil {
			return nil, fmt.Errorf("attach value: %w", err)
		}
	}

	out := outputs{}
	switch tx.Type {
	case types.TxTypeTransfer:
		var p TransferPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return out, n.tokens.Transfer(p.Asset, from, tx.To, amountOrZero(p.Amount))

	case types.TxTypeDeploySystem:
		if err := n.requireRegistry(tx.To); err != nil {
			return nil, err
		}
		var p DeploySystemPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		sys, err := n.registry.DeploySystem(from, value, p.Administrator, p.DeploymentFee, p.Settings)
		if err != nil {
			return nil, err
		}
		out.addr("factory", sys.Factory)
		out.addr("vault", sys.Vault)

	case types.TxTypeUpdateImplementation:
		if err := n.requireRegistry(tx.To); err != nil {
			return nil, err
		}
		var p ImplementationPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		kind, err := registry.ParseKind(p.Kind)
		if err != nil {
			return nil, err
		}
		previous, err := n.registry.UpdateImplementation(from, kind, p.Implementation)
		if err != nil {
			return nil, err
		}
		if kind == registry.KindCurve {
			if err := n.bindCurvePricing(p.Implementation); err != nil {
				return nil, err
			}
		}
		out.addr("previous", previous)

	case types.TxTypePauseRegistry, types.TxTypeUnpauseRegistry:
		if err := n.requireRegistry(tx.To); err != nil {
			return nil, err
		}
		if tx.Type == types.TxTypePauseRegistry {
			return out, n.registry.Pause(from)
		}
		return out, n.registry.Unpause(from)

	case types.TxTypeUpdateRegistryFee:
		if err := n.requireRegistry(tx.To); err != nil {
			return nil, err
		}
		var p FeePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return out, n.registry.UpdateDeploymentFee(from, p.Fee)

	case types.TxTypeWithdrawRegistryFees:
		if err := n.requireRegistry(tx.To); err != nil {
			return nil, err
		}
		var p RecipientPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		amount, err := n.registry.WithdrawFees(from, p.Recipient)
		if err != nil {
			return nil, err
		}
		out.amount("amount", amount)

	case types.TxTypeTransferRegistryOwnership:
		if err := n.requireRegistry(tx.To); err != nil {
			return nil, err
		}
		var p OwnerPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return out, n.registry.TransferOwnership(from, p.Owner)

	case types.TxTypeDeployInstance:
		if err := n.requireInstance(tx.To, registry.KindFactory); err != nil {
			return nil, err
		}
		var p DeployInstancePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		inst, err := n.factories.DeployInstance(from, tx.To, value, p.Name, p.Symbol)
		if err != nil {
			return nil, err
		}
		out.addr("token", inst.Token)
		out.addr("curve", inst.Curve)

	case types.TxTypeUpdateFactorySettings:
		var p SettingsPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		applied, err := n.factories.UpdateSettings(from, tx.To, p.Settings)
		if err != nil {
			return nil, err
		}
		out.amount("preBondingTarget", applied.PreBondingTarget)

	case types.TxTypeUpdateFactoryFee:
		var p FeePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return out, n.factories.UpdateDeploymentFee(from, tx.To, p.Fee)

	case types.TxTypeWithdrawFactoryFees:
		var p RecipientPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		amount, err := n.factories.WithdrawFees(from, tx.To, p.Recipient)
		if err != nil {
			return nil, err
		}
		out.amount("amount", amount)

	case types.TxTypeContribute:
		allocation, err := n.curves.ContributePreBonding(from, tx.To, value)
		if err != nil {
			return nil, err
		}
		out.amount("allocation", allocation)

	case types.TxTypeBuy:
		var p BuyPayload
		if len(tx.Data) > 0 {
			if err := decodePayload(tx.Data, &p); err != nil {
				return nil, err
			}
		}
		tokensOut, err := n.curves.BuyTokens(from, tx.To, value, amountOrZero(p.MinTokensOut))
		if err != nil {
			return nil, err
		}
		out.amount("tokensOut", tokensOut)

	case types.TxTypeSell:
		var p SellPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		quote, err := n.curves.SellTokens(from, tx.To, amountOrZero(p.Amount), amountOrZero(p.MinValueOut))
		if err != nil {
			return nil, err
		}
		out.amount("gross", quote.Gross)
		out.amount("fee", quote.Fee)
		out.amount("valueOut", quote.Net)

	case types.TxTypeFinalize:
		poolAddr, positionID, err := n.curves.FinalizeCurve(from, tx.To)
		if err != nil {
			return nil, err
		}
		out.addr("pool", poolAddr)
		out["positionId"] = strconv.FormatUint(positionID, 10)

	case types.TxTypeWithdrawAllocation:
		var p RecipientPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		amount, err := n.curves.WithdrawTokenAllocation(from, tx.To, p.Recipient)
		if err != nil {
			return nil, err
		}
		out.amount("amount", amount)

	case types.TxTypeUnlockPosition:
		if err := n.requireInstance(tx.To, registry.KindVault); err != nil {
			return nil, err
		}
		var p PositionPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return out, n.vaults.Unlock(from, tx.To, p.PositionID, p.Recipient)

	case types.TxTypeClaimPositionFees:
		if err := n.requireInstance(tx.To, registry.KindVault); err != nil {
			return nil, err
		}
		var p PositionPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		claim, err := n.vaults.ClaimFees(from, tx.To, p.PositionID)
		if err != nil {
			return nil, err
		}
		out.amount("amount0", claim.Amount0)
		out.amount("amount1", claim.Amount1)

	case types.TxTypeAccruePoolFees:
		if tx.To != n.meta.VenueManager {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, tx.To.Hex())
		}
		var p AccrueFeesPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return out, n.venue.AccrueFees(from, p.PositionID, amountOrZero(p.Amount0), amountOrZero(p.Amount1))

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTxType, byte(tx.Type))
	}
	return out, nil
}

func (n *Node) requireRegistry(to common.Address) error {
	if to != n.meta.Registry {
		return fmt.Errorf("%w: %s is not the registry", ErrUnknownTarget, to.Hex())
	}
	return nil
}

func (n *Node) requireInstance(to common.Address, kind registry.Kind) error {
	got, ok := n.registry.InstanceKind(to)
	if !ok || got != kind {
		return fmt.Errorf("%w: %s is not a registered %s", ErrUnknownTarget, to.Hex(), kind)
	}
	return nil
}

// IsRejection reports whether err came from executing a transaction rather
// than from admitting it.
func IsRejection(err error) bool {
	return err != nil && !errors.Is(err, ErrInvalidSignature) && !errors.Is(err, ErrNonceMismatch)
}
