package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/core/types"
	"curvefoundry/native/curve"
	"curvefoundry/native/factory"
	"curvefoundry/native/pool"
	"curvefoundry/native/registry"
	"curvefoundry/native/vault"
)

// QueryResult encapsulates the JSON rendering of a state query.
type QueryResult struct {
	Value []byte
}

// ErrQueryNotSupported indicates the requested namespace/path is not handled by the state router.
var ErrQueryNotSupported = errors.New("query: not supported")

// Reads see applied but unsealed transactions.

func (n *Node) Nonce(addr common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.Nonce(addr)
}

func (n *Node) BalanceOf(asset, holder common.Address) (*uint256.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens.BalanceOf(asset, holder)
}

func (n *Node) Registry() (*registry.Registry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Registry()
}

func (n *Node) Systems() ([]*registry.System, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Systems()
}

func (n *Node) Factory(addr common.Address) (*factory.Factory, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.factories.Factory(addr)
}

func (n *Node) Instances(factoryAddr common.Address) ([]common.Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.factories.Instances(factoryAddr)
}

func (n *Node) Curve(addr common.Address) (*curve.Curve, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.curves.Curve(addr)
}

func (n *Node) Participant(curveAddr, user common.Address) (*curve.Participant, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.curves.Participant(curveAddr, user)
}

func (n *Node) QuoteContribution(curveAddr common.Address, amount *uint256.Int) (*uint256.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.curves.QuoteContribution(curveAddr, amount)
}

func (n *Node) QuoteBuy(curveAddr common.Address, valueIn *uint256.Int) (*uint256.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.curves.QuoteBuy(curveAddr, valueIn)
}

func (n *Node) QuoteSell(curveAddr common.Address, tokenAmount *uint256.Int) (*curve.SellQuote, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.curves.QuoteSell(curveAddr, tokenAmount)
}

func (n *Node) Vault(addr common.Address) (*vault.Vault, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vaults.Vault(addr)
}

func (n *Node) LockedPosition(vaultAddr common.Address, positionID uint64) (*vault.LockedPosition, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vaults.Position(vaultAddr, positionID)
}

func (n *Node) RemainingLockTime(vaultAddr common.Address, positionID uint64) (time.Duration, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vaults.RemainingLockTime(vaultAddr, positionID)
}

func (n *Node) Pool(addr common.Address) (*pool.Pool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.venue.Pool(addr)
}

func (n *Node) Position(id uint64) (*pool.Position, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.venue.Position(id)
}

// Receipt returns the receipt of a pending or sealed transaction.
func (n *Node) Receipt(txHash common.Hash) (*types.Receipt, error) {
	n.mu.Lock()
	for _, receipt := range n.receipts {
		if receipt.TxHash == txHash {
			n.mu.Unlock()
			return receipt, nil
		}
	}
	n.mu.Unlock()
	return n.chain.Receipt(txHash)
}

// Block returns a sealed block.
func (n *Node) Block(height uint64) (*types.Block, error) {
	return n.chain.GetBlockByHeight(height)
}

// QueryState renders a record as JSON. Paths are addresses except where noted:
//
//	registry  ""            registry record
//	systems   ""            every deployed system
//	factory   <factory>     factory record and its instances
//	curve     <curve>       curve record
//	vault     <vault>       vault record
//	pool      <pool>        venue pool
//	position  <id>          venue position
//	balance   <asset>/<holder>
func (n *Node) QueryState(namespace, path string) (*QueryResult, error) {
	ns := strings.TrimSpace(strings.ToLower(namespace))
	path = strings.TrimSpace(path)

	var (
		value interface{}
		err   error
	)
	switch ns {
	case "registry":
		value, err = n.Registry()
	case "systems":
		value, err = n.Systems()
	case "factory":
		addr, perr := decodeQueryAddress(path)
		if perr != nil {
			return nil, perr
		}
		f, ferr := n.Factory(addr)
		if ferr != nil {
			return nil, ferr
		}
		instances, ierr := n.Instances(addr)
		if ierr != nil {
			return nil, ierr
		}
		value = struct {
			Factory   *factory.Factory `json:"factory"`
			Instances []common.Address `json:"instances"`
		}{f, instances}
	case "curve":
		addr, perr := decodeQueryAddress(path)
		if perr != nil {
			return nil, perr
		}
		value, err = n.Curve(addr)
	case "vault":
		addr, perr := decodeQueryAddress(path)
		if perr != nil {
			return nil, perr
		}
		value, err = n.Vault(addr)
	case "pool":
		addr, perr := decodeQueryAddress(path)
		if perr != nil {
			return nil, perr
		}
		value, err = n.Pool(addr)
	case "position":
		id, perr := strconv.ParseUint(path, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("query: invalid position id %q", path)
		}
		value, err = n.Position(id)
	case "balance":
		assetText, holderText, found := strings.Cut(path, "/")
		if !found {
			return nil, fmt.Errorf("query: balance path must be <asset>/<holder>")
		}
		asset, perr := decodeQueryAddress(assetText)
		if perr != nil {
			return nil, perr
		}
		holder, perr := decodeQueryAddress(holderText)
		if perr != nil {
			return nil, perr
		}
		balance, berr := n.BalanceOf(asset, holder)
		if berr != nil {
			return nil, berr
		}
		value = map[string]string{"balance": balance.Dec()}
	default:
		return nil, ErrQueryNotSupported
	}
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Value: payload}, nil
}

func decodeQueryAddress(text string) (common.Address, error) {
	text = strings.TrimSpace(text)
	if !common.IsHexAddress(text) {
		return common.Address{}, fmt.Errorf("query: invalid address %q", text)
	}
	return common.HexToAddress(text), nil
}
