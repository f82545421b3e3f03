package core

import (
	"github.com/holiman/uint256"

	"curvefoundry/core/genesis"
	"curvefoundry/native/token"
)

// applyGenesis creates the base asset, distributes its supply, initialises
// the registry, binds pricing to its curve template and seals everything as
// block zero.
func (n *Node) applyGenesis(spec *genesis.GenesisSpec) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.state.KVPut(nodeMetaKey, &n.meta); err != nil {
		return err
	}
	if _, err := n.tokens.Create(token.Definition{
		Address:  n.meta.BaseAsset,
		Name:     spec.BaseAsset.Name,
		Symbol:   spec.BaseAsset.Symbol,
		Decimals: spec.BaseAsset.Decimals,
	}); err != nil {
		return err
	}

	allocations := spec.Allocations()
	total := new(uint256.Int)
	for _, alloc := range allocations {
		var overflow bool
		if total, overflow = new(uint256.Int).AddOverflow(total, alloc.Amount); overflow {
			return token.ErrSupplyOverflow
		}
	}
	base := n.meta.BaseAsset
	if !total.IsZero() {
		// The asset address holds the supply only for the span of genesis.
		if err := n.tokens.Mint(base, base, total); err != nil {
			return err
		}
		for _, alloc := range allocations {
			if err := n.tokens.Transfer(base, base, alloc.Holder, alloc.Amount); err != nil {
				return err
			}
		}
	}

	reg, err := n.registry.Initialize(spec.RegistryParams())
	if err != nil {
		return err
	}
	if err := n.bindCurvePricing(reg.Implementations.Curve); err != nil {
		return err
	}
	_, err = n.sealLocked()
	return err
}
