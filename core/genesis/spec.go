// Package genesis parses and validates the document that seeds a fresh
// foundry state: the base asset, its initial holders and the registry.
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/native/registry"
)

type GenesisSpec struct {
	GenesisTime string            `json:"genesisTime"`
	BaseAsset   BaseAssetSpec     `json:"baseAsset"`
	Alloc       map[string]string `json:"alloc"` // addr -> base asset amount
	Registry    RegistrySpec      `json:"registry"`
	Venue       VenueSpec         `json:"venue"`

	genesisTimestamp time.Time
	allocations      []Allocation
	registryParams   registry.InitParams
}

type BaseAssetSpec struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`

	address common.Address
}

type RegistrySpec struct {
	Address           string            `json:"address"`
	Owner             string            `json:"owner"`
	DeploymentFee     string            `json:"deploymentFee"`
	VaultLockDuration string            `json:"vaultLockDuration,omitempty"`
	Implementations   map[string]string `json:"implementations,omitempty"`
}

// VenueSpec names the factory and position manager of the in-process venue.
type VenueSpec struct {
	Factory         string `json:"factory"`
	PositionManager string `json:"positionManager"`

	factory common.Address
	manager common.Address
}

// Allocation is one initial base asset balance.
type Allocation struct {
	Holder common.Address
	Amount *uint256.Int
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a JSON genesis document.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

// DefaultGenesisSpec is the single-operator development genesis: owner holds
// the whole base asset supply and owns the registry.
func DefaultGenesisSpec(owner common.Address) *GenesisSpec {
	spec := &GenesisSpec{
		GenesisTime: "2026-01-01T00:00:00Z",
		BaseAsset: BaseAssetSpec{
			Address:  "0x00000000000000000000000000000000000ba5e0",
			Name:     "Wrapped Ether",
			Symbol:   "WETH",
			Decimals: 18,
		},
		Alloc: map[string]string{
			owner.Hex(): "1000000000000000000000000",
		},
		Registry: RegistrySpec{
			Address:           "0x00000000000000000000000000000000000f0c00",
			Owner:             owner.Hex(),
			DeploymentFee:     "10000000000000000",
			VaultLockDuration: "8760h",
			Implementations: map[string]string{
				string(registry.KindFactory): "0x00000000000000000000000000000000000f0c01",
				string(registry.KindVault):   "0x00000000000000000000000000000000000f0c02",
				string(registry.KindCurve):   "0x00000000000000000000000000000000000f0c03",
				string(registry.KindToken):   "0x00000000000000000000000000000000000f0c04",
			},
		},
		Venue: VenueSpec{
			Factory:         "0x0000000000000000000000000000000000000f01",
			PositionManager: "0x0000000000000000000000000000000000000f02",
		},
	}
	if err := spec.validate(); err != nil {
		panic(fmt.Sprintf("default genesis invalid: %v", err))
	}
	return spec
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// BaseAssetAddress is the ledger address of the base asset.
func (s *GenesisSpec) BaseAssetAddress() common.Address { return s.BaseAsset.address }

// Allocations lists the initial balances ordered by holder address.
func (s *GenesisSpec) Allocations() []Allocation {
	out := make([]Allocation, len(s.allocations))
	for i, a := range s.allocations {
		out[i] = Allocation{Holder: a.Holder, Amount: a.Amount.Clone()}
	}
	return out
}

// RegistryParams returns the registry configuration.
func (s *GenesisSpec) RegistryParams() registry.InitParams {
	params := s.registryParams
	if params.DeploymentFee != nil {
		params.DeploymentFee = params.DeploymentFee.Clone()
	}
	return params
}

// VenueAddresses returns the venue's factory and position manager.
func (s *GenesisSpec) VenueAddresses() (factory, manager common.Address) {
	return s.Venue.factory, s.Venue.manager
}

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	if err := s.BaseAsset.validate(); err != nil {
		return fmt.Errorf("baseAsset: %w", err)
	}

	factory, err := parseAddress(s.Venue.Factory)
	if err != nil {
		return fmt.Errorf("venue.factory: %w", err)
	}
	manager, err := parseAddress(s.Venue.PositionManager)
	if err != nil {
		return fmt.Errorf("venue.positionManager: %w", err)
	}
	if factory == manager {
		return fmt.Errorf("venue: factory and positionManager must differ")
	}
	s.Venue.factory, s.Venue.manager = factory, manager

	params, err := s.Registry.params()
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	params.BaseAsset = s.BaseAsset.address
	s.registryParams = params

	holders := make([]string, 0, len(s.Alloc))
	for holder := range s.Alloc {
		holders = append(holders, holder)
	}
	sort.Strings(holders)
	allocations := make([]Allocation, 0, len(holders))
	seen := make(map[common.Address]struct{}, len(holders))
	for _, holder := range holders {
		addr, err := parseAddress(holder)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", holder, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("alloc[%q]: duplicate holder", holder)
		}
		seen[addr] = struct{}{}
		amount, err := parseAmountString(s.Alloc[holder])
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", holder, err)
		}
		allocations = append(allocations, Allocation{Holder: addr, Amount: amount})
	}
	sort.Slice(allocations, func(i, j int) bool {
		return bytes.Compare(allocations[i].Holder.Bytes(), allocations[j].Holder.Bytes()) < 0
	})
	s.allocations = allocations
	return nil
}

func (b *BaseAssetSpec) validate() error {
	addr, err := parseAddress(b.Address)
	if err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("name must be provided")
	}
	if strings.TrimSpace(b.Symbol) == "" {
		return fmt.Errorf("symbol must be provided")
	}
	b.address = addr
	return nil
}

func (r *RegistrySpec) params() (registry.InitParams, error) {
	var params registry.InitParams
	addr, err := parseAddress(r.Address)
	if err != nil {
		return params, fmt.Errorf("address: %w", err)
	}
	owner, err := parseAddress(r.Owner)
	if err != nil {
		return params, fmt.Errorf("owner: %w", err)
	}
	fee := new(uint256.Int)
	if strings.TrimSpace(r.DeploymentFee) != "" {
		if fee, err = parseAmountString(r.DeploymentFee); err != nil {
			return params, fmt.Errorf("deploymentFee: %w", err)
		}
	}
	var lock time.Duration
	if strings.TrimSpace(r.VaultLockDuration) != "" {
		lock, err = time.ParseDuration(strings.TrimSpace(r.VaultLockDuration))
		if err != nil {
			return params, fmt.Errorf("vaultLockDuration: %w", err)
		}
		if lock < time.Second {
			return params, fmt.Errorf("vaultLockDuration must be at least 1s")
		}
	}
	var impls registry.Implementations
	for rawKind, rawAddr := range r.Implementations {
		kind, err := registry.ParseKind(rawKind)
		if err != nil {
			return params, fmt.Errorf("implementations: %w", err)
		}
		implAddr, err := parseAddress(rawAddr)
		if err != nil {
			return params, fmt.Errorf("implementations[%s]: %w", kind, err)
		}
		switch kind {
		case registry.KindFactory:
			impls.Factory = implAddr
		case registry.KindVault:
			impls.Vault = implAddr
		case registry.KindCurve:
			impls.Curve = implAddr
		case registry.KindToken:
			impls.Token = implAddr
		}
	}
	params = registry.InitParams{
		Address:           addr,
		Owner:             owner,
		Implementations:   impls,
		DeploymentFee:     fee,
		VaultLockDuration: lock,
	}
	return params, nil
}

func parseAddress(value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	addr := common.HexToAddress(trimmed)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address")
	}
	return addr, nil
}

func parseAmountString(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must be provided")
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
