package genesis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"curvefoundry/native/vault"
)

var operator = common.HexToAddress("0x0e00000000000000000000000000000000000001")

func TestDefaultGenesisSpec(t *testing.T) {
	spec := DefaultGenesisSpec(operator)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), spec.GenesisTimestamp().UTC())

	allocs := spec.Allocations()
	require.Len(t, allocs, 1)
	require.Equal(t, operator, allocs[0].Holder)
	require.Equal(t, "1000000000000000000000000", allocs[0].Amount.Dec())

	params := spec.RegistryParams()
	require.Equal(t, operator, params.Owner)
	require.Equal(t, spec.BaseAssetAddress(), params.BaseAsset)
	require.Equal(t, vault.DefaultLockDuration, params.VaultLockDuration)
	require.NotEqual(t, common.Address{}, params.Implementations.Curve)

	factory, manager := spec.VenueAddresses()
	require.NotEqual(t, factory, manager)
}

func TestLoadGenesisSpecFromFile(t *testing.T) {
	spec := DefaultGenesisSpec(operator)
	spec.Alloc["0x0000000000000000000000000000000000000abc"] = "5"
	raw, err := json.Marshal(spec)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	loaded, err := LoadGenesisSpec(path)
	require.NoError(t, err)
	allocs := loaded.Allocations()
	require.Len(t, allocs, 2)
	require.Equal(t, common.HexToAddress("0x0000000000000000000000000000000000000abc"), allocs[0].Holder)
	require.Equal(t, uint64(5), allocs[0].Amount.Uint64())
}

func TestGenesisSpecRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]func(s *GenesisSpec){
		"missing time":     func(s *GenesisSpec) { s.GenesisTime = "" },
		"bad base asset":   func(s *GenesisSpec) { s.BaseAsset.Address = "nope" },
		"zero owner":       func(s *GenesisSpec) { s.Registry.Owner = common.Address{}.Hex() },
		"bad fee":          func(s *GenesisSpec) { s.Registry.DeploymentFee = "-1" },
		"short lock":       func(s *GenesisSpec) { s.Registry.VaultLockDuration = "10ms" },
		"unknown kind":     func(s *GenesisSpec) { s.Registry.Implementations["router"] = operator.Hex() },
		"shared venue":     func(s *GenesisSpec) { s.Venue.PositionManager = s.Venue.Factory },
		"bad alloc amount": func(s *GenesisSpec) { s.Alloc[operator.Hex()] = "lots" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := DefaultGenesisSpec(operator)
			mutate(spec)
			raw, err := json.Marshal(spec)
			require.NoError(t, err)
			_, err = ParseGenesisSpec(raw)
			require.Error(t, err)
		})
	}

	_, err := ParseGenesisSpec([]byte(`{"genesisTime":"2026-01-01T00:00:00Z","extra":1}`))
	require.Error(t, err)
	_, err = LoadGenesisSpec("")
	require.Error(t, err)
}
