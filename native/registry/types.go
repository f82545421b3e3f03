package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Kind names a clonable implementation template.
type Kind string

const (
	KindFactory Kind = "factory"
	KindVault   Kind = "vault"
	KindCurve   Kind = "curve"
	KindToken   Kind = "token"
)

// Kinds lists every implementation kind the registry tracks.
var Kinds = []Kind{KindFactory, KindVault, KindCurve, KindToken}

// ParseKind validates an implementation kind.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Kinds {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// Implementations is the template catalog future clones are stamped from.
type Implementations struct {
	Factory common.Address
	Vault   common.Address
	Curve   common.Address
	Token   common.Address
}

func (i *Implementations) slot(kind Kind) *common.Address {
	switch kind {
	case KindFactory:
		return &i.Factory
	case KindVault:
		return &i.Vault
	case KindCurve:
		return &i.Curve
	case KindToken:
		return &i.Token
	default:
		return nil
	}
}

// Registry is the singleton deployment registry record.
type Registry struct {
	Address         common.Address
	Owner           common.Address
	BaseAsset       common.Address
	Implementations Implementations
	DeploymentFee   *uint256.Int
	FeeBalance      *uint256.Int
	VaultLockSecs   uint64
	Nonce           uint64
	Paused          bool
	CreatedAt       uint64
}

func (r *Registry) ensureDefaults() {
	if r.DeploymentFee == nil {
		r.DeploymentFee = new(uint256.Int)
	}
	if r.FeeBalance == nil {
		r.FeeBalance = new(uint256.Int)
	}
}

// VaultLockDuration is the lock period given to vaults deployed from now on.
func (r *Registry) VaultLockDuration() time.Duration {
	return time.Duration(r.VaultLockSecs) * time.Second
}

// InitParams configures the registry at genesis.
type InitParams struct {
	Address           common.Address
	Owner             common.Address
	BaseAsset         common.Address
	Implementations   Implementations
	DeploymentFee     *uint256.Int
	VaultLockDuration time.Duration
}

// System is a factory and vault pair deployed for one administrator.
type System struct {
	Factory       common.Address
	Vault         common.Address
	Administrator common.Address
	Deployer      common.Address
	CreatedAt     uint64
}
