package factory

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/native/curve"
)

// Factory is the persisted record of one factory clone.
type Factory struct {
	Address             common.Address
	Owner               common.Address
	Registry            common.Address
	Vault               common.Address
	Implementation      common.Address
	TokenImplementation common.Address
	CurveImplementation common.Address
	Settings            curve.Settings
	DeploymentFee       *uint256.Int
	FeeBalance          *uint256.Int
	Nonce               uint64
	Instances           uint64
	CreatedAt           uint64
}

func (f *Factory) ensureDefaults() {
	f.Settings = f.Settings.Clone()
	if f.DeploymentFee == nil {
		f.DeploymentFee = new(uint256.Int)
	}
	if f.FeeBalance == nil {
		f.FeeBalance = new(uint256.Int)
	}
}

// Clone returns a deep copy of the factory record.
func (f *Factory) Clone() *Factory {
	if f == nil {
		return nil
	}
	clone := *f
	clone.Settings = f.Settings.Clone()
	clone.DeploymentFee = new(uint256.Int)
	clone.FeeBalance = new(uint256.Int)
	if f.DeploymentFee != nil {
		clone.DeploymentFee.Set(f.DeploymentFee)
	}
	if f.FeeBalance != nil {
		clone.FeeBalance.Set(f.FeeBalance)
	}
	return &clone
}

// InitParams configures a freshly cloned factory.
type InitParams struct {
	Address             common.Address
	Owner               common.Address
	Vault               common.Address
	Implementation      common.Address
	TokenImplementation common.Address
	CurveImplementation common.Address
	Settings            curve.Settings
	DeploymentFee       *uint256.Int
}

// Instance is an asset ledger and curve pair stamped out by a factory.
type Instance struct {
	Factory   common.Address
	Token     common.Address
	Curve     common.Address
	Creator   common.Address
	Name      string
	Symbol    string
	CreatedAt uint64
}
