package vault

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// DefaultLockDuration is the custody period applied when a vault is created
// without an explicit duration.
const DefaultLockDuration = 365 * 24 * time.Hour

// Vault is the configuration of one custody vault instance.
type Vault struct {
	Address         common.Address
	Registry        common.Address
	Implementation  common.Address
	PositionManager common.Address
	LockSeconds     uint64
	CreatedAt       uint64
}

// LockDuration returns the vault's custody period.
func (v *Vault) LockDuration() time.Duration {
	return time.Duration(v.LockSeconds) * time.Second
}

// LockedPosition records a venue position held in custody.
type LockedPosition struct {
	PositionID uint64
	Owner      common.Address
	LockedAt   uint64
	IsLocked   bool
}

// InitParams configures a freshly cloned vault.
type InitParams struct {
	Address         common.Address
	Implementation  common.Address
	PositionManager common.Address
	LockDuration    time.Duration
}

// FeeClaim holds the fees collected for a position in venue token order.
type FeeClaim struct {
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}
