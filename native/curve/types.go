package curve

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/native/pool"
)

// Phase is the lifecycle stage of a curve. Phases only move forward.
type Phase uint8

const (
	PhasePreBonding Phase = iota
	PhaseBonding
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhasePreBonding:
		return "pre_bonding"
	case PhaseBonding:
		return "bonding"
	case PhaseFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// MaxSellFeeBps caps the sell fee at 10%.
const MaxSellFeeBps = 1_000

const (
	bpsDenominator        = 10_000
	preBondingNumerator   = 20
	preBondingDenominator = 100
)

// Settings is the parameter set shared by every curve a factory deploys.
// Each curve stores its own copy taken at creation time.
type Settings struct {
	VirtualBase      *uint256.Int
	PreBondingTarget *uint256.Int
	BondingTarget    *uint256.Int
	MinContribution  *uint256.Int
	PoolFeeTier      uint32
	SellFeeBps       uint32
	PoolFactory      common.Address
	PositionManager  common.Address
	BaseAsset        common.Address
	FeeRecipient     common.Address
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	clone := s
	clone.VirtualBase = cloneAmount(s.VirtualBase)
	clone.PreBondingTarget = cloneAmount(s.PreBondingTarget)
	clone.BondingTarget = cloneAmount(s.BondingTarget)
	clone.MinContribution = cloneAmount(s.MinContribution)
	return clone
}

// Normalize fills nil amounts and derives PreBondingTarget from VirtualBase.
// Whatever value was supplied for PreBondingTarget is discarded.
func (s Settings) Normalize() (Settings, error) {
	out := s.Clone()
	target, overflow := new(uint256.Int).MulDivOverflow(out.VirtualBase, uint256.NewInt(preBondingNumerator), uint256.NewInt(preBondingDenominator))
	if overflow {
		return Settings{}, ErrMathOverflow
	}
	out.PreBondingTarget = target
	return out, nil
}

// Validate checks the invariants every stored settings record must satisfy.
func (s Settings) Validate() error {
	if s.VirtualBase == nil || s.VirtualBase.IsZero() {
		return fmt.Errorf("%w: virtual base must be positive", ErrInvalidSettings)
	}
	if s.PreBondingTarget == nil || s.PreBondingTarget.IsZero() {
		return fmt.Errorf("%w: virtual base too small for a pre-bonding target", ErrInvalidSettings)
	}
	if s.MinContribution != nil && s.MinContribution.Gt(s.PreBondingTarget) {
		return fmt.Errorf("%w: minimum contribution above pre-bonding target", ErrInvalidSettings)
	}
	if s.BondingTarget == nil || !s.BondingTarget.Gt(s.PreBondingTarget) {
		return fmt.Errorf("%w: bonding target must exceed pre-bonding target", ErrInvalidSettings)
	}
	if s.SellFeeBps > MaxSellFeeBps {
		return fmt.Errorf("%w: sell fee %d bps above %d", ErrInvalidSettings, s.SellFeeBps, MaxSellFeeBps)
	}
	if _, ok := pool.TickSpacing(s.PoolFeeTier); !ok {
		return fmt.Errorf("%w: unsupported pool fee tier %d", ErrInvalidSettings, s.PoolFeeTier)
	}
	if s.BaseAsset == (common.Address{}) || s.PoolFactory == (common.Address{}) || s.PositionManager == (common.Address{}) {
		return ErrZeroAddress
	}
	return nil
}

// PrepareSettings normalizes then validates a settings write.
func PrepareSettings(s Settings) (Settings, error) {
	normalized, err := s.Normalize()
	if err != nil {
		return Settings{}, err
	}
	if err := normalized.Validate(); err != nil {
		return Settings{}, err
	}
	return normalized, nil
}

// Curve is the persisted state of one curve instance.
type Curve struct {
	Address        common.Address
	Token          common.Address
	Factory        common.Address
	Vault          common.Address
	Admin          common.Address
	Implementation common.Address
	Settings       Settings

	Phase       Phase
	IsFinalized bool

	BaseReserve                  *uint256.Int
	IssuedReserve                *uint256.Int
	TotalSupply                  *uint256.Int
	TotalPreBondingContributions *uint256.Int
	TotalBaseCollected           *uint256.Int
	TotalAllocated               *uint256.Int
	OutstandingAllocations       *uint256.Int
	TotalFeesCollected           *uint256.Int

	Pool        common.Address
	PositionID  uint64
	CreatedAt   uint64
	FinalizedAt uint64
}

func (c *Curve) ensureDefaults() {
	c.Settings = c.Settings.Clone()
	c.BaseReserve = cloneAmount(c.BaseReserve)
	c.IssuedReserve = cloneAmount(c.IssuedReserve)
	c.TotalSupply = cloneAmount(c.TotalSupply)
	c.TotalPreBondingContributions = cloneAmount(c.TotalPreBondingContributions)
	c.TotalBaseCollected = cloneAmount(c.TotalBaseCollected)
	c.TotalAllocated = cloneAmount(c.TotalAllocated)
	c.OutstandingAllocations = cloneAmount(c.OutstandingAllocations)
	c.TotalFeesCollected = cloneAmount(c.TotalFeesCollected)
}

// Clone returns a deep copy of the curve record.
func (c *Curve) Clone() *Curve {
	if c == nil {
		return nil
	}
	clone := *c
	clone.ensureDefaults()
	return &clone
}

// Participant is the pre-bonding ledger entry of one address on one curve.
type Participant struct {
	Contribution *uint256.Int
	Allocation   *uint256.Int
	Locked       bool
}

func (p *Participant) ensureDefaults() {
	p.Contribution = cloneAmount(p.Contribution)
	p.Allocation = cloneAmount(p.Allocation)
}

// CreateParams describes a curve to be created by a factory.
type CreateParams struct {
	Address        common.Address
	Token          common.Address
	Factory        common.Address
	Vault          common.Address
	Admin          common.Address
	Implementation common.Address
	Settings       Settings
	TotalSupply    *uint256.Int
}

// SellQuote is the settlement of a sell before it is applied.
type SellQuote struct {
	Gross *uint256.Int
	Fee   *uint256.Int
	Net   *uint256.Int
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
