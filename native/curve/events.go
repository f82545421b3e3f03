package curve

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/core/events"
	"curvefoundry/core/types"
)

const (
	// EventTypeCurveCreated is emitted when a factory stamps out a curve.
	EventTypeCurveCreated = "curve.created"
	// EventTypePreBondingContribution is emitted for every accepted pre-bonding contribution.
	EventTypePreBondingContribution = "curve.prebonding.contribution"
	// EventTypePhaseChanged is emitted whenever a curve advances phase.
	EventTypePhaseChanged = "curve.phase.changed"
	// EventTypeTokensPurchased is emitted when a buyer acquires issued tokens.
	EventTypeTokensPurchased = "curve.tokens.purchased"
	// EventTypeTokensSold is emitted when a seller returns issued tokens.
	EventTypeTokensSold = "curve.tokens.sold"
	// EventTypeCurveFinalized is emitted once reserves migrate to the venue.
	EventTypeCurveFinalized = "curve.finalized"
	// EventTypeAllocationWithdrawn is emitted when a pre-bonding allocation is claimed.
	EventTypeAllocationWithdrawn = "curve.allocation.withdrawn"
)

func fmtAddr(a common.Address) string { return events.FormatAddress(a) }

func fmtAmount(v *uint256.Int) string { return events.FormatAmount(v) }

// CurveCreatedEvent announces a new curve and its opening reserves.
func CurveCreatedEvent(c *Curve) *types.Event {
	return &types.Event{
		Type: EventTypeCurveCreated,
		Attributes: map[string]string{
			"curve":         fmtAddr(c.Address),
			"token":         fmtAddr(c.Token),
			"factory":       fmtAddr(c.Factory),
			"admin":         fmtAddr(c.Admin),
			"baseReserve":   fmtAmount(c.BaseReserve),
			"issuedReserve": fmtAmount(c.IssuedReserve),
		},
	}
}

// PreBondingContributionEvent records a contribution and the allocation it earned.
func PreBondingContributionEvent(curve, user common.Address, baseIn, issuedOut *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypePreBondingContribution,
		Attributes: map[string]string{
			"curve":     fmtAddr(curve),
			"user":      fmtAddr(user),
			"baseIn":    fmtAmount(baseIn),
			"issuedOut": fmtAmount(issuedOut),
		},
	}
}

// PhaseChangedEvent records a phase transition.
func PhaseChangedEvent(curve common.Address, from, to Phase) *types.Event {
	return &types.Event{
		Type: EventTypePhaseChanged,
		Attributes: map[string]string{
			"curve": fmtAddr(curve),
			"from":  from.String(),
			"to":    to.String(),
		},
	}
}

// TokensPurchasedEvent records a buy.
func TokensPurchasedEvent(curve, user common.Address, baseIn, issuedOut *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTokensPurchased,
		Attributes: map[string]string{
			"curve":     fmtAddr(curve),
			"user":      fmtAddr(user),
			"baseIn":    fmtAmount(baseIn),
			"issuedOut": fmtAmount(issuedOut),
		},
	}
}

// TokensSoldEvent records a sell and the fee withheld from it.
func TokensSoldEvent(curve, user common.Address, issuedIn, baseOut, fee *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTokensSold,
		Attributes: map[string]string{
			"curve":    fmtAddr(curve),
			"user":     fmtAddr(user),
			"issuedIn": fmtAmount(issuedIn),
			"baseOut":  fmtAmount(baseOut),
			"fee":      fmtAmount(fee),
		},
	}
}

// CurveFinalizedEvent records the venue pool and the locked position.
func CurveFinalizedEvent(curve, poolAddr common.Address, positionID uint64) *types.Event {
	return &types.Event{
		Type: EventTypeCurveFinalized,
		Attributes: map[string]string{
			"curve":      fmtAddr(curve),
			"pool":       fmtAddr(poolAddr),
			"positionId": strconv.FormatUint(positionID, 10),
		},
	}
}

// AllocationWithdrawnEvent records a claimed pre-bonding allocation.
func AllocationWithdrawnEvent(curve, user, recipient common.Address, issued *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeAllocationWithdrawn,
		Attributes: map[string]string{
			"curve":     fmtAddr(curve),
			"user":      fmtAddr(user),
			"recipient": fmtAddr(recipient),
			"amount":    fmtAmount(issued),
		},
	}
}
