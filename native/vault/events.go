package vault

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/core/events"
	"curvefoundry/core/types"
)

const (
	// EventTypePositionLocked is emitted when a position enters custody.
	EventTypePositionLocked = "vault.position.locked"
	// EventTypePositionUnlocked is emitted when a position leaves custody.
	EventTypePositionUnlocked = "vault.position.unlocked"
	// EventTypeFeesClaimed is emitted when position fees are forwarded to the owner.
	EventTypeFeesClaimed = "vault.fees.claimed"
)

func PositionLockedEvent(vault, owner common.Address, positionID uint64, unlockAt uint64) *types.Event {
	return &types.Event{
		Type: EventTypePositionLocked,
		Attributes: map[string]string{
			"vault":      events.FormatAddress(vault),
			"owner":      events.FormatAddress(owner),
			"positionId": strconv.FormatUint(positionID, 10),
			"unlockAt":   strconv.FormatUint(unlockAt, 10),
		},
	}
}

func PositionUnlockedEvent(vault, owner common.Address, positionID uint64, recipient common.Address) *types.Event {
	return &types.Event{
		Type: EventTypePositionUnlocked,
		Attributes: map[string]string{
			"vault":      events.FormatAddress(vault),
			"owner":      events.FormatAddress(owner),
			"positionId": strconv.FormatUint(positionID, 10),
			"recipient":  events.FormatAddress(recipient),
		},
	}
}

func FeesClaimedEvent(vault, owner common.Address, positionID uint64, amount0, amount1 *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFeesClaimed,
		Attributes: map[string]string{
			"vault":      events.FormatAddress(vault),
			"owner":      events.FormatAddress(owner),
			"positionId": strconv.FormatUint(positionID, 10),
			"amount0":    events.FormatAmount(amount0),
			"amount1":    events.FormatAmount(amount1),
		},
	}
}
