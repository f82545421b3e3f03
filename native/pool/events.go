package pool

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/core/events"
	"curvefoundry/core/types"
)

const (
	// EventTypePoolCreated is emitted when the venue initialises a pool.
	EventTypePoolCreated = "pool.created"
	// EventTypePositionMinted is emitted when a position is opened.
	EventTypePositionMinted = "pool.position.minted"
	// EventTypePositionTransferred is emitted when a position changes owner.
	EventTypePositionTransferred = "pool.position.transferred"
	// EventTypeFeesAccrued is emitted when trading fees are credited to a position.
	EventTypeFeesAccrued = "pool.fees.accrued"
	// EventTypeFeesCollected is emitted when owed fees leave the pool.
	EventTypeFeesCollected = "pool.fees.collected"
)

// PoolCreatedEvent describes a freshly initialised pool.
func PoolCreatedEvent(p *Pool) *types.Event {
	return &types.Event{
		Type: EventTypePoolCreated,
		Attributes: map[string]string{
			"pool":         events.FormatAddress(p.Address),
			"token0":       events.FormatAddress(p.Token0),
			"token1":       events.FormatAddress(p.Token1),
			"fee":          strconv.FormatUint(uint64(p.Fee), 10),
			"sqrtPriceX96": events.FormatAmount(p.SqrtPriceX96),
		},
	}
}

// PositionMintedEvent describes a new position.
func PositionMintedEvent(pos *Position) *types.Event {
	return &types.Event{
		Type: EventTypePositionMinted,
		Attributes: map[string]string{
			"positionId": strconv.FormatUint(pos.ID, 10),
			"pool":       events.FormatAddress(pos.Pool),
			"owner":      events.FormatAddress(pos.Owner),
			"liquidity":  events.FormatAmount(pos.Liquidity),
			"amount0":    events.FormatAmount(pos.Amount0),
			"amount1":    events.FormatAmount(pos.Amount1),
		},
	}
}

// PositionTransferredEvent describes an ownership change.
func PositionTransferredEvent(id uint64, from, to common.Address) *types.Event {
	return &types.Event{
		Type: EventTypePositionTransferred,
		Attributes: map[string]string{
			"positionId": strconv.FormatUint(id, 10),
			"from":       events.FormatAddress(from),
			"to":         events.FormatAddress(to),
		},
	}
}

// FeesAccruedEvent describes fees credited to a position.
func FeesAccruedEvent(id uint64, amount0, amount1 *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFeesAccrued,
		Attributes: map[string]string{
			"positionId": strconv.FormatUint(id, 10),
			"amount0":    events.FormatAmount(amount0),
			"amount1":    events.FormatAmount(amount1),
		},
	}
}

// FeesCollectedEvent describes owed fees paid out of a position.
func FeesCollectedEvent(id uint64, recipient common.Address, amount0, amount1 *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFeesCollected,
		Attributes: map[string]string{
			"positionId": strconv.FormatUint(id, 10),
			"recipient":  events.FormatAddress(recipient),
			"amount0":    events.FormatAmount(amount0),
			"amount1":    events.FormatAmount(amount1),
		},
	}
}
