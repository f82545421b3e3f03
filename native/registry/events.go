package registry

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"curvefoundry/core/events"
	"curvefoundry/core/types"
)

const (
	// EventTypeSystemDeployed is emitted when a factory and vault pair is deployed.
	EventTypeSystemDeployed = "registry.system.deployed"
	// EventTypeImplementationUpdated is emitted when a template is swapped.
	EventTypeImplementationUpdated = "registry.implementation.updated"
	// EventTypePauseChanged is emitted when deployments are paused or resumed.
	EventTypePauseChanged = "registry.pause.changed"
	// EventTypeOwnershipTransferred is emitted when the registry changes hands.
	EventTypeOwnershipTransferred = "registry.ownership.transferred"
)

func SystemDeployedEvent(sys *System) *types.Event {
	return &types.Event{
		Type: EventTypeSystemDeployed,
		Attributes: map[string]string{
			"factory":       events.FormatAddress(sys.Factory),
			"vault":         events.FormatAddress(sys.Vault),
			"administrator": events.FormatAddress(sys.Administrator),
		},
	}
}

func ImplementationUpdatedEvent(kind Kind, old, updated common.Address) *types.Event {
	return &types.Event{
		Type: EventTypeImplementationUpdated,
		Attributes: map[string]string{
			"kind": string(kind),
			"old":  events.FormatAddress(old),
			"new":  events.FormatAddress(updated),
		},
	}
}

func PauseChangedEvent(paused bool, by common.Address) *types.Event {
	return &types.Event{
		Type: EventTypePauseChanged,
		Attributes: map[string]string{
			"paused": strconv.FormatBool(paused),
			"by":     events.FormatAddress(by),
		},
	}
}

func OwnershipTransferredEvent(previous, next common.Address) *types.Event {
	return &types.Event{
		Type: EventTypeOwnershipTransferred,
		Attributes: map[string]string{
			"previous": events.FormatAddress(previous),
			"new":      events.FormatAddress(next),
		},
	}
}
