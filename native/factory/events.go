package factory

import (
	"strconv"

	"curvefoundry/core/events"
	"curvefoundry/core/types"
)

const (
	// EventTypeInstanceDeployed is emitted for every asset and curve pair.
	EventTypeInstanceDeployed = "factory.instance.deployed"
	// EventTypeSettingsUpdated is emitted when the factory owner rewrites settings.
	EventTypeSettingsUpdated = "factory.settings.updated"
)

// InstanceDeployedEvent describes a freshly deployed pair.
func InstanceDeployedEvent(inst *Instance) *types.Event {
	return &types.Event{
		Type: EventTypeInstanceDeployed,
		Attributes: map[string]string{
			"factory": events.FormatAddress(inst.Factory),
			"token":   events.FormatAddress(inst.Token),
			"curve":   events.FormatAddress(inst.Curve),
			"creator": events.FormatAddress(inst.Creator),
			"name":    inst.Name,
			"symbol":  inst.Symbol,
		},
	}
}

// SettingsUpdatedEvent describes the settings now applied to new curves.
func SettingsUpdatedEvent(f *Factory) *types.Event {
	s := f.Settings
	return &types.Event{
		Type: EventTypeSettingsUpdated,
		Attributes: map[string]string{
			"factory":          events.FormatAddress(f.Address),
			"virtualBase":      events.FormatAmount(s.VirtualBase),
			"preBondingTarget": events.FormatAmount(s.PreBondingTarget),
			"bondingTarget":    events.FormatAmount(s.BondingTarget),
			"minContribution":  events.FormatAmount(s.MinContribution),
			"poolFeeTier":      strconv.FormatUint(uint64(s.PoolFeeTier), 10),
			"sellFeeBps":       strconv.FormatUint(uint64(s.SellFeeBps), 10),
		},
	}
}
