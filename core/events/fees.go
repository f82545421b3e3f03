package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"curvefoundry/core/types"
)

const (
	// TypeDeploymentFeeUpdated marks a change to a deployer's fee.
	TypeDeploymentFeeUpdated = "fees.deployment.updated"
	// TypeFeesWithdrawn marks a sweep of a deployer's accumulated fees.
	TypeFeesWithdrawn = "fees.withdrawn"
	// TypeFeeRefunded marks excess attached value returned to a caller.
	TypeFeeRefunded = "fees.refunded"
)

// DeploymentFeeUpdated records the old and new fee of a factory or registry.
type DeploymentFeeUpdated struct {
	Deployer common.Address
	Old      *uint256.Int
	New      *uint256.Int
}

// EventType satisfies the events.Event interface.
func (DeploymentFeeUpdated) EventType() string { return TypeDeploymentFeeUpdated }

// Event converts the structured payload into a broadcastable event.
func (e DeploymentFeeUpdated) Event() *types.Event {
	return &types.Event{Type: TypeDeploymentFeeUpdated, Attributes: map[string]string{
		"deployer": formatAddress(e.Deployer),
		"old":      formatAmount(e.Old),
		"new":      formatAmount(e.New),
	}}
}

// FeesWithdrawn records fees swept to a recipient.
type FeesWithdrawn struct {
	Deployer  common.Address
	Recipient common.Address
	Amount    *uint256.Int
}

// EventType satisfies the events.Event interface.
func (FeesWithdrawn) EventType() string { return TypeFeesWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e FeesWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeFeesWithdrawn, Attributes: map[string]string{
		"deployer":  formatAddress(e.Deployer),
		"recipient": formatAddress(e.Recipient),
		"amount":    formatAmount(e.Amount),
	}}
}

// FeeRefunded records the part of an attached fee returned to the payer.
type FeeRefunded struct {
	Deployer common.Address
	Payer    common.Address
	Amount   *uint256.Int
}

// EventType satisfies the events.Event interface.
func (FeeRefunded) EventType() string { return TypeFeeRefunded }

// Event converts the structured payload into a broadcastable event.
func (e FeeRefunded) Event() *types.Event {
	return &types.Event{Type: TypeFeeRefunded, Attributes: map[string]string{
		"deployer": formatAddress(e.Deployer),
		"payer":    formatAddress(e.Payer),
		"amount":   formatAmount(e.Amount),
	}}
}
