package types

import "github.com/ethereum/go-ethereum/common"

const (
	ReceiptStatusFailed  uint8 = 0
	ReceiptStatusSuccess uint8 = 1
)

// Receipt records the outcome of an applied transaction. Failed transactions
// still consume their nonce but commit neither state nor events.
type Receipt struct {
	TxHash    common.Hash       `json:"txHash"`
	Type      string            `json:"type"`
	From      common.Address    `json:"from"`
	Nonce     uint64            `json:"nonce"`
	Status    uint8             `json:"status"`
	Error     string            `json:"error,omitempty"`
	ErrorKind string            `json:"errorKind,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	Events    []Event           `json:"events"`
	Height    uint64            `json:"height"`
}

// Succeeded reports whether the transaction committed.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == ReceiptStatusSuccess
}
