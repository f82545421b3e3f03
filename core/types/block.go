package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// BlockHeader commits to the state produced by a batch of transactions.
type BlockHeader struct {
	Height    uint64      `json:"height"`
	Timestamp uint64      `json:"timestamp"`
	PrevHash  common.Hash `json:"prevHash"`
	StateRoot common.Hash `json:"stateRoot"`
	TxRoot    common.Hash `json:"txRoot"`
	TxCount   uint64      `json:"txCount"`
}

// Block represents a sealed batch of transactions.
type Block struct {
	Header       *BlockHeader
	Transactions []*Transaction
}

// NewBlock creates a new block from a header and a set of transactions.
func NewBlock(header *BlockHeader, txs []*Transaction) *Block {
	return &Block{
		Header:       header,
		Transactions: txs,
	}
}

// Hash is the keccak256 of the RLP encoded header and identifies the block.
func (h *BlockHeader) Hash() (common.Hash, error) {
	encoded, err := rlp.EncodeToBytes(h)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}
