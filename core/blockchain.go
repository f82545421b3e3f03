package core

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"curvefoundry/core/types"
	"curvefoundry/storage"
)

var (
	chainHeadKey    = []byte("chain/head")
	chainHeaderKey  = []byte("chain/header/")
	chainHeightKey  = []byte("chain/height/")
	chainTxsKey     = []byte("chain/txs/")
	chainReceiptKey = []byte("chain/receipt/")
)

func prefixed(prefix []byte, suffix []byte) []byte {
	return append(append([]byte(nil), prefix...), suffix...)
}

func heightKey(height uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return prefixed(chainHeightKey, buf[:])
}

// Blockchain persists sealed headers, their transactions and receipts in the
// raw key space of the database. State lives in the trie.
type Blockchain struct {
	db   storage.Database
	head *types.BlockHeader
	tip  common.Hash
	mu   sync.RWMutex
}

// OpenBlockchain loads the chain head if one was persisted. A nil head means
// the database has no genesis yet.
func OpenBlockchain(db storage.Database) (*Blockchain, error) {
	bc := &Blockchain{db: db}
	ok, err := db.Has(chainHeadKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return bc, nil
	}
	raw, err := db.Get(chainHeadKey)
	if err != nil {
		return nil, fmt.Errorf("load chain head: %w", err)
	}
	tip := common.BytesToHash(raw)
	header, err := bc.HeaderByHash(tip)
	if err != nil {
		return nil, err
	}
	bc.head = header
	bc.tip = tip
	return bc, nil
}

// AddBlock validates linkage and persists the block with its receipts.
func (bc *Blockchain) AddBlock(b *types.Block, receipts []*types.Receipt) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.head != nil {
		if b.Header.PrevHash != bc.tip {
			return fmt.Errorf("block prevhash mismatch")
		}
		if b.Header.Height != bc.head.Height+1 {
			return fmt.Errorf("block height %d does not extend %d", b.Header.Height, bc.head.Height)
		}
	} else if b.Header.Height != 0 {
		return fmt.Errorf("first block must be genesis")
	}

	hash, err := b.Header.Hash()
	if err != nil {
		return err
	}
	headerBytes, err := rlp.EncodeToBytes(b.Header)
	if err != nil {
		return err
	}
	txBytes, err := rlp.EncodeToBytes(b.Transactions)
	if err != nil {
		return err
	}
	for _, receipt := range receipts {
		encoded, err := json.Marshal(receipt)
		if err != nil {
			return err
		}
		if err := bc.db.Put(prefixed(chainReceiptKey, receipt.TxHash.Bytes()), encoded); err != nil {
			return err
		}
	}
	if err := bc.db.Put(prefixed(chainHeaderKey, hash.Bytes()), headerBytes); err != nil {
		return err
	}
	if err := bc.db.Put(prefixed(chainTxsKey, hash.Bytes()), txBytes); err != nil {
		return err
	}
	if err := bc.db.Put(heightKey(b.Header.Height), hash.Bytes()); err != nil {
		return err
	}
	if err := bc.db.Put(chainHeadKey, hash.Bytes()); err != nil {
		return err
	}
	bc.head = b.Header
	bc.tip = hash
	return nil
}

// HeaderByHash retrieves a header from the database by its hash.
func (bc *Blockchain) HeaderByHash(hash common.Hash) (*types.BlockHeader, error) {
	raw, err := bc.db.Get(prefixed(chainHeaderKey, hash.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("header %s not found", hash.Hex())
	}
	var header types.BlockHeader
	if err := rlp.DecodeBytes(raw, &header); err != nil {
		return nil, err
	}
	return &header, nil
}

// GetBlockByHeight retrieves a block by its height.
func (bc *Blockchain) GetBlockByHeight(height uint64) (*types.Block, error) {
	raw, err := bc.db.Get(heightKey(height))
	if err != nil {
		return nil, fmt.Errorf("block at height %d not found", height)
	}
	hash := common.BytesToHash(raw)
	header, err := bc.HeaderByHash(hash)
	if err != nil {
		return nil, err
	}
	var txs []*types.Transaction
	if encoded, err := bc.db.Get(prefixed(chainTxsKey, hash.Bytes())); err == nil {
		if err := rlp.DecodeBytes(encoded, &txs); err != nil {
			return nil, err
		}
	}
	return types.NewBlock(header, txs), nil
}

// Receipt returns the persisted receipt of a sealed transaction.
func (bc *Blockchain) Receipt(txHash common.Hash) (*types.Receipt, error) {
	raw, err := bc.db.Get(prefixed(chainReceiptKey, txHash.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("receipt %s not found", txHash.Hex())
	}
	var receipt types.Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Head returns the latest sealed header, or nil before genesis.
func (bc *Blockchain) Head() *types.BlockHeader {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if bc.head == nil {
		return nil
	}
	header := *bc.head
	return &header
}

func (bc *Blockchain) Tip() common.Hash {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.tip
}
