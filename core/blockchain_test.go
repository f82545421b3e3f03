package core

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"curvefoundry/core/types"
	"curvefoundry/storage"
)

func TestBlockchainLinksHeaders(t *testing.T) {
	db := storage.NewMemDB()
	chain, err := OpenBlockchain(db)
	require.NoError(t, err)
	require.Nil(t, chain.Head())

	orphan := types.NewBlock(&types.BlockHeader{Height: 3}, nil)
	require.Error(t, chain.AddBlock(orphan, nil))

	genesisBlock := types.NewBlock(&types.BlockHeader{Height: 0, Timestamp: 100}, nil)
	require.NoError(t, chain.AddBlock(genesisBlock, nil))
	genesisHash, err := genesisBlock.Header.Hash()
	require.NoError(t, err)
	require.Equal(t, genesisHash, chain.Tip())

	unlinked := types.NewBlock(&types.BlockHeader{Height: 1, PrevHash: common.HexToHash("0x01")}, nil)
	require.Error(t, chain.AddBlock(unlinked, nil))
	skipped := types.NewBlock(&types.BlockHeader{Height: 2, PrevHash: genesisHash}, nil)
	require.Error(t, chain.AddBlock(skipped, nil))

	owner := newAccount(t)
	tx := &types.Transaction{Type: types.TxTypeTransfer, To: owner.addr}
	require.NoError(t, tx.Sign(owner.key))
	txHash, err := tx.Hash()
	require.NoError(t, err)
	txRoot, err := ComputeTxRoot([]*types.Transaction{tx})
	require.NoError(t, err)
	require.NotEqual(t, gethtypes.EmptyRootHash, txRoot)

	next := types.NewBlock(&types.BlockHeader{Height: 1, Timestamp: 200, PrevHash: genesisHash, TxRoot: txRoot, TxCount: 1}, []*types.Transaction{tx})
	receipt := &types.Receipt{TxHash: txHash, Type: tx.Type.String(), From: owner.addr, Status: types.ReceiptStatusSuccess, Height: 1}
	require.NoError(t, chain.AddBlock(next, []*types.Receipt{receipt}))

	reopened, err := OpenBlockchain(db)
	require.NoError(t, err)
	require.Equal(t, uint64(1), reopened.Head().Height)
	require.Equal(t, chain.Tip(), reopened.Tip())

	block, err := reopened.GetBlockByHeight(1)
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1)
	from, err := block.Transactions[0].From()
	require.NoError(t, err)
	require.Equal(t, owner.addr, from)

	stored, err := reopened.Receipt(txHash)
	require.NoError(t, err)
	require.Equal(t, receipt.Type, stored.Type)
	require.True(t, stored.Succeeded())

	_, err = reopened.GetBlockByHeight(7)
	require.Error(t, err)
	_, err = reopened.Receipt(common.HexToHash("0xdead"))
	require.Error(t, err)
}

func TestComputeTxRootEmpty(t *testing.T) {
	root, err := ComputeTxRoot(nil)
	require.NoError(t, err)
	require.Equal(t, gethtypes.EmptyRootHash, root)
}
