package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSignRecoversSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := &Transaction{
		Type:  TxTypeBuy,
		Nonce: 3,
		To:    common.HexToAddress("0xc0ffee0000000000000000000000000000000001"),
		Value: uint256.NewInt(10),
		Data:  []byte{0x01},
	}
	_, err = tx.From()
	require.ErrorIs(t, err, ErrMissingSignature)

	require.NoError(t, tx.Sign(key))
	from, err := tx.From()
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), from)

	encoded, err := rlp.EncodeToBytes(tx)
	require.NoError(t, err)
	var decoded Transaction
	require.NoError(t, rlp.DecodeBytes(encoded, &decoded))
	again, err := decoded.From()
	require.NoError(t, err)
	require.Equal(t, from, again)

	var forged Transaction
	require.NoError(t, rlp.DecodeBytes(encoded, &forged))
	forged.Nonce = 4
	tampered, err := forged.From()
	require.NoError(t, err)
	require.NotEqual(t, from, tampered)
}

func TestTxTypeNames(t *testing.T) {
	require.Equal(t, "curve_finalize", TxTypeFinalize.String())
	parsed, ok := ParseTxType("registry_deploy_system")
	require.True(t, ok)
	require.Equal(t, TxTypeDeploySystem, parsed)
	_, ok = ParseTxType("mint")
	require.False(t, ok)
	require.Equal(t, "unknown", TxType(0xff).String())
}

func TestHeaderHashIsStable(t *testing.T) {
	h := &BlockHeader{Height: 1, Timestamp: 1_700_000_000, TxCount: 2}
	first, err := h.Hash()
	require.NoError(t, err)
	second, err := h.Hash()
	require.NoError(t, err)
	require.Equal(t, first, second)
	h.Height = 2
	third, err := h.Hash()
	require.NoError(t, err)
	require.NotEqual(t, first, third)
}
