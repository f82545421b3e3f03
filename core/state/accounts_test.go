package state_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"curvefoundry/core/state/statetest"
)

func TestNonceStartsAtZeroAndIncrements(t *testing.T) {
	mgr := statetest.NewManager(t)
	alice := common.HexToAddress("0xa11ce")
	bob := common.HexToAddress("0xb0b")

	nonce, err := mgr.Nonce(alice)
	require.NoError(t, err)
	require.Zero(t, nonce)

	require.NoError(t, mgr.IncrementNonce(alice))
	require.NoError(t, mgr.IncrementNonce(alice))
	nonce, err = mgr.Nonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)

	nonce, err = mgr.Nonce(bob)
	require.NoError(t, err)
	require.Zero(t, nonce)
}
