package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Accounts only carry a nonce; balances live in the asset ledger.

func accountStateKey(addr common.Address) []byte {
	return ethcrypto.Keccak256(addr.Bytes())
}

func emptyStateAccount() *gethtypes.StateAccount {
	return &gethtypes.StateAccount{
		Balance:  new(uint256.Int),
		Root:     gethtypes.EmptyRootHash,
		CodeHash: gethtypes.EmptyCodeHash.Bytes(),
	}
}

func (m *Manager) loadStateAccount(addr common.Address) (*gethtypes.StateAccount, error) {
	data, err := m.trie.Get(accountStateKey(addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return emptyStateAccount(), nil
	}
	stateAcc := new(gethtypes.StateAccount)
	if err := rlp.DecodeBytes(data, stateAcc); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", addr.Hex(), err)
	}
	return stateAcc, nil
}

func (m *Manager) writeStateAccount(addr common.Address, stateAcc *gethtypes.StateAccount) error {
	encoded, err := rlp.EncodeToBytes(stateAcc)
	if err != nil {
		return err
	}
	return m.trie.Update(accountStateKey(addr), encoded)
}

// Nonce returns the next nonce expected from addr.
func (m *Manager) Nonce(addr common.Address) (uint64, error) {
	acc, err := m.loadStateAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// IncrementNonce consumes the current nonce of addr.
func (m *Manager) IncrementNonce(addr common.Address) error {
	acc, err := m.loadStateAccount(addr)
	if err != nil {
		return err
	}
	acc.Nonce++
	return m.writeStateAccount(addr, acc)
}
