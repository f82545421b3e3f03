package vault

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

var (
	vaultPrefix    = []byte("vault/record/")
	positionPrefix = []byte("vault/position/")
	ownerPrefix    = []byte("vault/owner/")
)

func vaultKey(addr common.Address) []byte {
	return append(append([]byte(nil), vaultPrefix...), addr.Bytes()...)
}

func positionKey(vault common.Address, id uint64) []byte {
	key := append(append([]byte(nil), positionPrefix...), vault.Bytes()...)
	return binary.BigEndian.AppendUint64(key, id)
}

func ownerIndexKey(vault, owner common.Address) []byte {
	key := append(append([]byte(nil), ownerPrefix...), vault.Bytes()...)
	return append(key, owner.Bytes()...)
}

func encodeID(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

func decodeID(raw []byte) (uint64, bool) {
	if len(raw) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(raw), true
}
