package pool

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

var (
	poolPrefix      = []byte("pool/record/")
	poolIndexPrefix = []byte("pool/index/")
	positionPrefix  = []byte("pool/position/")
	positionSeqKey  = []byte("pool/position-seq")
)

func poolKey(addr common.Address) []byte {
	return append(append([]byte(nil), poolPrefix...), addr.Bytes()...)
}

func poolIndexKey(token0, token1 common.Address, fee uint32) []byte {
	key := append(append([]byte(nil), poolIndexPrefix...), token0.Bytes()...)
	key = append(key, token1.Bytes()...)
	return binary.BigEndian.AppendUint32(key, fee)
}

func positionKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), positionPrefix...), id)
}
