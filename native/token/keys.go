package token

import "github.com/ethereum/go-ethereum/common"

var (
	assetPrefix   = []byte("token/asset/")
	balancePrefix = []byte("token/balance/")
)

func assetKey(addr common.Address) []byte {
	buf := make([]byte, len(assetPrefix)+common.AddressLength)
	copy(buf, assetPrefix)
	copy(buf[len(assetPrefix):], addr[:])
	return buf
}

func balanceKey(asset, holder common.Address) []byte {
	buf := make([]byte, len(balancePrefix)+2*common.AddressLength)
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], asset[:])
	copy(buf[len(balancePrefix)+common.AddressLength:], holder[:])
	return buf
}
