package curve

import "github.com/ethereum/go-ethereum/common"

var (
	curvePrefix       = []byte("curve/record/")
	participantPrefix = []byte("curve/participant/")
)

func curveKey(addr common.Address) []byte {
	return append(append([]byte(nil), curvePrefix...), addr.Bytes()...)
}

func participantKey(curve, user common.Address) []byte {
	key := append(append([]byte(nil), participantPrefix...), curve.Bytes()...)
	return append(key, user.Bytes()...)
}
