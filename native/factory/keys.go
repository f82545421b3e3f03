package factory

import "github.com/ethereum/go-ethereum/common"

var (
	factoryPrefix       = []byte("factory/record/")
	instancePrefix      = []byte("factory/instance/")
	instanceListPrefix  = []byte("factory/instances/")
	curveForTokenPrefix = []byte("factory/curve-for-token/")
	tokenForCurvePrefix = []byte("factory/token-for-curve/")
)

func pairKey(prefix []byte, a, b common.Address) []byte {
	key := append(append([]byte(nil), prefix...), a.Bytes()...)
	return append(key, b.Bytes()...)
}

func factoryKey(addr common.Address) []byte {
	return append(append([]byte(nil), factoryPrefix...), addr.Bytes()...)
}

func instanceKey(factory, addr common.Address) []byte {
	return pairKey(instancePrefix, factory, addr)
}

func instanceListKey(factory common.Address) []byte {
	return append(append([]byte(nil), instanceListPrefix...), factory.Bytes()...)
}

func curveForTokenKey(factory, token common.Address) []byte {
	return pairKey(curveForTokenPrefix, factory, token)
}

func tokenForCurveKey(factory, curve common.Address) []byte {
	return pairKey(tokenForCurvePrefix, factory, curve)
}
