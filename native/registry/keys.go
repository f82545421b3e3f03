package registry

import "github.com/ethereum/go-ethereum/common"

var (
	registryKey    = []byte("registry/record")
	instancePrefix = []byte("registry/instance/")
	systemPrefix   = []byte("registry/system/")
	systemListKey  = []byte("registry/systems")
)

func instanceKey(addr common.Address) []byte {
	return append(append([]byte(nil), instancePrefix...), addr.Bytes()...)
}

func systemKey(factory common.Address) []byte {
	return append(append([]byte(nil), systemPrefix...), factory.Bytes()...)
}
