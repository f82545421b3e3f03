package types

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeTransfer TxType = 0x01 // Asset ledger transfer

	TxTypeDeploySystem              TxType = 0x10
	TxTypeUpdateImplementation      TxType = 0x11
	TxTypePauseRegistry             TxType = 0x12
	TxTypeUnpauseRegistry           TxType = 0x13
	TxTypeUpdateRegistryFee         TxType = 0x14
	TxTypeWithdrawRegistryFees      TxType = 0x15
	TxTypeTransferRegistryOwnership TxType = 0x16

	TxTypeDeployInstance        TxType = 0x20
	TxTypeUpdateFactorySettings TxType = 0x21
	TxTypeUpdateFactoryFee      TxType = 0x22
	TxTypeWithdrawFactoryFees   TxType = 0x23

	TxTypeContribute         TxType = 0x30
	TxTypeBuy                TxType = 0x31
	TxTypeSell               TxType = 0x32
	TxTypeFinalize           TxType = 0x33
	TxTypeWithdrawAllocation TxType = 0x34

	TxTypeUnlockPosition    TxType = 0x40
	TxTypeClaimPositionFees TxType = 0x41

	TxTypeAccruePoolFees TxType = 0x50 // Credits trading fees to a venue position
)

var txTypeNames = map[TxType]string{
	TxTypeTransfer:                  "transfer",
	TxTypeDeploySystem:              "registry_deploy_system",
	TxTypeUpdateImplementation:      "registry_update_implementation",
	TxTypePauseRegistry:             "registry_pause",
	TxTypeUnpauseRegistry:           "registry_unpause",
	TxTypeUpdateRegistryFee:         "registry_update_fee",
	TxTypeWithdrawRegistryFees:      "registry_withdraw_fees",
	TxTypeTransferRegistryOwnership: "registry_transfer_ownership",
	TxTypeDeployInstance:            "factory_deploy_instance",
	TxTypeUpdateFactorySettings:     "factory_update_settings",
	TxTypeUpdateFactoryFee:          "factory_update_fee",
	TxTypeWithdrawFactoryFees:       "factory_withdraw_fees",
	TxTypeContribute:                "curve_contribute",
	TxTypeBuy:                       "curve_buy",
	TxTypeSell:                      "curve_sell",
	TxTypeFinalize:                  "curve_finalize",
	TxTypeWithdrawAllocation:        "curve_withdraw_allocation",
	TxTypeUnlockPosition:            "vault_unlock",
	TxTypeClaimPositionFees:         "vault_claim_fees",
	TxTypeAccruePoolFees:            "pool_accrue_fees",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseTxType resolves the snake_case name used by scripts and logs.
func ParseTxType(name string) (TxType, bool) {
	for t, n := range txTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// ErrMissingSignature is returned when recovering the sender of an unsigned
// transaction.
var ErrMissingSignature = errors.New("transaction: missing signature")

// Transaction is a signed request to run one operation. Value is the amount of
// the base asset attached to the call; it is moved from the sender to To
// before the operation executes. Data carries the RLP-encoded payload.
type Transaction struct {
	Type  TxType
	Nonce uint64
	To    common.Address
	Value *uint256.Int
	Data  []byte

	V, R, S *big.Int

	from *common.Address
}

type signingPayload struct {
	Type  TxType
	Nonce uint64
	To    common.Address
	Value *uint256.Int
	Data  []byte
}

// SigningHash is the keccak256 of the RLP encoded unsigned fields.
func (tx *Transaction) SigningHash() (common.Hash, error) {
	value := tx.Value
	if value == nil {
		value = new(uint256.Int)
	}
	encoded, err := rlp.EncodeToBytes(signingPayload{tx.Type, tx.Nonce, tx.To, value, tx.Data})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// Hash identifies the signed transaction.
func (tx *Transaction) Hash() (common.Hash, error) {
	encoded, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.SigningHash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash.Bytes(), privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the sender from the signature.
func (tx *Transaction) From() (common.Address, error) {
	if tx.from != nil {
		return *tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil || tx.V.Sign() == 0 {
		return common.Address{}, ErrMissingSignature
	}
	hash, err := tx.SigningHash()
	if err != nil {
		return common.Address{}, err
	}
	v := tx.V.Uint64()
	if v < 27 || v > 28 || len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 {
		return common.Address{}, errors.New("transaction: malformed signature")
	}
	sig := make([]byte, 65)
	tx.R.FillBytes(sig[:32])
	tx.S.FillBytes(sig[32:64])
	sig[64] = byte(v - 27)
	pubKey, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, err
	}
	addr := crypto.PubkeyToAddress(*pubKey)
	tx.from = &addr
	return addr, nil
}
