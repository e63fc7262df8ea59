package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeTransfer TxType = 0x01 // A standard balance transfer

	TxTypeCustodyCreate            TxType = 0x20 // Register a dead man's switch contract
	TxTypeCustodyUpdateBeneficiary TxType = 0x21 // Rotate the beneficiary
	TxTypeCustodyUpdateDelay       TxType = 0x22 // Change the block delay and restart the countdown
	TxTypeCustodyPing              TxType = 0x23 // Liveness ping from the trustor
	TxTypeCustodyDelete            TxType = 0x24 // Remove the contract
	TxTypeCustodyActAsTrustor      TxType = 0x25 // Beneficiary executes a call as the trustor
)

var errMissingSignature = errors.New("tx: missing signature")

// String returns a short label used in logs and metrics.
func (t TxType) String() string {
	switch t {
	case TxTypeTransfer:
		return "transfer"
	case TxTypeCustodyCreate:
		return "custody.create"
	case TxTypeCustodyUpdateBeneficiary:
		return "custody.update_beneficiary"
	case TxTypeCustodyUpdateDelay:
		return "custody.update_delay"
	case TxTypeCustodyPing:
		return "custody.ping"
	case TxTypeCustodyDelete:
		return "custody.delete"
	case TxTypeCustodyActAsTrustor:
		return "custody.act_as_trustor"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Transaction is a signed request. Data carries the RLP payload matching Type.
type Transaction struct {
	ChainID uint64
	Type    TxType
	Nonce   uint64
	Data    []byte

	// Signatures
	R, S, V *big.Int

	from *[20]byte
}

type signingPayload struct {
	ChainID uint64
	Type    TxType
	Nonce   uint64
	Data    []byte
}

// Hash returns the keccak256 digest of the signed fields.
func (tx *Transaction) Hash() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(&signingPayload{
		ChainID: tx.ChainID,
		Type:    tx.Type,
		Nonce:   tx.Nonce,
		Data:    tx.Data,
	})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer address. The result is cached on the transaction.
func (tx *Transaction) From() ([20]byte, error) {
	if tx.from != nil {
		return *tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return [20]byte{}, errMissingSignature
	}
	if len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 || tx.V.Uint64() < 27 {
		return [20]byte{}, fmt.Errorf("tx: malformed signature")
	}
	hash, err := tx.Hash()
	if err != nil {
		return [20]byte{}, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return [20]byte{}, err
	}
	var addr [20]byte
	copy(addr[:], crypto.PubkeyToAddress(*pubKey).Bytes())
	tx.from = &addr
	return addr, nil
}

// EncodePayload RLP encodes a payload into tx.Data.
func (tx *Transaction) EncodePayload(payload interface{}) error {
	if payload == nil {
		tx.Data = nil
		return nil
	}
	encoded, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return err
	}
	tx.Data = encoded
	tx.from = nil
	return nil
}

// DecodePayload decodes tx.Data into out.
func (tx *Transaction) DecodePayload(out interface{}) error {
	if len(tx.Data) == 0 {
		return fmt.Errorf("tx %s: empty payload", tx.Type)
	}
	if err := rlp.DecodeBytes(tx.Data, out); err != nil {
		return fmt.Errorf("tx %s: decode payload: %w", tx.Type, err)
	}
	return nil
}
