package tx

import (
	"errors"
	"fmt"

	"custodychain/core/types"
)

var (
	ErrWrongChain    = errors.New("tx: wrong chain id")
	ErrNonceMismatch = errors.New("tx: nonce mismatch")
)

// CheckChainID rejects transactions signed for another network.
func CheckChainID(transaction *types.Transaction, chainID uint64) error {
	if transaction == nil {
		return fmt.Errorf("tx: nil transaction")
	}
	if transaction.ChainID != chainID {
		return fmt.Errorf("%w: got %d, want %d", ErrWrongChain, transaction.ChainID, chainID)
	}
	return nil
}

// CheckNonce requires the transaction nonce to equal the sender's next nonce.
func CheckNonce(account *types.Account, transaction *types.Transaction) error {
	if account == nil || transaction == nil {
		return fmt.Errorf("tx: account and transaction required")
	}
	if transaction.Nonce != account.Nonce {
		return fmt.Errorf("%w: got %d, want %d", ErrNonceMismatch, transaction.Nonce, account.Nonce)
	}
	return nil
}
