package core

import (
	"fmt"

	txchecks "custodychain/core/tx"
	"custodychain/core/types"
)

// Authenticator resolves the account a transaction acts for.
type Authenticator interface {
	Verify(tx *types.Transaction) ([20]byte, error)
}

// SignatureAuthenticator accepts secp256k1 signed transactions for one chain.
type SignatureAuthenticator struct {
	ChainID uint64
}

// Verify implements Authenticator.
func (a SignatureAuthenticator) Verify(tx *types.Transaction) ([20]byte, error) {
	if err := txchecks.CheckChainID(tx, a.ChainID); err != nil {
		return [20]byte{}, err
	}
	sender, err := tx.From()
	if err != nil {
		return [20]byte{}, fmt.Errorf("authenticate: %w", err)
	}
	return sender, nil
}
