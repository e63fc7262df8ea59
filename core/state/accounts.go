package state

import (
	"fmt"
	"math/big"

	"custodychain/core/types"
)

var accountPrefix = []byte("account/")

func accountKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", accountPrefix, addr))
}

// LoadAccount reads the account for addr from st. Unknown accounts are
// returned zeroed.
func LoadAccount(st KVStore, addr [20]byte) (*types.Account, error) {
	account := new(types.Account)
	ok, err := st.KVGet(accountKey(addr), account)
	if err != nil {
		return nil, fmt.Errorf("state: load account %x: %w", addr, err)
	}
	if !ok || account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, nil
}

// StoreAccount writes the account for addr into st.
func StoreAccount(st KVStore, addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	stored := account.Clone()
	if stored.Balance.Sign() < 0 {
		return fmt.Errorf("state: negative balance for %x", addr)
	}
	return st.KVPut(accountKey(addr), stored)
}

// Account loads the account for addr. Unknown accounts are returned zeroed.
func (m *Manager) Account(addr [20]byte) (*types.Account, error) {
	return LoadAccount(m, addr)
}

// PutAccount stores the account for addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	return StoreAccount(m, addr, account)
}

// Credit adds amount to the balance of addr. Used by genesis allocation and
// tests; transfers go through native/bank.
func (m *Manager) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: credit amount must be non-negative")
	}
	account, err := m.Account(addr)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return m.PutAccount(addr, account)
}
