package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"custodychain/core/state"
)

// Alloc is a parsed genesis balance.
type Alloc struct {
	Address [20]byte
	Balance *big.Int
}

// ParseAlloc validates one configured allocation.
func ParseAlloc(address, balance string) (Alloc, error) {
	addr, err := ParseBech32Account(address)
	if err != nil {
		return Alloc{}, err
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(balance), 10)
	if !ok || amount.Sign() < 0 {
		return Alloc{}, fmt.Errorf("genesis: invalid balance %q for %s", balance, address)
	}
	return Alloc{Address: addr, Balance: amount}, nil
}

// Apply credits allocs into manager in address order so the resulting root
// does not depend on configuration order.
func Apply(manager *state.Manager, allocs []Alloc) error {
	if manager == nil {
		return fmt.Errorf("genesis: state manager required")
	}
	sorted := make([]Alloc, len(allocs))
	copy(sorted, allocs)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Address[:], sorted[j].Address[:]) < 0
	})
	for _, alloc := range sorted {
		if err := manager.Credit(alloc.Address, alloc.Balance); err != nil {
			return fmt.Errorf("genesis: credit %x: %w", alloc.Address, err)
		}
	}
	return nil
}
