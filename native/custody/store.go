package custody

import (
	"fmt"

	nativecommon "custodychain/native/common"
)

var (
	contractPrefix = []byte("custody/contract/")
	trustorsPrefix = "custody/trustors"
)

func contractKey(trustor [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", contractPrefix, trustor))
}

// ContractStore persists at most one contract per trustor. It carries no
// business rules.
type ContractStore struct {
	st nativecommon.KVStore
}

// NewContractStore binds the store to a KV backend.
func NewContractStore(st nativecommon.KVStore) *ContractStore {
	return &ContractStore{st: st}
}

// Get loads the contract of trustor.
func (s *ContractStore) Get(trustor [20]byte) (*Contract, bool, error) {
	if s == nil || s.st == nil {
		return nil, false, errNilState
	}
	contract := new(Contract)
	ok, err := s.st.KVGet(contractKey(trustor), contract)
	if err != nil {
		return nil, false, fmt.Errorf("custody: load contract: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return contract, true, nil
}

// Put stores contract under trustor, replacing any previous value.
func (s *ContractStore) Put(trustor [20]byte, contract *Contract) error {
	if s == nil || s.st == nil {
		return errNilState
	}
	if contract == nil {
		return fmt.Errorf("custody: nil contract")
	}
	return s.st.KVPut(contractKey(trustor), contract)
}

// Remove deletes the contract of trustor.
func (s *ContractStore) Remove(trustor [20]byte) error {
	if s == nil || s.st == nil {
		return errNilState
	}
	return s.st.KVDelete(contractKey(trustor))
}

// Exists reports whether trustor has a contract.
func (s *ContractStore) Exists(trustor [20]byte) (bool, error) {
	if s == nil || s.st == nil {
		return false, errNilState
	}
	return s.st.KVGet(contractKey(trustor), nil)
}

func accountKeyBytes(addr [20]byte) []byte { return addr[:] }

// trustorLayout indexes trustors by the beneficiary they point at.
var trustorLayout = nativecommon.RegistryLayout[[20]byte, [20]byte]{
	Prefix:    trustorsPrefix,
	GroupKey:  accountKeyBytes,
	MemberKey: accountKeyBytes,
}

// NewTrustorRegistry returns the beneficiary -> trustors index over st.
func NewTrustorRegistry(st nativecommon.KVStore) *nativecommon.IndexedRegistry[[20]byte, [20]byte] {
	return nativecommon.NewIndexedRegistry(st, trustorLayout)
}
