package state

import (
	"math/big"
	"testing"

	"custodychain/storage"
	"custodychain/storage/trie"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	return NewManager(tr)
}

type record struct {
	Name  string
	Value uint64
}

func TestManagerKVRoundTrip(t *testing.T) {
	m := newTestManager(t)
	key := []byte("custody/test")

	if ok, err := m.KVGet(key, new(record)); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := m.KVPut(key, &record{Name: "a", Value: 9}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got record
	ok, err := m.KVGet(key, &got)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Name != "a" || got.Value != 9 {
		t.Fatalf("unexpected record %+v", got)
	}
	if err := m.KVDelete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, err := m.KVGet(key, nil); err != nil || ok {
		t.Fatalf("expected key removed, ok=%v err=%v", ok, err)
	}
}

func TestManagerRejectsEmptyKey(t *testing.T) {
	m := newTestManager(t)
	if err := m.KVPut(nil, uint64(1)); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := m.KVGet(nil, nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if err := m.KVDelete(nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestManagerAccounts(t *testing.T) {
	m := newTestManager(t)
	addr := [20]byte{0x01}

	account, err := m.Account(addr)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Balance.Sign() != 0 || account.Nonce != 0 {
		t.Fatalf("expected zero account, got %+v", account)
	}
	if err := m.Credit(addr, big.NewInt(50)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	account, err = m.Account(addr)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Balance.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected balance 50, got %s", account.Balance)
	}
	if err := m.Credit(addr, big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative credit to fail")
	}
}
