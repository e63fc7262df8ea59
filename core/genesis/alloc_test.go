package genesis

import (
	"testing"

	"custodychain/core/state"
	"custodychain/crypto"
	"custodychain/storage"
	"custodychain/storage/trie"
)

func newManager(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	return state.NewManager(tr)
}

func TestParseAlloc(t *testing.T) {
	var raw [20]byte
	raw[0] = 0x42
	alloc, err := ParseAlloc(crypto.FormatAddress(raw), "1000")
	if err != nil {
		t.Fatalf("parse alloc: %v", err)
	}
	if alloc.Address != raw || alloc.Balance.Int64() != 1000 {
		t.Fatalf("unexpected alloc %x %s", alloc.Address, alloc.Balance)
	}

	foreign := crypto.MustNewAddress(crypto.AddressPrefix("xyz"), raw[:]).String()
	bad := [][2]string{
		{crypto.FormatAddress(raw), "ten"},
		{"cst1invalid", "1"},
		{foreign, "1"},
	}
	for _, tc := range bad {
		if _, err := ParseAlloc(tc[0], tc[1]); err == nil {
			t.Fatalf("expected %q / %q to be rejected", tc[0], tc[1])
		}
	}
}

func TestApplyIsOrderIndependent(t *testing.T) {
	a, err := ParseAlloc(crypto.FormatAddress([20]byte{1}), "5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := ParseAlloc(crypto.FormatAddress([20]byte{2}), "7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	first := newManager(t)
	if err := Apply(first, []Alloc{a, b}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	second := newManager(t)
	if err := Apply(second, []Alloc{b, a}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if first.Root() != second.Root() {
		t.Fatalf("allocation order changed the root")
	}

	account, err := first.Account([20]byte{2})
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Balance.Int64() != 7 {
		t.Fatalf("expected balance 7, got %s", account.Balance)
	}
}
