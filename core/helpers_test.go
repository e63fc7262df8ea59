package core

import (
	"reflect"
	"testing"

	"custodychain/core/types"
	"custodychain/crypto"
)

const testChainID = uint64(7)

type testAccount struct {
	key  *crypto.PrivateKey
	addr [20]byte
}

func newTestAccount(t *testing.T) testAccount {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return testAccount{key: key, addr: key.PubKey().Address().Raw()}
}

func (a testAccount) tx(t *testing.T, txType types.TxType, nonce uint64, payload interface{}) *types.Transaction {
	t.Helper()
	transaction := &types.Transaction{ChainID: testChainID, Type: txType, Nonce: nonce}
	if payload != nil {
		if err := transaction.EncodePayload(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	if err := transaction.Sign(a.key.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return transaction
}

func eventTypes(evts []types.Event) []string {
	out := make([]string, len(evts))
	for i, evt := range evts {
		out[i] = evt.Type
	}
	return out
}

func expectEventTypes(t *testing.T, evts []types.Event, want ...string) {
	t.Helper()
	got := eventTypes(evts)
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
}
