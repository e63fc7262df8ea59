package bank

import (
	"errors"
	"math/big"
	"testing"

	"custodychain/core/events"
	chainstate "custodychain/core/state"
	"custodychain/core/types"
	nativecommon "custodychain/native/common"
	"custodychain/storage"
	"custodychain/storage/trie"
)

func newTestLedger(t *testing.T) (*Ledger, *chainstate.Manager, *events.Collector) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	manager := chainstate.NewManager(tr)
	ledger := NewLedger(manager)
	collector := &events.Collector{}
	ledger.SetEmitter(collector)
	return ledger, manager, collector
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[0] = b
	return a
}

func credit(t *testing.T, manager *chainstate.Manager, who [20]byte, amount int64) {
	t.Helper()
	if err := manager.Credit(who, big.NewInt(amount)); err != nil {
		t.Fatalf("credit: %v", err)
	}
}

func expectBalance(t *testing.T, ledger *Ledger, who [20]byte, want int64) {
	t.Helper()
	balance, err := ledger.Balance(who)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Int64() != want {
		t.Fatalf("expected balance %d, got %s", want, balance)
	}
}

type unknownCall struct{}

func (unknownCall) CallType() string { return "staking.delegate" }

type pauseBank struct{}

func (pauseBank) IsPaused(module string) bool { return module == "bank" }

func TestTransferMovesBalance(t *testing.T) {
	ledger, manager, collector := newTestLedger(t)
	alice, bob := addr(1), addr(2)
	credit(t, manager, alice, 100)

	if err := ledger.Dispatch(alice, Transfer{To: bob, Amount: big.NewInt(40)}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	expectBalance(t, ledger, alice, 60)
	expectBalance(t, ledger, bob, 40)

	emitted := collector.Events()
	if len(emitted) != 1 {
		t.Fatalf("expected one event, got %d", len(emitted))
	}
	transfer, ok := emitted[0].(events.Transfer)
	if !ok {
		t.Fatalf("unexpected event %T", emitted[0])
	}
	if transfer.From != alice || transfer.To != bob {
		t.Fatalf("unexpected transfer parties %x -> %x", transfer.From, transfer.To)
	}
	if amount := transfer.Event().Attributes["amount"]; amount != "40" {
		t.Fatalf("expected amount attribute 40, got %q", amount)
	}
}

func TestTransferRejectsBadAmounts(t *testing.T) {
	ledger, manager, collector := newTestLedger(t)
	alice, bob := addr(1), addr(2)
	credit(t, manager, alice, 10)
	root := manager.Root()

	cases := []struct {
		call types.DelegatedCall
		want error
	}{
		{Transfer{To: bob, Amount: big.NewInt(11)}, ErrInsufficientBalance},
		{Transfer{To: bob, Amount: big.NewInt(0)}, ErrInvalidAmount},
		{&Transfer{To: bob}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		if err := ledger.Dispatch(alice, tc.call); !errors.Is(err, tc.want) {
			t.Fatalf("%+v: expected %v, got %v", tc.call, tc.want, err)
		}
	}
	if manager.Root() != root {
		t.Fatalf("rejected transfer changed state")
	}
	if len(collector.Events()) != 0 {
		t.Fatalf("rejected transfer emitted events")
	}
}

func TestSelfTransferKeepsBalance(t *testing.T) {
	ledger, manager, _ := newTestLedger(t)
	alice := addr(1)
	credit(t, manager, alice, 10)
	if err := ledger.Dispatch(alice, Transfer{To: alice, Amount: big.NewInt(10)}); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	expectBalance(t, ledger, alice, 10)
}

func TestSweepEmptiesAccount(t *testing.T) {
	ledger, manager, _ := newTestLedger(t)
	alice, bob := addr(1), addr(2)
	credit(t, manager, alice, 77)

	if err := ledger.Dispatch(alice, Sweep{To: bob}); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	expectBalance(t, ledger, alice, 0)
	expectBalance(t, ledger, bob, 77)

	if err := ledger.Dispatch(alice, Sweep{To: bob}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected empty sweep rejected, got %v", err)
	}
}

func TestTransferPreservesNonce(t *testing.T) {
	ledger, manager, _ := newTestLedger(t)
	alice, bob := addr(1), addr(2)
	if err := manager.PutAccount(alice, &types.Account{Nonce: 4, Balance: big.NewInt(5)}); err != nil {
		t.Fatalf("put account: %v", err)
	}
	if err := ledger.Dispatch(alice, Transfer{To: bob, Amount: big.NewInt(5)}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	account, err := manager.Account(alice)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Nonce != 4 {
		t.Fatalf("expected nonce 4, got %d", account.Nonce)
	}
}

func TestDispatchRejectsUnknownCalls(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	if err := ledger.Dispatch(addr(1), unknownCall{}); !errors.Is(err, ErrUnsupportedCall) {
		t.Fatalf("expected unsupported call, got %v", err)
	}
	if err := ledger.Dispatch(addr(1), nil); !errors.Is(err, ErrUnsupportedCall) {
		t.Fatalf("expected nil call rejected, got %v", err)
	}
}

func TestDispatchHonoursPause(t *testing.T) {
	ledger, manager, _ := newTestLedger(t)
	credit(t, manager, addr(1), 5)
	ledger.SetPauses(pauseBank{})
	err := ledger.Dispatch(addr(1), Transfer{To: addr(2), Amount: big.NewInt(1)})
	if !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
}

func TestCallEnvelopeRoundTrip(t *testing.T) {
	env, err := EncodeCall(Transfer{To: addr(9), Amount: big.NewInt(12)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if env.Kind != CallTransfer {
		t.Fatalf("expected kind %s, got %s", CallTransfer, env.Kind)
	}
	decoded, err := DecodeCall(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	transfer, ok := decoded.(Transfer)
	if !ok || transfer.To != addr(9) || transfer.Amount.Int64() != 12 {
		t.Fatalf("unexpected decoded call %#v", decoded)
	}

	env, err = EncodeCall(Sweep{To: addr(3)})
	if err != nil {
		t.Fatalf("encode sweep: %v", err)
	}
	decoded, err = DecodeCall(env)
	if err != nil {
		t.Fatalf("decode sweep: %v", err)
	}
	if sweep, ok := decoded.(Sweep); !ok || sweep.To != addr(3) {
		t.Fatalf("unexpected decoded sweep %#v", decoded)
	}

	if _, err := DecodeCall(types.CallEnvelope{Kind: "staking.delegate"}); !errors.Is(err, ErrUnsupportedCall) {
		t.Fatalf("expected unknown kind rejected, got %v", err)
	}
	if _, err := EncodeCall(unknownCall{}); !errors.Is(err, ErrUnsupportedCall) {
		t.Fatalf("expected unknown call rejected, got %v", err)
	}
}
