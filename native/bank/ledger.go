package bank

import (
	"errors"
	"fmt"
	"math/big"

	"custodychain/core/events"
	chainstate "custodychain/core/state"
	"custodychain/core/types"
	nativecommon "custodychain/native/common"
)

const moduleName = "bank"

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInvalidAmount       = errors.New("bank: amount must be positive")
	ErrUnsupportedCall     = errors.New("bank: unsupported call")

	errNilState = errors.New("bank: state not configured")
)

// Ledger executes balance movements on behalf of an account. It serves both
// plain transfer transactions and calls delegated through custody contracts.
type Ledger struct {
	state   nativecommon.KVStore
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewLedger binds a ledger to st.
func NewLedger(st nativecommon.KVStore) *Ledger {
	return &Ledger{state: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Nil restores the no-op emitter.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetPauses configures the module pause switch.
func (l *Ledger) SetPauses(p nativecommon.PauseView) { l.pauses = p }

// Balance returns the balance of addr.
func (l *Ledger) Balance(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	account, err := chainstate.LoadAccount(l.state, addr)
	if err != nil {
		return nil, err
	}
	return account.Balance, nil
}

// Dispatch runs call with as as the executing account.
func (l *Ledger) Dispatch(as [20]byte, call types.DelegatedCall) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	switch c := call.(type) {
	case Transfer:
		return l.transfer(as, c.To, c.Amount, false)
	case *Transfer:
		if c == nil {
			return ErrUnsupportedCall
		}
		return l.transfer(as, c.To, c.Amount, false)
	case Sweep:
		return l.transfer(as, c.To, nil, true)
	case *Sweep:
		if c == nil {
			return ErrUnsupportedCall
		}
		return l.transfer(as, c.To, nil, true)
	case nil:
		return ErrUnsupportedCall
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCall, call.CallType())
	}
}

func (l *Ledger) transfer(from, to [20]byte, amount *big.Int, sweep bool) error {
	batch := chainstate.NewBatch(l.state)
	defer batch.Discard()

	sender, err := chainstate.LoadAccount(batch, from)
	if err != nil {
		return err
	}
	if sweep {
		amount = new(big.Int).Set(sender.Balance)
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if sender.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	if err := chainstate.StoreAccount(batch, from, sender); err != nil {
		return err
	}

	recipient, err := chainstate.LoadAccount(batch, to)
	if err != nil {
		return err
	}
	recipient.Balance = new(big.Int).Add(recipient.Balance, amount)
	if err := chainstate.StoreAccount(batch, to, recipient); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// SetState rebinds the ledger to st. The processor points it at the
// transaction write-set while a transaction runs.
func (l *Ledger) SetState(st nativecommon.KVStore) { l.state = st }
