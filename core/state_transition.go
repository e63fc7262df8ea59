package core

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"custodychain/core/events"
	chainstate "custodychain/core/state"
	txchecks "custodychain/core/tx"
	"custodychain/core/types"
	"custodychain/crypto"
	"custodychain/native/bank"
	nativecommon "custodychain/native/common"
	"custodychain/native/custody"
	"custodychain/observability/logging"
	"custodychain/storage/trie"
)

var ErrUnknownTxType = errors.New("unknown transaction type")

// TxRecorder observes every transaction outcome. Used for metrics.
type TxRecorder interface {
	ObserveTransaction(txType string, err error)
}

type StateProcessor struct {
	Trie    *trie.Trie
	Bank    *bank.Ledger
	Custody *custody.Engine

	state         *chainstate.Manager
	auth          Authenticator
	recorder      TxRecorder
	logger        *slog.Logger
	height        uint64
	committedRoot common.Hash
	events        []types.Event
}

// NewStateProcessor wires the bank ledger and custody engine over tr. The
// engine reads the height set by BeginBlock.
func NewStateProcessor(tr *trie.Trie, auth Authenticator, params custody.Params, pauses nativecommon.PauseView) (*StateProcessor, error) {
	if tr == nil {
		return nil, fmt.Errorf("state processor: trie required")
	}
	if auth == nil {
		return nil, fmt.Errorf("state processor: authenticator required")
	}
	engine, err := custody.NewEngine(params)
	if err != nil {
		return nil, err
	}
	manager := chainstate.NewManager(tr)
	ledger := bank.NewLedger(manager)
	ledger.SetPauses(pauses)

	sp := &StateProcessor{
		Trie:          tr,
		Bank:          ledger,
		Custody:       engine,
		state:         manager,
		auth:          auth,
		logger:        slog.Default().With("component", "custody"),
		committedRoot: tr.Root(),
	}
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetClock(custody.ClockFunc(sp.Now))
	engine.SetPauses(pauses)
	return sp, nil
}

// SetLogger replaces the processor logger. Nil keeps the current one.
func (sp *StateProcessor) SetLogger(logger *slog.Logger) {
	if logger != nil {
		sp.logger = logger.With("component", "custody")
	}
}

// SetRecorder configures the transaction outcome observer.
func (sp *StateProcessor) SetRecorder(r TxRecorder) { sp.recorder = r }

// State exposes the state manager for queries and genesis.
func (sp *StateProcessor) State() *chainstate.Manager { return sp.state }

// Now returns the height of the block being executed.
func (sp *StateProcessor) Now() uint64 { return sp.height }

// BeginBlock fixes the ledger time for the following transactions and drops
// events left over from a previous block.
func (sp *StateProcessor) BeginBlock(height uint64) {
	sp.height = height
	sp.events = nil
}

// Events returns the rendered events of the current block.
func (sp *StateProcessor) Events() []types.Event {
	out := make([]types.Event, len(sp.events))
	copy(out, sp.events)
	return out
}

// CurrentRoot returns the last committed state root.
func (sp *StateProcessor) CurrentRoot() common.Hash {
	return sp.committedRoot
}

// PendingRoot returns the root of the trie including in-memory mutations.
func (sp *StateProcessor) PendingRoot() common.Hash {
	return sp.Trie.Hash()
}

// ResetToRoot discards any in-memory changes and reloads the trie at the
// provided root hash.
func (sp *StateProcessor) ResetToRoot(root common.Hash) error {
	if err := sp.Trie.Reset(root); err != nil {
		return err
	}
	sp.committedRoot = root
	sp.events = nil
	return nil
}

// Commit persists the current trie contents and returns the resulting state
// root.
func (sp *StateProcessor) Commit(blockNumber uint64) (common.Hash, error) {
	newRoot, err := sp.Trie.Commit(sp.committedRoot, blockNumber)
	if err != nil {
		return common.Hash{}, err
	}
	sp.committedRoot = newRoot
	return newRoot, nil
}

// bind points the modules at st and emitter for the duration of one
// transaction.
func (sp *StateProcessor) bind(st nativecommon.KVStore, emitter events.Emitter) {
	sp.Custody.SetState(st)
	sp.Custody.SetEmitter(emitter)
	sp.Bank.SetState(st)
	sp.Bank.SetEmitter(emitter)
}

// ApplyTransaction authenticates tx and executes it against the pending
// state. A failed transaction leaves no trace: its writes, nonce bump and
// events are all dropped.
func (sp *StateProcessor) ApplyTransaction(tx *types.Transaction) (err error) {
	if tx == nil {
		return fmt.Errorf("state processor: nil transaction")
	}
	defer func() {
		if sp.recorder != nil {
			sp.recorder.ObserveTransaction(tx.Type.String(), err)
		}
	}()

	sender, err := sp.auth.Verify(tx)
	if err != nil {
		return err
	}
	log := sp.logger.With(
		"height", sp.height,
		"txType", tx.Type.String(),
		"nonce", tx.Nonce,
		"sender", crypto.FormatAddress(sender),
	)

	batch := chainstate.NewBatch(sp.state)
	defer batch.Discard()
	account, err := chainstate.LoadAccount(batch, sender)
	if err != nil {
		return err
	}
	if err := txchecks.CheckNonce(account, tx); err != nil {
		log.Warn("transaction rejected", "error", err)
		return err
	}

	collector := &events.Collector{}
	sp.bind(batch, collector)
	defer sp.bind(sp.state, events.NoopEmitter{})

	if err := sp.dispatch(log, sender, tx); err != nil {
		log.Warn("transaction rejected", "error", err)
		return err
	}

	account, err = chainstate.LoadAccount(batch, sender)
	if err != nil {
		return err
	}
	account.Nonce++
	if err := chainstate.StoreAccount(batch, sender, account); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		// The trie may hold part of the write-set; drop the whole block.
		log.Error("state write failed, resetting pending block", "error", err)
		if resetErr := sp.ResetToRoot(sp.committedRoot); resetErr != nil {
			return errors.Join(err, resetErr)
		}
		return err
	}

	for _, evt := range collector.Events() {
		if renderable, ok := evt.(events.Renderable); ok {
			if rendered := renderable.Event(); rendered != nil {
				sp.events = append(sp.events, *rendered)
			}
		}
	}
	log.Debug("transaction applied")
	return nil
}

func (sp *StateProcessor) dispatch(log *slog.Logger, sender [20]byte, tx *types.Transaction) error {
	switch tx.Type {
	case types.TxTypeTransfer:
		var payload types.TransferPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		return sp.Bank.Dispatch(sender, bank.Transfer{To: payload.To, Amount: payload.Amount})
	case types.TxTypeCustodyCreate:
		var payload types.CustodyCreatePayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		return sp.Custody.Create(sender, payload.Beneficiary, payload.BlockDelay)
	case types.TxTypeCustodyUpdateBeneficiary:
		var payload types.CustodyUpdateBeneficiaryPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		return sp.Custody.UpdateBeneficiary(sender, payload.Beneficiary)
	case types.TxTypeCustodyUpdateDelay:
		var payload types.CustodyUpdateDelayPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		return sp.Custody.UpdateBlockDelay(sender, payload.BlockDelay)
	case types.TxTypeCustodyPing:
		return sp.Custody.PingAlive(sender)
	case types.TxTypeCustodyDelete:
		return sp.Custody.Delete(sender)
	case types.TxTypeCustodyActAsTrustor:
		var payload types.CustodyActPayload
		if err := tx.DecodePayload(&payload); err != nil {
			return err
		}
		log.Debug("delegated call",
			"trustor", crypto.FormatAddress(payload.Trustor),
			"callType", payload.Call.Kind,
			logging.MaskField("callData", hex.EncodeToString(payload.Call.Data)),
		)
		call, err := bank.DecodeCall(payload.Call)
		if err != nil {
			return err
		}
		return sp.Custody.ActAsTrustor(sender, payload.Trustor, call)
	}
	return fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
}
