package custody

import (
	"errors"
	"math"

	"custodychain/core/events"
	chainstate "custodychain/core/state"
	"custodychain/core/types"
	nativecommon "custodychain/native/common"
)

const moduleName = "custody"

// Operation labels passed to the Recorder.
const (
	OpCreate            = "create"
	OpUpdateBeneficiary = "update_beneficiary"
	OpUpdateBlockDelay  = "update_block_delay"
	OpPingAlive         = "ping_alive"
	OpDelete            = "delete"
	OpActAsTrustor      = "act_as_trustor"
)

var errNilClock = errors.New("custody engine: clock not configured")

// Clock supplies the current ledger height. It must be stable for the
// duration of one operation.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() uint64

// Now implements Clock.
func (f ClockFunc) Now() uint64 { return f() }

// Ledger executes delegated calls as another account. Errors are returned to
// the beneficiary unchanged.
type Ledger interface {
	Dispatch(as [20]byte, call types.DelegatedCall) error
}

// Recorder observes the outcome of every operation. Used for metrics.
type Recorder interface {
	Observe(operation string, err error)
}

// Engine is the dead man's switch state machine. It owns the contract store
// and the beneficiary -> trustors registry and keeps them consistent.
//
// Every mutating operation checks its preconditions and stages its writes in
// a state batch; the batch is flushed and the event emitted only when every
// step succeeded. Engine is not safe for concurrent use.
type Engine struct {
	state    nativecommon.KVStore
	ledger   Ledger
	clock    Clock
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	recorder Recorder
	params   Params
}

// NewEngine creates an engine with a no-op emitter. State, clock and ledger
// must be configured before use.
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		emitter: events.NoopEmitter{},
		params:  params,
	}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state nativecommon.KVStore) { e.state = state }

// SetLedger configures the ledger that executes delegated calls.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetClock configures the ledger time source.
func (e *Engine) SetClock(clock Clock) { e.clock = clock }

// SetPauses configures the module pause switch.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetRecorder configures the operation observer. Nil disables recording.
func (e *Engine) SetRecorder(r Recorder) { e.recorder = r }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Params returns the module parameters.
func (e *Engine) Params() Params { return e.params }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) observe(operation string, err *error) {
	if e == nil || e.recorder == nil {
		return
	}
	e.recorder.Observe(operation, *err)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.clock == nil {
		return errNilClock
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

// begin opens the write-set for a mutating operation.
func (e *Engine) begin() (*chainstate.Batch, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return chainstate.NewBatch(e.state), nil
}

func executionBlock(now, delay uint64) (uint64, error) {
	if delay > math.MaxUint64-now {
		return 0, ErrDelayOverflow
	}
	return now + delay, nil
}

func (e *Engine) checkDelay(delay uint64) error {
	if delay < e.params.MinBlockDelay {
		return ErrDelayTooShort
	}
	return nil
}

// Create registers beneficiary for sender. The countdown starts at the current
// height.
func (e *Engine) Create(sender, beneficiary [20]byte, blockDelay uint64) (err error) {
	defer e.observe(OpCreate, &err)
	batch, err := e.begin()
	if err != nil {
		return err
	}
	defer batch.Discard()

	contracts := NewContractStore(batch)
	exists, err := contracts.Exists(sender)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyHasContract
	}
	if sender == beneficiary {
		return ErrSelfBeneficiary
	}
	if err := e.checkDelay(blockDelay); err != nil {
		return err
	}
	execAt, err := executionBlock(e.clock.Now(), blockDelay)
	if err != nil {
		return err
	}

	contract := &Contract{Beneficiary: beneficiary, BlockDelay: blockDelay, ExecutionBlock: execAt}
	if err := contracts.Put(sender, contract); err != nil {
		return err
	}
	if err := NewTrustorRegistry(batch).Add(beneficiary, sender); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}
	e.emit(events.CustodyContractCreated{
		Trustor:        sender,
		Beneficiary:    beneficiary,
		BlockDelay:     blockDelay,
		ExecutionBlock: execAt,
	})
	return nil
}

// UpdateBeneficiary points sender's contract at a new beneficiary. The delay
// and execution block are left untouched.
func (e *Engine) UpdateBeneficiary(sender, beneficiary [20]byte) (err error) {
	defer e.observe(OpUpdateBeneficiary, &err)
	batch, err := e.begin()
	if err != nil {
		return err
	}
	defer batch.Discard()

	contracts := NewContractStore(batch)
	contract, ok, err := contracts.Get(sender)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoContract
	}
	if sender == beneficiary {
		return ErrSelfBeneficiary
	}
	previous := contract.Beneficiary
	if previous == beneficiary {
		return ErrBeneficiaryUnchanged
	}

	contract.Beneficiary = beneficiary
	if err := contracts.Put(sender, contract); err != nil {
		return err
	}
	if err := NewTrustorRegistry(batch).Move(previous, beneficiary, sender); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}
	e.emit(events.CustodyBeneficiaryUpdated{
		Trustor:     sender,
		Previous:    previous,
		Beneficiary: beneficiary,
	})
	return nil
}

// UpdateBlockDelay replaces the delay and restarts the countdown from the
// current height.
func (e *Engine) UpdateBlockDelay(sender [20]byte, blockDelay uint64) (err error) {
	defer e.observe(OpUpdateBlockDelay, &err)
	batch, err := e.begin()
	if err != nil {
		return err
	}
	defer batch.Discard()

	contracts := NewContractStore(batch)
	contract, ok, err := contracts.Get(sender)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoContract
	}
	if err := e.checkDelay(blockDelay); err != nil {
		return err
	}
	execAt, err := executionBlock(e.clock.Now(), blockDelay)
	if err != nil {
		return err
	}

	previous := contract.BlockDelay
	contract.BlockDelay = blockDelay
	contract.ExecutionBlock = execAt
	if err := contracts.Put(sender, contract); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}
	e.emit(events.CustodyBlockDelayUpdated{
		Trustor:       sender,
		PreviousDelay: previous,
		BlockDelay:    blockDelay,
	})
	return nil
}

// PingAlive moves the execution block to now + BlockDelay. Pinging an expired
// contract revives it with one fresh window.
func (e *Engine) PingAlive(sender [20]byte) (err error) {
	defer e.observe(OpPingAlive, &err)
	batch, err := e.begin()
	if err != nil {
		return err
	}
	defer batch.Discard()

	contracts := NewContractStore(batch)
	contract, ok, err := contracts.Get(sender)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoContract
	}
	execAt, err := executionBlock(e.clock.Now(), contract.BlockDelay)
	if err != nil {
		return err
	}

	contract.ExecutionBlock = execAt
	if err := contracts.Put(sender, contract); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}
	e.emit(events.CustodyPinged{Trustor: sender, ExecutionBlock: execAt})
	return nil
}

// Delete removes sender's contract and its registry entry.
func (e *Engine) Delete(sender [20]byte) (err error) {
	defer e.observe(OpDelete, &err)
	batch, err := e.begin()
	if err != nil {
		return err
	}
	defer batch.Discard()

	contracts := NewContractStore(batch)
	contract, ok, err := contracts.Get(sender)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoContract
	}

	if err := contracts.Remove(sender); err != nil {
		return err
	}
	if err := NewTrustorRegistry(batch).Remove(contract.Beneficiary, sender); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}
	e.emit(events.CustodyContractDeleted{Trustor: sender})
	return nil
}

// ActAsTrustor forwards call to the ledger as trustor once sender is the
// beneficiary of an executable contract. The ledger's error is returned as is.
func (e *Engine) ActAsTrustor(sender, trustor [20]byte, call types.DelegatedCall) (err error) {
	defer e.observe(OpActAsTrustor, &err)
	if err := e.ready(); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if call == nil {
		return errNilCall
	}

	contract, ok, err := NewContractStore(e.state).Get(trustor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoContract
	}
	if sender == trustor {
		return ErrSelfDelegation
	}
	if contract.Beneficiary != sender {
		return ErrNotBeneficiary
	}
	if !contract.Executable(e.clock.Now()) {
		return ErrNotYetExecutable
	}

	if err := e.ledger.Dispatch(trustor, call); err != nil {
		return err
	}
	e.emit(events.CustodyActedAsTrustor{
		Beneficiary: sender,
		Trustor:     trustor,
		CallType:    call.CallType(),
	})
	return nil
}

// Contract returns the contract registered by trustor.
func (e *Engine) Contract(trustor [20]byte) (*Contract, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	return NewContractStore(e.state).Get(trustor)
}

// Status classifies trustor at the current height.
func (e *Engine) Status(trustor [20]byte) (Status, error) {
	if e == nil || e.clock == nil {
		return StatusNone, errNilClock
	}
	contract, ok, err := e.Contract(trustor)
	if err != nil {
		return StatusNone, err
	}
	if !ok {
		return StatusNone, nil
	}
	return contract.StatusAt(e.clock.Now()), nil
}

// TrustorCount returns how many trustors name beneficiary.
func (e *Engine) TrustorCount(beneficiary [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return NewTrustorRegistry(e.state).Count(beneficiary)
}

// TrustorAt returns the trustor at position pos in beneficiary's list.
func (e *Engine) TrustorAt(beneficiary [20]byte, pos uint64) ([20]byte, bool, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, false, errNilState
	}
	return NewTrustorRegistry(e.state).MemberAt(beneficiary, pos)
}

// Trustors lists every trustor naming beneficiary. Order is not meaningful.
func (e *Engine) Trustors(beneficiary [20]byte) ([][20]byte, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return NewTrustorRegistry(e.state).Members(beneficiary)
}
