package events

import "custodychain/core/types"

const (
	// TypeCustodyContractCreated is emitted when a trustor registers a
	// beneficiary.
	TypeCustodyContractCreated = "custody.contract.created"
	// TypeCustodyBeneficiaryUpdated is emitted when a trustor rotates the
	// beneficiary of an existing contract.
	TypeCustodyBeneficiaryUpdated = "custody.beneficiary.updated"
	// TypeCustodyBlockDelayUpdated is emitted when the block delay changes.
	TypeCustodyBlockDelayUpdated = "custody.delay.updated"
	// TypeCustodyPinged is emitted on every liveness ping.
	TypeCustodyPinged = "custody.pinged"
	// TypeCustodyContractDeleted is emitted when a trustor removes a contract.
	TypeCustodyContractDeleted = "custody.contract.deleted"
	// TypeCustodyActedAsTrustor is emitted after a delegated call executed
	// successfully.
	TypeCustodyActedAsTrustor = "custody.acted_as_trustor"
)

// CustodyContractCreated captures a new contract.
type CustodyContractCreated struct {
	Trustor        [20]byte
	Beneficiary    [20]byte
	BlockDelay     uint64
	ExecutionBlock uint64
}

// EventType implements the Event interface.
func (CustodyContractCreated) EventType() string { return TypeCustodyContractCreated }

func (e CustodyContractCreated) Event() *types.Event {
	return &types.Event{Type: TypeCustodyContractCreated, Attributes: map[string]string{
		"trustor":        formatAddress(e.Trustor),
		"beneficiary":    formatAddress(e.Beneficiary),
		"blockDelay":     formatUint(e.BlockDelay),
		"executionBlock": formatUint(e.ExecutionBlock),
	}}
}

// CustodyBeneficiaryUpdated captures a beneficiary rotation.
type CustodyBeneficiaryUpdated struct {
	Trustor     [20]byte
	Previous    [20]byte
	Beneficiary [20]byte
}

// EventType implements the Event interface.
func (CustodyBeneficiaryUpdated) EventType() string { return TypeCustodyBeneficiaryUpdated }

func (e CustodyBeneficiaryUpdated) Event() *types.Event {
	return &types.Event{Type: TypeCustodyBeneficiaryUpdated, Attributes: map[string]string{
		"trustor":             formatAddress(e.Trustor),
		"previousBeneficiary": formatAddress(e.Previous),
		"beneficiary":         formatAddress(e.Beneficiary),
	}}
}

// CustodyBlockDelayUpdated captures a delay change.
type CustodyBlockDelayUpdated struct {
	Trustor       [20]byte
	PreviousDelay uint64
	BlockDelay    uint64
}

// EventType implements the Event interface.
func (CustodyBlockDelayUpdated) EventType() string { return TypeCustodyBlockDelayUpdated }

func (e CustodyBlockDelayUpdated) Event() *types.Event {
	return &types.Event{Type: TypeCustodyBlockDelayUpdated, Attributes: map[string]string{
		"trustor":            formatAddress(e.Trustor),
		"previousBlockDelay": formatUint(e.PreviousDelay),
		"blockDelay":         formatUint(e.BlockDelay),
	}}
}

// CustodyPinged carries the execution block set by a liveness ping.
type CustodyPinged struct {
	Trustor        [20]byte
	ExecutionBlock uint64
}

// EventType implements the Event interface.
func (CustodyPinged) EventType() string { return TypeCustodyPinged }

func (e CustodyPinged) Event() *types.Event {
	return &types.Event{Type: TypeCustodyPinged, Attributes: map[string]string{
		"trustor":        formatAddress(e.Trustor),
		"executionBlock": formatUint(e.ExecutionBlock),
	}}
}

// CustodyContractDeleted marks the removal of a contract.
type CustodyContractDeleted struct {
	Trustor [20]byte
}

// EventType implements the Event interface.
func (CustodyContractDeleted) EventType() string { return TypeCustodyContractDeleted }

func (e CustodyContractDeleted) Event() *types.Event {
	return &types.Event{Type: TypeCustodyContractDeleted, Attributes: map[string]string{
		"trustor": formatAddress(e.Trustor),
	}}
}

// CustodyActedAsTrustor records a delegated call executed by a beneficiary.
type CustodyActedAsTrustor struct {
	Beneficiary [20]byte
	Trustor     [20]byte
	CallType    string
}

// EventType implements the Event interface.
func (CustodyActedAsTrustor) EventType() string { return TypeCustodyActedAsTrustor }

func (e CustodyActedAsTrustor) Event() *types.Event {
	attrs := map[string]string{
		"beneficiary": formatAddress(e.Beneficiary),
		"trustor":     formatAddress(e.Trustor),
	}
	if e.CallType != "" {
		attrs["callType"] = e.CallType
	}
	return &types.Event{Type: TypeCustodyActedAsTrustor, Attributes: attrs}
}
