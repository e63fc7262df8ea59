package types

// DelegatedCall is an opaque ledger operation a beneficiary asks to execute on
// behalf of a trustor. The custody module only forwards it; the ledger that
// receives it decides what the call type means.
type DelegatedCall interface {
	CallType() string
}

// CallEnvelope is the wire form of a DelegatedCall inside a transaction
// payload. Kind selects the decoder, Data is the RLP encoded call body.
type CallEnvelope struct {
	Kind string
	Data []byte
}
