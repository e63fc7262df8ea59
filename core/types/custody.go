package types

import "math/big"

// TransferPayload moves Amount from the sender to To.
type TransferPayload struct {
	To     [20]byte
	Amount *big.Int
}

// CustodyCreatePayload registers Beneficiary with the supplied block delay.
type CustodyCreatePayload struct {
	Beneficiary [20]byte
	BlockDelay  uint64
}

type CustodyUpdateBeneficiaryPayload struct {
	Beneficiary [20]byte
}

type CustodyUpdateDelayPayload struct {
	BlockDelay uint64
}

// CustodyActPayload is submitted by a beneficiary. Call is decoded by the
// ledger that will execute it.
type CustodyActPayload struct {
	Trustor [20]byte
	Call    CallEnvelope
}
