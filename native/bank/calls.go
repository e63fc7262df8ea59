package bank

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"custodychain/core/types"
)

const (
	CallTransfer = "bank.transfer"
	CallSweep    = "bank.sweep"
)

// Transfer moves Amount from the executing account to To.
type Transfer struct {
	To     [20]byte
	Amount *big.Int
}

// CallType implements types.DelegatedCall.
func (Transfer) CallType() string { return CallTransfer }

// Sweep moves the entire balance of the executing account to To.
type Sweep struct {
	To [20]byte
}

// CallType implements types.DelegatedCall.
func (Sweep) CallType() string { return CallSweep }

// EncodeCall wraps a bank call into its transaction envelope.
func EncodeCall(call types.DelegatedCall) (types.CallEnvelope, error) {
	switch c := call.(type) {
	case Transfer, *Transfer, Sweep, *Sweep:
		data, err := rlp.EncodeToBytes(c)
		if err != nil {
			return types.CallEnvelope{}, fmt.Errorf("bank: encode %s: %w", call.CallType(), err)
		}
		return types.CallEnvelope{Kind: call.CallType(), Data: data}, nil
	case nil:
		return types.CallEnvelope{}, ErrUnsupportedCall
	default:
		return types.CallEnvelope{}, fmt.Errorf("%w: %s", ErrUnsupportedCall, call.CallType())
	}
}

// DecodeCall resolves an envelope into the bank call it carries.
func DecodeCall(env types.CallEnvelope) (types.DelegatedCall, error) {
	switch env.Kind {
	case CallTransfer:
		var call Transfer
		if err := rlp.DecodeBytes(env.Data, &call); err != nil {
			return nil, fmt.Errorf("bank: decode transfer: %w", err)
		}
		return call, nil
	case CallSweep:
		var call Sweep
		if err := rlp.DecodeBytes(env.Data, &call); err != nil {
			return nil, fmt.Errorf("bank: decode sweep: %w", err)
		}
		return call, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCall, env.Kind)
	}
}
