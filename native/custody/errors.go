package custody

import (
	"errors"

	nativecommon "custodychain/native/common"
)

var (
	ErrAlreadyHasContract   = errors.New("custody: trustor already has a contract")
	ErrNoContract           = errors.New("custody: no contract for account")
	ErrSelfBeneficiary      = errors.New("custody: trustor cannot be its own beneficiary")
	ErrSelfDelegation       = errors.New("custody: cannot act as yourself")
	ErrBeneficiaryUnchanged = errors.New("custody: beneficiary already set to this account")
	ErrDelayTooShort        = errors.New("custody: block delay below minimum")
	ErrDelayOverflow        = errors.New("custody: execution block overflows ledger time")
	ErrNotBeneficiary       = errors.New("custody: sender is not the beneficiary for this trustor")
	ErrNotYetExecutable     = errors.New("custody: contract not yet executable")

	// ErrInvariant wraps registry consistency failures. They indicate a prior
	// bug rather than a bad request.
	ErrInvariant = nativecommon.ErrInvariant

	errNilState  = errors.New("custody engine: state not configured")
	errNilLedger = errors.New("custody engine: ledger not configured")
	errNilCall   = errors.New("custody engine: delegated call required")
)
