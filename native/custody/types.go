package custody

import "fmt"

// Status describes a trustor account with respect to the custody module.
type Status uint8

const (
	StatusNone Status = iota
	StatusActive
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusActive:
		return "active"
	case StatusExpired:
		return "expired"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Contract lets Beneficiary act for the owning trustor once the ledger reaches
// ExecutionBlock. Every liveness ping resets ExecutionBlock to the ping height
// plus BlockDelay.
type Contract struct {
	Beneficiary    [20]byte
	BlockDelay     uint64
	ExecutionBlock uint64
}

// Executable reports whether the beneficiary may act at height now. The
// boundary is inclusive.
func (c *Contract) Executable(now uint64) bool {
	return c != nil && now >= c.ExecutionBlock
}

// StatusAt classifies the contract at height now.
func (c *Contract) StatusAt(now uint64) Status {
	switch {
	case c == nil:
		return StatusNone
	case c.Executable(now):
		return StatusExpired
	default:
		return StatusActive
	}
}
