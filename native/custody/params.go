package custody

import "fmt"

// DefaultMinBlockDelay is the shortest countdown a trustor may configure.
const DefaultMinBlockDelay uint64 = 10

// Params holds the module configuration. It is fixed at engine construction.
type Params struct {
	MinBlockDelay uint64
}

// DefaultParams returns the default module parameters.
func DefaultParams() Params {
	return Params{MinBlockDelay: DefaultMinBlockDelay}
}

// Validate rejects parameter sets the engine cannot operate with.
func (p Params) Validate() error {
	if p.MinBlockDelay == 0 {
		return fmt.Errorf("custody: MinBlockDelay must be positive")
	}
	return nil
}
