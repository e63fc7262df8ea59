package config

import "strings"

// Custody holds the dead man's switch module parameters.
type Custody struct {
	MinBlockDelay uint64
}

// Pauses switches native modules off without a restart of the state.
type Pauses struct {
	Custody bool
	Bank    bool
}

// IsPaused implements the native module pause view.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case "custody":
		return p.Custody
	case "bank":
		return p.Bank
	default:
		return false
	}
}

// Allocation credits Balance (base units, decimal) to a bech32 Address when
// the chain state is first created.
type Allocation struct {
	Address string
	Balance string
}

// Telemetry configures the OTLP exporters. Both signals are off by default.
type Telemetry struct {
	Endpoint string `toml:"Endpoint,omitempty"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers,omitempty"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Enabled reports whether any exporter is requested.
func (t Telemetry) Enabled() bool { return t.Traces || t.Metrics }
