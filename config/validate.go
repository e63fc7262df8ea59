package config

import (
	"fmt"
	"strings"

	"custodychain/core/genesis"
)

var validLogLevels = map[string]struct{}{
	"debug":   {},
	"info":    {},
	"warn":    {},
	"warning": {},
	"error":   {},
}

func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	if cfg.ChainID == 0 {
		return fmt.Errorf("chain: ChainID must be non-zero")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("node: DataDir required")
	}
	if _, ok := validLogLevels[strings.ToLower(strings.TrimSpace(cfg.LogLevel))]; !ok {
		return fmt.Errorf("logging: unknown LogLevel %q", cfg.LogLevel)
	}
	if cfg.Custody.MinBlockDelay == 0 {
		return fmt.Errorf("custody: MinBlockDelay must be positive")
	}
	if _, err := cfg.GenesisAllocs(); err != nil {
		return err
	}
	return nil
}

// GenesisAllocs parses the configured allocations. Duplicate addresses are
// rejected.
func (cfg *Config) GenesisAllocs() ([]genesis.Alloc, error) {
	allocs := make([]genesis.Alloc, 0, len(cfg.Genesis))
	seen := make(map[[20]byte]struct{}, len(cfg.Genesis))
	for i, entry := range cfg.Genesis {
		alloc, err := genesis.ParseAlloc(entry.Address, entry.Balance)
		if err != nil {
			return nil, fmt.Errorf("genesis[%d]: %w", i, err)
		}
		if _, dup := seen[alloc.Address]; dup {
			return nil, fmt.Errorf("genesis[%d]: duplicate address %s", i, entry.Address)
		}
		seen[alloc.Address] = struct{}{}
		allocs = append(allocs, alloc)
	}
	return allocs, nil
}
