package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"custodychain/crypto"
)

func testAddress(b byte) string {
	var raw [20]byte
	raw[0] = b
	raw[19] = 0x24
	return crypto.FormatAddress(raw)
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if cfg.Custody.MinBlockDelay != 10 {
		t.Fatalf("expected default MinBlockDelay 10, got %d", cfg.Custody.MinBlockDelay)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ChainID != cfg.ChainID || reloaded.NetworkName != cfg.NetworkName {
		t.Fatalf("reloaded config differs: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadParsesCustodySettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `DataDir = "./data"
NetworkName = "testnet"
ChainID = 42
LogLevel = "debug"
LogFile = "./node.log"

[custody]
MinBlockDelay = 25

[pauses]
Custody = true

[[Genesis]]
Address = "` + testAddress(1) + `"
Balance = "1000"

[[Genesis]]
Address = "` + testAddress(2) + `"
Balance = "5"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 42 || cfg.NetworkName != "testnet" || cfg.LogFile != "./node.log" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Custody.MinBlockDelay != 25 {
		t.Fatalf("expected MinBlockDelay 25, got %d", cfg.Custody.MinBlockDelay)
	}
	if !cfg.Pauses.IsPaused("custody") || cfg.Pauses.IsPaused("bank") || cfg.Pauses.IsPaused("unknown") {
		t.Fatalf("unexpected pause view %+v", cfg.Pauses)
	}
	if cfg.Environment != "dev" {
		t.Fatalf("expected default environment, got %q", cfg.Environment)
	}

	allocs, err := cfg.GenesisAllocs()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocs))
	}
	var first [20]byte
	first[0], first[19] = 1, 0x24
	if allocs[0].Address != first || allocs[0].Balance.Int64() != 1000 {
		t.Fatalf("unexpected allocation %+v", allocs[0])
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("ChainID = 1\nListenAddress = \":6001\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "ListenAddress") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chain id", func(c *Config) { c.ChainID = 0 }},
		{"empty data dir", func(c *Config) { c.DataDir = " " }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"zero min delay", func(c *Config) { c.Custody.MinBlockDelay = 0 }},
		{"bad genesis address", func(c *Config) {
			c.Genesis = []Allocation{{Address: "cst1notanaddress", Balance: "1"}}
		}},
		{"negative genesis balance", func(c *Config) {
			c.Genesis = []Allocation{{Address: testAddress(1), Balance: "-1"}}
		}},
		{"duplicate genesis address", func(c *Config) {
			c.Genesis = []Allocation{{Address: testAddress(1), Balance: "1"}, {Address: testAddress(1), Balance: "2"}}
		}},
	}
	if err := ValidateConfig(Default()); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := ValidateConfig(cfg); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadParsesTelemetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `ChainID = 3

[telemetry]
Endpoint = "collector:4318"
Insecure = true
Headers = "authorization=Bearer abc"
Traces = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Telemetry.Enabled() || !cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		t.Fatalf("unexpected telemetry flags: %+v", cfg.Telemetry)
	}
	if cfg.Telemetry.Endpoint != "collector:4318" || !cfg.Telemetry.Insecure {
		t.Fatalf("unexpected telemetry endpoint: %+v", cfg.Telemetry)
	}
	if Default().Telemetry.Enabled() {
		t.Fatalf("telemetry must be off by default")
	}
}
