// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol rules: defined in genesis, immutable, must match across all
//     nodes (see genesis.go)
//   - Node settings: runtime configuration, can vary per node (Config below)
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration. These settings can vary
// between nodes without breaking consensus — consensus-critical rules live
// in Genesis instead.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// P2P networking (the transport's own startup settings)
	P2P P2PConfig

	// Mining (operational — whether and where to mine, not consensus rules)
	Mining MiningConfig

	// Logging
	Log LogConfig
}

// P2PConfig holds peer-to-peer network settings, mapped directly onto
// internal/transport.Config at startup.
type P2PConfig struct {
	Enabled    bool     `conf:"p2p.enabled"`
	ListenAddr string   `conf:"p2p.listen"`
	Port       int      `conf:"p2p.port"`
	Seeds      []string `conf:"p2p.seeds"`
	NoDiscover bool     `conf:"p2p.nodiscover"`
}

// MiningConfig holds block production settings for this node. The coinbase
// address is never configured separately: a Generation transition is signed
// by its own receiver (pkg/tx.OfferGeneration), so the reward address is
// always whatever address Address's keystore entry holds.
type MiningConfig struct {
	Enabled          bool   `conf:"mining.enabled"`
	Address          string `conf:"mining.address"`           // path to the miner's encrypted keystore entry
	MineGenesisBlock bool   `conf:"mining.minegenesisblock"`  // opt-in: mine height 0 if the ledger is empty
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet
//	macOS:   ~/Library/Application Support/Klingnet
//	Windows: %APPDATA%\Klingnet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingnet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingnet")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingnet")
	default:
		return filepath.Join(home, ".klingnet")
	}
}

// ChainDataDir returns the network-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// CacheDir returns the block/tip cache directory (internal/storage).
func (c *Config) CacheDir() string {
	return filepath.Join(c.ChainDataDir(), "cache")
}

// KeystoreDir returns the keystore directory (internal/wallet).
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.ChainDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet.conf")
}

// GenesisFile returns the genesis file path.
func (c *Config) GenesisFile() string {
	return filepath.Join(c.ChainDataDir(), "genesis.json")
}
