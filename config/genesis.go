package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/types"
)

// =============================================================================
// Protocol Rules (immutable, defined in genesis)
// These MUST match across all nodes or the network forks.
// =============================================================================

// Denomination constants. 1 coin = 10^12 base units. All on-chain values
// (types.Coin) are already in base units; these constants only exist to
// translate a human-typed amount at the CLI boundary.
const (
	Decimals  = 12
	Coin      = 1_000_000_000_000 // 10^12 base units per coin
	MilliCoin = 1_000_000_000     // 10^9
	MicroCoin = 1_000_000         // 10^6
)

// Genesis holds the genesis block's protocol rules. It is immutable after
// chain launch: every node must load an identical genesis or consensus
// breaks, which is why Hash exists below.
type Genesis struct {
	ChainID   string `json:"chain_id"`
	ChainName string `json:"chain_name"`
	Timestamp uint64 `json:"timestamp"`
	ExtraData string `json:"extra_data,omitempty"`

	Protocol ProtocolConfig `json:"protocol"`
}

// ProtocolConfig holds consensus-critical rules every node must agree on.
type ProtocolConfig struct {
	// BlockTime is the target number of seconds between blocks. Informational
	// only here: this design's difficulty is fixed per genesis rather than
	// retargeted at runtime (internal/consensus.Pacemaker exists but is not
	// wired in), so BlockTime documents the intended cadence without driving
	// any code path.
	BlockTime int `json:"block_time"`

	// InitialDifficulty is the leading-zero-bit floor every block's digest
	// must clear (types.Difficulty.Verify).
	InitialDifficulty uint8 `json:"initial_difficulty"`

	// BlockReward is the coin issued to the miner's coinbase at height 0.
	// Reward R(height) is internal/consensus.FixedReward(BlockReward) unless
	// HalvingInterval is set, in which case it is
	// internal/consensus.HalvingReward(BlockReward, HalvingInterval).
	BlockReward uint64 `json:"block_reward"`

	// HalvingInterval is the number of blocks between reward halvings.
	// Zero disables halving.
	HalvingInterval uint64 `json:"halving_interval,omitempty"`
}

// =============================================================================
// Pre-defined genesis configurations
// =============================================================================

// MainnetGenesis returns the mainnet genesis configuration.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:   "klingnet-mainnet-1",
		ChainName: "Klingnet Mainnet",
		Timestamp: 1770734103, // 2026-02-10
		ExtraData: "Klingnet Genesis",
		Protocol: ProtocolConfig{
			BlockTime:         30,
			InitialDifficulty: 20,
			BlockReward:       uint64(20 * MilliCoin),
			HalvingInterval:   2_100_000,
		},
	}
}

// TestnetGenesis returns the testnet genesis configuration: a much lower
// difficulty floor so a single laptop can find blocks at a usable rate, and
// no halving so test amounts stay predictable.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "klingnet-testnet-1"
	g.ChainName = "Klingnet Testnet"
	g.ExtraData = "Klingnet Testnet Genesis"
	g.Protocol.InitialDifficulty = 8
	g.Protocol.HalvingInterval = 0
	return g
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return TestnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads a genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}
	return nil
}

// Validate checks that the genesis configuration is well-formed.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if g.Protocol.BlockTime <= 0 {
		return fmt.Errorf("block_time must be positive")
	}
	if g.Protocol.BlockReward == 0 {
		return fmt.Errorf("block_reward must be positive")
	}
	if g.Protocol.InitialDifficulty > 255 {
		return fmt.Errorf("initial_difficulty must fit in a byte")
	}
	return nil
}

// Difficulty returns the genesis difficulty as a types.Difficulty.
func (g *Genesis) Difficulty() types.Difficulty {
	return types.Difficulty(g.Protocol.InitialDifficulty)
}

// Hash returns the SHA-256 digest of the genesis configuration's canonical
// JSON encoding. Two nodes with the same Hash agree on every consensus rule;
// a mismatch here means the nodes cannot share a chain.
func (g *Genesis) Hash() (types.BlockDigest, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.BlockDigest{}, err
	}
	return crypto.Digest(data), nil
}
