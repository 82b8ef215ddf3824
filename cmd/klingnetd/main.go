// Klingnet full node daemon.
//
// Usage:
//
//	klingnetd [--mine --address=...] Run node
//	klingnetd --help                 Show help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/klingnet-chain/node/config"
	"github.com/klingnet-chain/node/internal/consensus"
	klog "github.com/klingnet-chain/node/internal/log"
	"github.com/klingnet-chain/node/internal/node"
	"github.com/klingnet-chain/node/internal/storage"
	"github.com/klingnet-chain/node/internal/transport"
	"github.com/klingnet-chain/node/internal/wallet"
	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/types"
	"golang.org/x/term"
)

func main() {
	// ── 1. Load config (defaults → file → flags) ────────────────────────
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Init logger ───────────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(cfg.LogsDir(), "klingnet.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("node")

	// ── 3. Genesis (hardcoded per network, not loaded from a file) ──────
	genesis := config.GenesisFor(cfg.Network)
	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", string(cfg.Network)).
		Uint8("difficulty", genesis.Protocol.InitialDifficulty).
		Msg("starting klingnet node")

	// ── 4. Reward rule from genesis protocol config ──────────────────────
	var reward block.RewardRule
	if genesis.Protocol.HalvingInterval > 0 {
		reward = consensus.HalvingReward(types.Coin(genesis.Protocol.BlockReward), types.BlockHeight(genesis.Protocol.HalvingInterval))
	} else {
		reward = consensus.FixedReward(types.Coin(genesis.Protocol.BlockReward))
	}
	difficulty := genesis.Difficulty()

	// ── 5. Load the miner's key, if mining is enabled ────────────────────
	var minerKey *crypto.PrivateKey
	if cfg.Mining.Enabled {
		minerKey, err = loadMiningKey(cfg.Mining.Address)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Mining.Address).Msg("failed to load mining key")
		}
		defer minerKey.Zero()
		logger.Info().Str("address", minerKey.PublicKey().String()).Msg("mining key loaded")
	}

	// ── 6. Open storage ───────────────────────────────────────────────────
	db, err := storage.NewBadger(cfg.CacheDir())
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CacheDir()).Msg("failed to open database")
	}
	defer db.Close()
	cache := storage.NewCache(db)

	// ── 7. Start the transport ───────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t, err := transport.New(ctx, transport.Config{
		ListenAddr: cfg.P2P.ListenAddr,
		Port:       cfg.P2P.Port,
		Seeds:      cfg.P2P.Seeds,
		NetworkID:  genesis.ChainID,
		NoDiscover: cfg.P2P.NoDiscover,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start transport")
	}
	defer t.Close()

	// ── 8. Build and run the orchestrator ────────────────────────────────
	orchestrator := node.New(t, reward, difficulty, minerKey, cfg.Mining.MineGenesisBlock)
	orchestrator.SetCache(cache)
	orchestrator.Run(ctx)

	logger.Info().
		Bool("mining", cfg.Mining.Enabled).
		Bool("p2p", cfg.P2P.Enabled).
		Msg("node started")

	// ── 9. Wait for shutdown ─────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	orchestrator.Stop()
	cancel()
	logger.Info().Msg("goodbye")
}

// loadMiningKey loads the signing key at path, which names a wallet entry as
// <keystore-dir>/<name>.wallet: the directory becomes the keystore and the
// file's base name (without the .wallet suffix) becomes the wallet name.
func loadMiningKey(path string) (*crypto.PrivateKey, error) {
	if path == "" {
		return nil, fmt.Errorf("mining.address is empty")
	}
	dir := filepath.Dir(path)
	name := strings.TrimSuffix(filepath.Base(path), ".wallet")

	ks, err := wallet.NewKeystore(dir)
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}

	password, err := readPassword("Enter mining key password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return ks.Load(name, password)
}

// readPassword prompts on stderr and reads a password without echoing it.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}
