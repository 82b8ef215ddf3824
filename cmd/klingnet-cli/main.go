// klingnet-cli is a command-line wallet client. It holds no chain state of
// its own: balance and send both work by joining the same gossip network
// klingnetd nodes use, publishing a request, and waiting for a reply.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/klingnet-chain/node/config"
	"github.com/klingnet-chain/node/internal/transport"
	"github.com/klingnet-chain/node/internal/wallet"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
	"golang.org/x/term"
)

const utxoResponseWait = 3 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	network := "mainnet"
	var seeds string
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--seeds" && len(args) > 1:
			seeds = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--seeds="):
			seeds = args[0][len("--seeds="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	net := config.Mainnet
	if network == "testnet" {
		net = config.Testnet
	}
	genesis := config.GenesisFor(net)
	seedList := parseSeeds(seeds)

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "balance":
		cmdBalance(cmdArgs, genesis.ChainID, seedList)
	case "send":
		cmdSend(cmdArgs, genesis.ChainID, seedList)
	case "wallet":
		cmdWallet(cmdArgs, net)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: klingnet-cli [--network mainnet|testnet] [--seeds addr,addr] <command> [flags]

Commands:
  balance --address PATH
      Print the spendable balance of the address held at PATH.

  send --address PATH --destination ADDR --quantity N --fee N
      Sign and broadcast a transfer from the key at PATH to ADDR.

  wallet create --name NAME --datadir DIR
      Generate a new key under DIR/<network>/keystore/NAME.wallet.

  wallet list --datadir DIR
      List wallet names in DIR/<network>/keystore.

  wallet address --name NAME --datadir DIR
      Print a wallet's address without decrypting its key.
`)
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(args []string, network config.NetworkType) {
	if len(args) < 1 {
		fatal("Usage: klingnet-cli wallet <create|list|address> [flags]")
	}
	switch args[0] {
	case "create":
		cmdWalletCreate(args[1:], network)
	case "list":
		cmdWalletList(args[1:], network)
	case "address":
		cmdWalletAddress(args[1:], network)
	default:
		fatal("Unknown wallet command: %s", args[0])
	}
}

func keystoreDirFlag(fs *flag.FlagSet, network config.NetworkType) *string {
	cfg := config.Default(network)
	return fs.String("datadir", cfg.DataDir, "Data directory (keystore lives at <datadir>/<network>/keystore)")
}

func keystoreFor(dataDir string, network config.NetworkType) *wallet.Keystore {
	cfg := config.Default(network)
	cfg.DataDir = dataDir
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	return ks
}

func cmdWalletCreate(args []string, network config.NetworkType) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	dataDir := keystoreDirFlag(fs, network)
	fs.Parse(args)
	if *name == "" {
		fatal("Usage: klingnet-cli wallet create --name NAME")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	ks := keystoreFor(*dataDir, network)
	addr, err := ks.Create(*name, seed, password, wallet.DefaultParams())
	if err != nil {
		fatal("create wallet: %v", err)
	}

	fmt.Printf("Address:  %s\n", addr.String())
	fmt.Printf("Mnemonic: %s\n", mnemonic)
	fmt.Fprintln(os.Stderr, "\nWrite the mnemonic down; it is not stored on disk.")
}

func cmdWalletList(args []string, network config.NetworkType) {
	fs := flag.NewFlagSet("wallet list", flag.ExitOnError)
	dataDir := keystoreDirFlag(fs, network)
	fs.Parse(args)

	ks := keystoreFor(*dataDir, network)
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	for _, name := range names {
		addr, err := ks.Address(name)
		if err != nil {
			fmt.Printf("%s\t<error: %v>\n", name, err)
			continue
		}
		fmt.Printf("%s\t%s\n", name, addr.String())
	}
}

func cmdWalletAddress(args []string, network config.NetworkType) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	dataDir := keystoreDirFlag(fs, network)
	fs.Parse(args)
	if *name == "" {
		fatal("Usage: klingnet-cli wallet address --name NAME")
	}

	ks := keystoreFor(*dataDir, network)
	addr, err := ks.Address(*name)
	if err != nil {
		fatal("read wallet: %v", err)
	}
	fmt.Println(addr.String())
}

// ── balance ───────────────────────────────────────────────────────────────

func cmdBalance(args []string, chainID string, seeds []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	addressPath := fs.String("address", "", "Path to the keystore entry to query")
	fs.Parse(args)
	if *addressPath == "" {
		fatal("Usage: klingnet-cli balance --address PATH")
	}

	dir, name := splitWalletPath(*addressPath)
	ks, err := wallet.NewKeystore(dir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	addr, err := ks.Address(name)
	if err != nil {
		fatal("read wallet: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), utxoResponseWait+5*time.Second)
	defer cancel()

	t, err := connectTransport(ctx, chainID, seeds)
	if err != nil {
		fatal("connect: %v", err)
	}
	defer t.Close()

	utxos, err := queryUtxos(ctx, t, addr)
	if err != nil {
		fatal("query balance: %v", err)
	}

	var total types.Coin
	for _, u := range utxos {
		sum, err := total.Add(u.Quantity())
		if err != nil {
			fatal("sum balance: %v", err)
		}
		total = sum
	}
	fmt.Printf("%s\n", formatAmount(uint64(total)))
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(args []string, chainID string, seeds []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	addressPath := fs.String("address", "", "Path to the sender's keystore entry")
	destStr := fs.String("destination", "", "Recipient address (hex)")
	quantityStr := fs.String("quantity", "", "Amount to send, e.g. 1.5")
	feeStr := fs.String("fee", "0", "Amount left unreturned as change, paid to the miner")
	fs.Parse(args)

	if *addressPath == "" || *destStr == "" || *quantityStr == "" {
		fatal("Usage: klingnet-cli send --address PATH --destination ADDR --quantity N [--fee N]")
	}

	quantity, err := parseAmount(*quantityStr)
	if err != nil {
		fatal("invalid quantity: %v", err)
	}
	fee, err := parseAmount(*feeStr)
	if err != nil {
		fatal("invalid fee: %v", err)
	}
	destination, err := types.ParseAddress(*destStr)
	if err != nil {
		fatal("invalid destination address: %v", err)
	}

	dir, name := splitWalletPath(*addressPath)
	ks, err := wallet.NewKeystore(dir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	key, err := ks.Load(name, password)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	defer key.Zero()
	sender := key.PublicKey()

	target, err := types.Coin(quantity).Add(types.Coin(fee))
	if err != nil {
		fatal("quantity plus fee overflows: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), utxoResponseWait+5*time.Second)
	defer cancel()

	t, err := connectTransport(ctx, chainID, seeds)
	if err != nil {
		fatal("connect: %v", err)
	}
	defer t.Close()

	utxos, err := queryUtxos(ctx, t, sender)
	if err != nil {
		fatal("query UTXOs: %v", err)
	}

	selection, err := wallet.SelectCoins(utxos, target)
	if err != nil {
		fatal("select coins: %v", err)
	}

	outputs := []tx.Transition{tx.OfferTransfer(key, destination, types.Coin(quantity))}
	if selection.Change > 0 {
		outputs = append(outputs, tx.OfferTransfer(key, sender, selection.Change))
	}

	transaction := tx.OfferTransaction(key, selection.Inputs, outputs)
	if err := transaction.Verify(); err != nil {
		fatal("built an invalid transaction: %v", err)
	}

	payload, err := transport.EncodeTransaction(transaction)
	if err != nil {
		fatal("encode transaction: %v", err)
	}
	if err := t.Publish(ctx, transport.CreateTransaction, payload); err != nil {
		fatal("publish transaction: %v", err)
	}

	fmt.Printf("Sent %s to %s (fee %s)\n", formatAmount(quantity), destination.String(), formatAmount(fee))
}

// ── transport plumbing ───────────────────────────────────────────────────

func connectTransport(ctx context.Context, chainID string, seeds []string) (*transport.PubSub, error) {
	t, err := transport.New(ctx, transport.Config{
		ListenAddr: "0.0.0.0",
		Port:       0,
		Seeds:      seeds,
		NetworkID:  chainID,
		NoDiscover: len(seeds) == 0,
	})
	if err != nil {
		return nil, err
	}
	// Give the host a moment to connect to its seeds/discover peers before
	// a query goes out; there is no explicit "peer connected" signal to
	// wait on here.
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
	}
	return t, nil
}

// queryUtxos publishes a RequestUtxoByAddress and waits for the first
// matching RespondUtxoByAddress within utxoResponseWait.
func queryUtxos(ctx context.Context, t transport.Transport, addr types.Address) ([]tx.Transition, error) {
	subCtx, cancel := context.WithTimeout(ctx, utxoResponseWait)
	defer cancel()

	payloads, err := t.Subscribe(subCtx, transport.RespondUtxoByAddress)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	req, err := transport.EncodeAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	if err := t.Publish(ctx, transport.RequestUtxoByAddress, req); err != nil {
		return nil, fmt.Errorf("publish request: %w", err)
	}

	for {
		select {
		case payload, ok := <-payloads:
			if !ok {
				return nil, fmt.Errorf("no response from the network")
			}
			holder, transitions, err := transport.DecodeUtxoResponse(payload)
			if err != nil {
				continue
			}
			if holder != addr {
				continue
			}
			return transitions, nil
		case <-subCtx.Done():
			return nil, fmt.Errorf("timed out waiting for a response from the network")
		}
	}
}

// ── helpers ───────────────────────────────────────────────────────────────

// splitWalletPath splits a keystore entry path into its containing
// directory and wallet name, matching klingnetd's --address convention.
func splitWalletPath(path string) (dir, name string) {
	dir = filepath.Dir(path)
	name = strings.TrimSuffix(filepath.Base(path), ".wallet")
	return dir, name
}

func parseSeeds(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// formatAmount renders base units as a decimal coin amount.
func formatAmount(units uint64) string {
	whole := units / config.Coin
	frac := units % config.Coin
	return fmt.Sprintf("%d.%012d", whole, frac)
}

// parseAmount converts a decimal coin amount ("1.5") into base units.
func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount")
	}

	parts := strings.SplitN(s, ".", 2)

	whole, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid whole part: %w", err)
	}

	var frac uint64
	if len(parts) == 2 {
		fracStr := parts[1]
		if len(fracStr) > config.Decimals {
			return 0, fmt.Errorf("too many decimal places (max %d)", config.Decimals)
		}
		fracStr = fracStr + strings.Repeat("0", config.Decimals-len(fracStr))
		frac, err = strconv.ParseUint(fracStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid fractional part: %w", err)
		}
	}

	if whole > math.MaxUint64/config.Coin {
		return 0, fmt.Errorf("amount too large")
	}
	result := whole * config.Coin
	if result > math.MaxUint64-frac {
		return 0, fmt.Errorf("amount too large")
	}
	return result + frac, nil
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
