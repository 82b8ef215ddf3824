// klingnet-keytool creates and reads the encrypted key files klingnetd and
// klingnet-cli load their signing keys from. A key file is a keystore
// directory entry named <name>.wallet: a 24-word BIP-39 mnemonic generates
// the seed, and create mode prints both the derived address and the
// mnemonic exactly once, since the mnemonic is never stored on disk.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/klingnet-chain/node/internal/wallet"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	mode := os.Args[1]
	path := os.Args[2]

	switch mode {
	case "create":
		cmdCreate(path)
	case "read":
		cmdRead(path)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n\n", mode)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: klingnet-keytool <create|read> PATH

  create PATH    Generate a new key, encrypt it under PATH, and print its
                 address and recovery mnemonic.
  read PATH      Print the address stored at PATH without decrypting the key.

PATH names a keystore entry as <directory>/<name>.wallet, e.g.
~/.klingnet/mainnet/keystore/miner.wallet.`)
}

func cmdCreate(path string) {
	dir, name := splitWalletPath(path)
	ks, err := wallet.NewKeystore(dir)
	if err != nil {
		fatal("open keystore: %v", err)
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}

	password, err := readPassword("Enter password to encrypt the key: ")
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

	addr, err := ks.Create(name, seed, password, wallet.DefaultParams())
	if err != nil {
		fatal("create wallet: %v", err)
	}

	fmt.Printf("Address:  %s\n", addr.String())
	fmt.Printf("Mnemonic: %s\n", mnemonic)
	fmt.Fprintln(os.Stderr, "\nWrite the mnemonic down and store it somewhere safe. It is not saved to disk and cannot be recovered if lost.")
}

func cmdRead(path string) {
	dir, name := splitWalletPath(path)
	ks, err := wallet.NewKeystore(dir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	addr, err := ks.Address(name)
	if err != nil {
		fatal("read wallet: %v", err)
	}
	fmt.Println(addr.String())
}

// splitWalletPath splits a keystore entry path into its containing
// directory and wallet name, accepting the .wallet suffix or not.
func splitWalletPath(path string) (dir, name string) {
	dir = filepath.Dir(path)
	name = strings.TrimSuffix(filepath.Base(path), ".wallet")
	return dir, name
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
