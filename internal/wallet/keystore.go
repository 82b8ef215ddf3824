package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/types"
)

// keystoreFile is the on-disk JSON format for an encrypted wallet. Each
// wallet holds exactly one signing key, so the address is stored in the
// clear for quick listing while the key itself stays encrypted.
type keystoreFile struct {
	Version       int           `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	Address       types.Address `json:"address"`
	EncryptedSeed []byte        `json:"encrypted_seed"`
}

// Keystore manages encrypted key storage on disk.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// walletPath returns the file path for a wallet by name.
func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// Create derives a signing key from a BIP-39 seed and stores it encrypted
// under name. It returns the wallet's address.
func (ks *Keystore) Create(name string, seed, password []byte, params EncryptionParams) (types.Address, error) {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return types.Address{}, fmt.Errorf("wallet %q already exists", name)
	}

	key, err := KeyFromSeed(seed)
	if err != nil {
		return types.Address{}, fmt.Errorf("derive key: %w", err)
	}

	encrypted, err := Encrypt(key.Serialize(), password, params)
	if err != nil {
		return types.Address{}, fmt.Errorf("encrypt key: %w", err)
	}

	kf := keystoreFile{
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		Address:       key.PublicKey(),
		EncryptedSeed: encrypted,
	}

	if err := ks.writeFile(path, &kf); err != nil {
		return types.Address{}, err
	}
	return key.PublicKey(), nil
}

// Load decrypts a wallet and returns its signing key.
func (ks *Keystore) Load(name string, password []byte) (*crypto.PrivateKey, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return nil, err
	}

	raw, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet: %w", err)
	}

	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("reconstruct key: %w", err)
	}
	return key, nil
}

// Address returns a wallet's address without decrypting its key.
func (ks *Keystore) Address(name string) (types.Address, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return types.Address{}, err
	}
	return kf.Address, nil
}

// List returns the names of all wallet files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("wallet %q not found", name)
	}
	return os.Remove(path)
}

func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
