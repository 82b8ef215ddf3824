package wallet

import (
	"fmt"

	"github.com/klingnet-chain/node/pkg/crypto"
)

// KeySeedSize is the length of the Ed25519 seed used as a wallet's signing
// key. There is no BIP-44 derivation tree: a wallet file holds exactly one
// key, taken from the leading bytes of its BIP-39 seed.
const KeySeedSize = 32

// KeyFromSeed derives a wallet's signing key from a BIP-39 seed produced by
// SeedFromMnemonic. The same mnemonic and passphrase always yield the same
// key.
func KeyFromSeed(seed []byte) (*crypto.PrivateKey, error) {
	if len(seed) < KeySeedSize {
		return nil, fmt.Errorf("seed must be at least %d bytes, got %d", KeySeedSize, len(seed))
	}
	return crypto.PrivateKeyFromBytes(seed[:KeySeedSize])
}
