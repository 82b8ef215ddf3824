package crypto

import (
	"crypto/ed25519"
	"fmt"

	"github.com/klingnet-chain/node/pkg/types"
)

// Signer signs messages with a secret address using Ed25519.
type Signer interface {
	// Sign produces an Ed25519 signature over an arbitrary-length message.
	Sign(message []byte) types.Signature
	// PublicKey returns the address derived from this key.
	PublicKey() types.Address
}

// Verifier verifies Ed25519 signatures against an address.
type Verifier interface {
	Verify(address types.Address, message []byte, signature types.Signature) bool
}

// PrivateKey wraps an Ed25519 secret key. Its public half, serialized raw, is
// the holder's Address; there is no separate pubkey-hash or encoding step.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// GenerateKey creates a new random Ed25519 private key.
func GenerateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte Ed25519 seed.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.SeedSize {
		return nil, fmt.Errorf("private key seed must be %d bytes, got %d", ed25519.SeedSize, len(b))
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(b)}, nil
}

// Sign produces an Ed25519 signature over message. Ed25519 signing is
// deterministic and cannot fail given a valid key.
func (pk *PrivateKey) Sign(message []byte) types.Signature {
	raw := ed25519.Sign(pk.key, message)
	var sig types.Signature
	copy(sig[:], raw)
	return sig
}

// PublicKey returns the Address derived from this key: its raw 32-byte
// Ed25519 public key.
func (pk *PrivateKey) PublicKey() types.Address {
	var addr types.Address
	copy(addr[:], pk.key.Public().(ed25519.PublicKey))
	return addr
}

// Serialize returns the 32-byte seed this key was generated or loaded from.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Seed()
}

// Zero overwrites the private key memory.
func (pk *PrivateKey) Zero() {
	for i := range pk.key {
		pk.key[i] = 0
	}
}

// VerifySignature checks an Ed25519 signature against a message and an
// address (the raw public key). Returns false on any malformed input rather
// than an error, since verification is always a yes/no question here.
func VerifySignature(address types.Address, message []byte, signature types.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(address[:]), message, signature[:])
}

// Ed25519Verifier implements the Verifier interface.
type Ed25519Verifier struct{}

// Verify checks an Ed25519 signature against a message and an address.
func (v Ed25519Verifier) Verify(address types.Address, message []byte, signature types.Signature) bool {
	return VerifySignature(address, message, signature)
}
