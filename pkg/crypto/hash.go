// Package crypto provides the cryptographic primitives: Ed25519 signatures
// and SHA-256 digests.
package crypto

import (
	"crypto/sha256"

	"github.com/klingnet-chain/node/pkg/types"
)

// Digest computes the SHA-256 digest of data. This is the one hash function
// in the system; there is no Merkle tree and no address derivation step.
// The only digest that enters another digest's input is a block's
// PreviousDigest.
func Digest(data []byte) types.BlockDigest {
	return sha256.Sum256(data)
}
