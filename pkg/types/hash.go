// Package types defines core primitive types for the klingnet blockchain.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DigestSize is the length of a block digest in bytes (SHA-256 output).
const DigestSize = 32

// BlockDigest is the 32-byte SHA-256 output identifying a block.
type BlockDigest [DigestSize]byte

// IsZero returns true if the digest is all zeros. A zero digest marks the
// absence of a previous block (genesis).
func (d BlockDigest) IsZero() bool {
	return d == BlockDigest{}
}

// String returns the hex-encoded digest.
func (d BlockDigest) String() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns a copy of the digest as a byte slice.
func (d BlockDigest) Bytes() []byte {
	b := make([]byte, DigestSize)
	copy(b, d[:])
	return b
}

// MarshalJSON encodes the digest as a hex string.
func (d BlockDigest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a hex string into a digest.
func (d *BlockDigest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = BlockDigest{}
		return nil
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid digest hex: %w", err)
	}
	if len(decoded) != DigestSize {
		return fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(decoded))
	}
	copy(d[:], decoded)
	return nil
}

// HexToDigest converts a hex string to a BlockDigest.
func HexToDigest(s string) (BlockDigest, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return BlockDigest{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != DigestSize {
		return BlockDigest{}, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(b))
	}
	var d BlockDigest
	copy(d[:], b)
	return d, nil
}

// SignatureSize is the length of an Ed25519 signature in bytes.
const SignatureSize = 64

// Signature is a 64-byte Ed25519 signature.
type Signature [SignatureSize]byte

// IsZero reports whether the signature is all zeros (never a valid signature).
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// String returns the hex-encoded signature.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// Bytes returns a copy of the signature as a byte slice.
func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureSize)
	copy(b, s[:])
	return b
}

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(str)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(decoded) != SignatureSize {
		return fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(decoded))
	}
	copy(s[:], decoded)
	return nil
}

// SignatureFromBytes copies b into a Signature. b must be exactly SignatureSize long.
func SignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureSize {
		return s, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(b))
	}
	copy(s[:], b)
	return s, nil
}
