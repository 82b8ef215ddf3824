// Package wire implements the canonical, deterministic byte encoding used
// for every value that enters a digest or a signature. The encoding must be
// byte-identical across implementations — it is a wire-level contract.
package wire

import (
	"encoding/binary"

	"github.com/klingnet-chain/node/pkg/types"
)

// Encoder is a write-only byte accumulator. Every value that enters a
// digest or signature is appended through it, emitting a fixed,
// deterministic serialization: integers little-endian, sequences
// concatenated with no length prefix or delimiter (the schema makes the
// boundary unambiguous).
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder, optionally pre-sizing its buffer.
func NewEncoder(sizeHint int) *Encoder {
	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated byte sequence.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// WriteByte appends a single byte.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteUint8 appends a u8.
func (e *Encoder) WriteUint8(v uint8) {
	e.buf = append(e.buf, v)
}

// WriteUint32 appends a u32 little-endian.
func (e *Encoder) WriteUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// WriteUint64 appends a u64 little-endian.
func (e *Encoder) WriteUint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// WriteInt64 appends an i64 little-endian.
func (e *Encoder) WriteInt64(v int64) {
	e.WriteUint64(uint64(v))
}

// WriteRaw appends raw bytes verbatim (used for fixed-width values such as
// addresses, digests and signatures, which carry no length prefix).
func (e *Encoder) WriteRaw(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteAddress appends the 32 raw public-key bytes of an address.
func (e *Encoder) WriteAddress(a types.Address) {
	e.WriteRaw(a[:])
}

// WriteCoin appends a Coin as u64 little-endian.
func (e *Encoder) WriteCoin(c types.Coin) {
	e.WriteUint64(uint64(c))
}

// WriteTimestamp appends a Timestamp as i64 nanoseconds, little-endian.
func (e *Encoder) WriteTimestamp(t types.Timestamp) {
	e.WriteInt64(int64(t))
}

// WriteBlockHeight appends a BlockHeight as u64 little-endian.
func (e *Encoder) WriteBlockHeight(h types.BlockHeight) {
	e.WriteUint64(uint64(h))
}

// WriteDifficulty appends a Difficulty as a single byte.
func (e *Encoder) WriteDifficulty(d types.Difficulty) {
	e.WriteByte(byte(d))
}

// WriteDigest appends the 32 raw bytes of a BlockDigest.
func (e *Encoder) WriteDigest(d types.BlockDigest) {
	e.WriteRaw(d[:])
}

// WriteSignature appends the 64 raw bytes of a Signature.
func (e *Encoder) WriteSignature(s types.Signature) {
	e.WriteRaw(s[:])
}

// Source is implemented by any value that can append its own canonical
// encoding to an Encoder. Digest and signature sources are always built
// through this interface so adding a new encodable value never touches
// the encoder itself.
type Source interface {
	WriteTo(e *Encoder)
}

// Encode runs src.WriteTo against a fresh Encoder and returns the result.
func Encode(src Source) []byte {
	e := NewEncoder(0)
	src.WriteTo(e)
	return e.Bytes()
}
