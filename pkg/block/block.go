// Package block defines the block type and its six-stage verification
// pipeline (T, TR, U, P, D, X).
package block

import (
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
	"github.com/klingnet-chain/node/pkg/wire"
)

// Witness tracks which of the six independent proof stages a block has
// passed. A block may only enter the ledger once every flag is set.
type Witness struct {
	T  bool // transactions verified themselves (signatures, per-tx invariants)
	TR bool // transaction relation: timestamps, ordering, block-wide conservation
	U  bool // every input is a live UTXO, every output is fresh
	P  bool // links correctly to the previous block
	D  bool // stored digest matches the recomputed digest
	X  bool // difficulty is met and at least the node's expected floor
}

// FullyVerified reports whether every stage has passed.
func (w Witness) FullyVerified() bool {
	return w.T && w.TR && w.U && w.P && w.D && w.X
}

// Block is height, an ordered list of transactions, a creation timestamp, a
// link to its predecessor, the difficulty it was mined at, the nonce that
// satisfied it, and the resulting digest.
type Block struct {
	Height         types.BlockHeight
	Transactions   []tx.Transaction
	Timestamp      types.Timestamp
	PreviousDigest types.BlockDigest
	Difficulty     types.Difficulty
	Nonce          uint64
	Digest         types.BlockDigest
	Witness        Witness
}

// WriteTo appends (height‖transactions‖timestamp‖previous_digest‖difficulty‖nonce).
// Transactions are written without their contractor signatures — the same
// signature-source encoding used when the transaction itself was signed —
// so the block digest commits to what was agreed to, not to any one
// reissuing of the same signature.
func (b Block) WriteTo(e *wire.Encoder) {
	e.WriteBlockHeight(b.Height)
	for _, t := range b.Transactions {
		t.WriteTo(e)
	}
	e.WriteTimestamp(b.Timestamp)
	e.WriteDigest(b.PreviousDigest)
	e.WriteDifficulty(b.Difficulty)
	e.WriteUint64(b.Nonce)
}
