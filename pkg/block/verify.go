package block

import (
	"errors"
	"fmt"

	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
	"github.com/klingnet-chain/node/pkg/wire"
)

// Stage errors. Each verification method below fails with exactly one of
// these (transaction failures are wrapped, not replaced).
var (
	ErrTransactionTimestamp   = errors.New("block contains a transaction newer than itself, or transactions are not sorted by timestamp")
	ErrTransactionQuantity    = errors.New("block inputs plus reward do not equal block outputs")
	ErrUtxo                   = errors.New("block contains a transfer that is not a live UTXO, or a collision with an existing one")
	ErrChain                  = errors.New("block is isolated from the chain")
	ErrDigest                 = errors.New("digest mismatch")
	ErrInsufficientDifficulty = errors.New("block difficulty is below the expected floor")
	ErrPoWFailure             = errors.New("proof-of-work verification failed")
	ErrStageOutOfOrder        = errors.New("stage U requires T and TR to already be verified")
)

// RewardRule computes the block-reward coin issued at a given height. It is
// supplied by the caller (consensus), never hard-coded here.
type RewardRule func(types.BlockHeight) types.Coin

// UTXOJudge reports whether every input in txs is currently a live UTXO and
// every output is not yet present. Supplied by the ledger.
type UTXOJudge func(txs []tx.Transaction) bool

// DigestLookup returns the digest recorded at a height, if any.
type DigestLookup func(types.BlockHeight) (types.BlockDigest, bool)

// TimestampLookup returns the timestamp recorded at a height, if any.
type TimestampLookup func(types.BlockHeight) (types.Timestamp, bool)

// VerifyTransactionItself is stage T: each transaction verifies itself
// (signatures and the per-transaction invariants of package tx).
func (b *Block) VerifyTransactionItself() error {
	for i, t := range b.Transactions {
		if err := t.Verify(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	b.Witness.T = true
	return nil
}

// VerifyTransactionRelation is stage TR: every transaction's timestamp is no
// later than the block's, transactions are sorted by non-decreasing
// timestamp, and the whole block's inputs plus the reward equal its
// outputs.
func (b *Block) VerifyTransactionRelation(reward RewardRule) error {
	var lastTimestamp types.Timestamp
	for i, t := range b.Transactions {
		if t.Timestamp.After(b.Timestamp) {
			return ErrTransactionTimestamp
		}
		if i > 0 && t.Timestamp.Before(lastTimestamp) {
			return ErrTransactionTimestamp
		}
		lastTimestamp = t.Timestamp
	}

	var inputSum, outputSum types.Coin
	var err error
	for _, t := range b.Transactions {
		for _, in := range t.Inputs {
			if inputSum, err = inputSum.Add(in.Quantity()); err != nil {
				return ErrTransactionQuantity
			}
		}
		for _, out := range t.Outputs {
			if outputSum, err = outputSum.Add(out.Quantity()); err != nil {
				return ErrTransactionQuantity
			}
		}
	}
	withReward, err := inputSum.Add(reward(b.Height))
	if err != nil {
		return ErrTransactionQuantity
	}
	if withReward != outputSum {
		return ErrTransactionQuantity
	}

	b.Witness.TR = true
	return nil
}

// VerifyUTXO is stage U: delegates to an external UTXO oracle. Requires T
// and TR to already be verified.
func (b *Block) VerifyUTXO(judge UTXOJudge) error {
	if !b.Witness.T || !b.Witness.TR {
		return ErrStageOutOfOrder
	}
	if !judge(b.Transactions) {
		return ErrUtxo
	}
	b.Witness.U = true
	return nil
}

// VerifyPreviousBlock is stage P: the genesis block (no previous height)
// always passes; any other block must link to a previous height whose
// recorded digest matches PreviousDigest and whose recorded timestamp
// precedes this block's own timestamp.
func (b *Block) VerifyPreviousBlock(digestOf DigestLookup, timestampOf TimestampLookup) error {
	prevHeight, ok := b.Height.Previous()
	if !ok {
		b.Witness.P = true
		return nil
	}

	digest, ok := digestOf(prevHeight)
	if !ok {
		return ErrChain
	}
	timestamp, ok := timestampOf(prevHeight)
	if !ok {
		return ErrChain
	}
	if digest != b.PreviousDigest {
		return ErrChain
	}
	if !timestamp.Before(b.Timestamp) {
		return ErrChain
	}

	b.Witness.P = true
	return nil
}

// VerifyDigest is stage D: the stored digest must equal the digest
// recomputed from the block's own canonical encoding.
func (b *Block) VerifyDigest() error {
	recomputed := crypto.Digest(wire.Encode(*b))
	if recomputed != b.Digest {
		return ErrDigest
	}
	b.Witness.D = true
	return nil
}

// VerifyDifficulty is stage X: the block's stated difficulty must meet or
// exceed the node's expected floor, and the digest must actually satisfy
// that floor's leading-zero-bit requirement.
func (b *Block) VerifyDifficulty(expected types.Difficulty) error {
	if b.Difficulty < expected {
		return ErrInsufficientDifficulty
	}
	if !expected.Verify(b.Digest) {
		return ErrPoWFailure
	}
	b.Witness.X = true
	return nil
}
