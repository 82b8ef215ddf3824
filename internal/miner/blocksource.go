// Package miner assembles candidate blocks and searches for a
// proof-of-work nonce.
package miner

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
	"github.com/klingnet-chain/node/pkg/wire"
)

// ErrRewardUnderflow is returned when the supplied transactions' outputs
// already exceed R(height) plus their own inputs, leaving nothing (or a
// negative amount) for the coinbase.
var ErrRewardUnderflow = errors.New("block reward underflows: transaction outputs exceed reward plus inputs")

// BlockSource assembles a candidate block's fixed content once, then lets
// the caller search the nonce space by repeatedly calling SetNonce and
// TryIntoBlock. The canonical encoding of every field but the nonce is
// computed up front so each attempt costs one 8-byte append and one hash.
type BlockSource struct {
	height         types.BlockHeight
	transactions   []tx.Transaction
	timestamp      types.Timestamp
	previousDigest types.BlockDigest
	difficulty     types.Difficulty
	nonce          uint64
	digestPrefix   []byte
}

// NewBlockSource computes gen_qty = R(height) + Σ inputs.qty − Σ
// outputs.qty over verifiedTxs, builds and self-verifies a coinbase
// transaction paying gen_qty to rewardKey's own address, appends it to
// verifiedTxs, stably sorts the whole set by non-decreasing timestamp,
// stamps the block timestamp as now, and precomputes the digest prefix.
func NewBlockSource(
	height types.BlockHeight,
	verifiedTxs []tx.Transaction,
	previousDigest types.BlockDigest,
	difficulty types.Difficulty,
	seedNonce uint64,
	rewardKey *crypto.PrivateKey,
	reward block.RewardRule,
) (*BlockSource, error) {
	var inputSum, outputSum types.Coin
	var err error
	for _, t := range verifiedTxs {
		for _, in := range t.Inputs {
			if inputSum, err = inputSum.Add(in.Quantity()); err != nil {
				return nil, fmt.Errorf("sum inputs: %w", err)
			}
		}
		for _, out := range t.Outputs {
			if outputSum, err = outputSum.Add(out.Quantity()); err != nil {
				return nil, fmt.Errorf("sum outputs: %w", err)
			}
		}
	}

	withReward, err := reward(height).Add(inputSum)
	if err != nil {
		return nil, fmt.Errorf("reward plus inputs: %w", err)
	}
	genQty, err := withReward.Sub(outputSum)
	if err != nil {
		return nil, ErrRewardUnderflow
	}

	gen := tx.OfferGeneration(rewardKey, genQty)
	coinbase := tx.OfferTransaction(rewardKey, nil, []tx.Transition{gen})
	if err := coinbase.Verify(); err != nil {
		return nil, fmt.Errorf("coinbase self-verify: %w", err)
	}

	all := make([]tx.Transaction, 0, len(verifiedTxs)+1)
	all = append(all, verifiedTxs...)
	all = append(all, coinbase)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	timestamp := types.Now()

	e := wire.NewEncoder(0)
	e.WriteBlockHeight(height)
	for _, t := range all {
		t.WriteTo(e)
	}
	e.WriteTimestamp(timestamp)
	e.WriteDigest(previousDigest)
	e.WriteDifficulty(difficulty)

	return &BlockSource{
		height:         height,
		transactions:   all,
		timestamp:      timestamp,
		previousDigest: previousDigest,
		difficulty:     difficulty,
		nonce:          seedNonce,
		digestPrefix:   e.Bytes(),
	}, nil
}

// SetNonce overwrites the nonce for the next TryIntoBlock attempt.
func (s *BlockSource) SetNonce(nonce uint64) {
	s.nonce = nonce
}

// Nonce returns the nonce that will be tried next.
func (s *BlockSource) Nonce() uint64 {
	return s.nonce
}

// TryIntoBlock hashes digestPrefix‖nonce and checks it against the
// difficulty. On success it returns a block with stage T already set
// (every transaction was verified before being offered to NewBlockSource)
// and every other stage Yet, along with true. On failure it returns the
// zero block and false; the source is left ready for another SetNonce.
func (s *BlockSource) TryIntoBlock() (block.Block, bool) {
	buf := make([]byte, len(s.digestPrefix)+8)
	copy(buf, s.digestPrefix)
	binary.LittleEndian.PutUint64(buf[len(s.digestPrefix):], s.nonce)
	digest := crypto.Digest(buf)

	if !s.difficulty.Verify(digest) {
		return block.Block{}, false
	}

	b := block.Block{
		Height:         s.height,
		Transactions:   s.transactions,
		Timestamp:      s.timestamp,
		PreviousDigest: s.previousDigest,
		Difficulty:     s.difficulty,
		Nonce:          s.nonce,
		Digest:         digest,
	}
	b.Witness.T = true
	return b, true
}
