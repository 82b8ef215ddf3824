package ledger

import (
	"fmt"

	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

// VerifyBlock performs the two stages that only the ledger can judge: P
// (does this block actually link to a node in the tree, at the right
// height) and U (is every input live and every output fresh, given the
// history of the branch being extended). b must already have stages T, TR,
// and D verified (the caller runs those against its own rules before
// offering the block here); this returns ErrStageOutOfOrder otherwise. On
// success it returns b with P and U also set, ready for Entry.
func (l *Ledger) VerifyBlock(b block.Block) (block.Block, error) {
	if !b.Witness.T || !b.Witness.TR || !b.Witness.D {
		return block.Block{}, block.ErrStageOutOfOrder
	}

	_, hasPrev := b.Height.Previous()
	parent, parentFound := l.nodeByDigest(b.PreviousDigest)

	if !hasPrev && parentFound {
		// A genesis candidate must not name an existing node as its parent.
		return block.Block{}, block.ErrChain
	}

	digestOf := func(h types.BlockHeight) (types.BlockDigest, bool) {
		if !parentFound || parent.block.Height != h {
			return types.BlockDigest{}, false
		}
		return parent.block.Digest, true
	}
	timestampOf := func(h types.BlockHeight) (types.Timestamp, bool) {
		if !parentFound || parent.block.Height != h {
			return 0, false
		}
		return parent.block.Timestamp, true
	}
	if err := b.VerifyPreviousBlock(digestOf, timestampOf); err != nil {
		return block.Block{}, err
	}

	var branchTip types.BlockDigest
	if parentFound {
		branchTip = parent.block.Digest
	}
	h, err := l.replayTo(branchTip)
	if err != nil {
		return block.Block{}, fmt.Errorf("replay branch history: %w", err)
	}

	judge := func(txs []tx.Transaction) bool {
		for _, t := range txs {
			for _, in := range t.Inputs {
				if !h.isLive(in) {
					return false
				}
			}
			for _, out := range t.Outputs {
				if h.isLive(out) {
					return false
				}
			}
		}
		return true
	}
	if err := b.VerifyUTXO(judge); err != nil {
		return block.Block{}, err
	}

	return b, nil
}
