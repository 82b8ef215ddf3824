package ledger

import (
	"errors"

	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

// Errors returned while replaying a block's transitions into a history.
var (
	ErrDoubleSpending = errors.New("block spends the same input twice")
	ErrUnlisted       = errors.New("block input is not a live transition")
	ErrCollision      = errors.New("block output collides with an existing live transition")
)

// history is a live set of transitions, keyed by signature, built by
// replaying blocks in root-to-tip order.
type history struct {
	utxos map[types.Signature]tx.Transition
}

func newHistory() *history {
	return &history{utxos: make(map[types.Signature]tx.Transition)}
}

func (h *history) isLive(t tx.Transition) bool {
	_, ok := h.utxos[t.Signature()]
	return ok
}

// pushBlock replays one block's transactions against the current set. It
// rejects a block that double-spends one of its own inputs, spends an
// input that is not live, or produces an output colliding with a live one.
// On success the set is atomically advanced to the new state; on failure
// it is left unchanged.
func (h *history) pushBlock(b block.Block) error {
	seen := make(map[types.Signature]struct{})
	for _, t := range b.Transactions {
		for _, in := range t.Inputs {
			if _, ok := seen[in.Signature()]; ok {
				return ErrDoubleSpending
			}
			seen[in.Signature()] = struct{}{}
		}
	}

	next := make(map[types.Signature]tx.Transition, len(h.utxos))
	for sig, t := range h.utxos {
		next[sig] = t
	}

	for _, t := range b.Transactions {
		for _, in := range t.Inputs {
			if _, ok := next[in.Signature()]; !ok {
				return ErrUnlisted
			}
			delete(next, in.Signature())
		}
		for _, out := range t.Outputs {
			if _, ok := next[out.Signature()]; ok {
				return ErrCollision
			}
			next[out.Signature()] = out
		}
	}

	h.utxos = next
	return nil
}

// byHolder returns every live transition received by holder.
func (h *history) byHolder(holder types.Address) []tx.Transition {
	var out []tx.Transition
	for _, t := range h.utxos {
		if t.Receiver() == holder {
			out = append(out, t)
		}
	}
	return out
}
