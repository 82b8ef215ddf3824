// Package consensus holds the difficulty-retargeting pacer and block-reward
// rule used by the node orchestrator, neither of which belongs in the
// verification pipeline itself: both are supplied by the caller to
// pkg/block's stage methods, never baked into them.
package consensus

import "github.com/klingnet-chain/node/pkg/types"

// DifficultyAt pairs a block's difficulty with its timestamp, in chain
// order (oldest first).
type DifficultyAt struct {
	Difficulty types.Difficulty
	Timestamp  types.Timestamp
}

// Pacemaker suggests the next block's difficulty from the last three
// entries of a chain. It is a standalone heuristic: nothing in this
// module calls it automatically, and the node orchestrator defaults to a
// fixed expected difficulty instead of wiring it into BlockIntake or
// Miner (retargeting policy is an external, operator-configured concern).
type Pacemaker struct {
	// Easiest is the floor difficulty Suggest never eases below.
	Easiest types.Difficulty
}

// Suggest returns Easiest when fewer than three entries are available (no
// signal yet). Otherwise it compares the two most recent inter-block
// gaps: if the older gap ran more than twice as long as the newer one,
// raise by one; if the older gap ran less than half as long, ease by one
// (never below Easiest); otherwise hold at the latest entry's difficulty.
func (p Pacemaker) Suggest(history []DifficultyAt) types.Difficulty {
	n := len(history)
	if n < 3 {
		return p.Easiest
	}

	oldest, middle, latest := history[n-3], history[n-2], history[n-1]
	gapOld := middle.Timestamp - oldest.Timestamp
	gapNew := latest.Timestamp - middle.Timestamp

	switch {
	case gapOld > gapNew+gapNew:
		return latest.Difficulty.Raise(1)
	case gapOld+gapOld < gapNew:
		if eased := latest.Difficulty.Ease(1); eased > p.Easiest {
			return eased
		}
		return p.Easiest
	default:
		return latest.Difficulty
	}
}
