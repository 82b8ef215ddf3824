package consensus

import (
	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/types"
)

// FixedReward returns a block.RewardRule that pays the same amount at every
// height. This is the node's default: the core treats R as an externally
// supplied rule (a per-height schedule is equally valid) and never assumes
// a particular curve.
func FixedReward(amount types.Coin) block.RewardRule {
	return func(types.BlockHeight) types.Coin {
		return amount
	}
}

// HalvingReward returns a block.RewardRule that pays initial coin per
// block until height interval, then halves every interval blocks
// thereafter, floored at zero. interval of 0 disables halving (equivalent
// to FixedReward(initial)).
func HalvingReward(initial types.Coin, interval types.BlockHeight) block.RewardRule {
	return func(height types.BlockHeight) types.Coin {
		if interval == 0 {
			return initial
		}
		halvings := uint64(height) / uint64(interval)
		if halvings >= 64 {
			return 0
		}
		return types.Coin(uint64(initial) >> halvings)
	}
}
