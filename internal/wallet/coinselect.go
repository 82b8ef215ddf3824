package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no UTXOs available")
)

// CoinSelection holds the result of coin selection against a wallet's live
// transitions (the UTXOs reported for an address by RespondUtxoByAddress).
type CoinSelection struct {
	Inputs []tx.Transition // Selected transitions to spend.
	Total  types.Coin      // Sum of selected input quantities.
	Change types.Coin      // Total - target: returned to the spender.
}

// SelectCoins chooses UTXOs to fund a spend of the given target amount
// (quantity plus any fee, since the fee here is just unreturned change: the
// surplus of inputs over outputs is paid to the miner via the block's
// generation output). It tries two strategies and returns whichever leaves
// less change:
//  1. Single UTXO: the smallest single UTXO that covers the target.
//  2. Largest-first accumulation: greedily adds the largest UTXOs.
func SelectCoins(utxos []tx.Transition, target types.Coin) (*CoinSelection, error) {
	if len(utxos) == 0 {
		return nil, ErrNoUTXOs
	}
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	candidates := make([]tx.Transition, 0, len(utxos))
	for _, u := range utxos {
		if u.Quantity() > 0 {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoUTXOs
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Quantity() < candidates[j].Quantity()
	})

	var single *CoinSelection
	for _, u := range candidates {
		if u.Quantity() >= target {
			change, _ := u.Quantity().Sub(target)
			single = &CoinSelection{Inputs: []tx.Transition{u}, Total: u.Quantity(), Change: change}
			break // ascending order: first match is smallest.
		}
	}

	var accum *CoinSelection
	var selected []tx.Transition
	var total types.Coin
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		sum, err := total.Add(candidates[i].Quantity())
		if err != nil {
			return nil, fmt.Errorf("accumulate selection: %w", err)
		}
		total = sum
		if total >= target {
			change, _ := total.Sub(target)
			accum = &CoinSelection{Inputs: selected, Total: total, Change: change}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		have, err := types.SumCoins(quantities(candidates)...)
		if err != nil {
			have = 0
		}
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, have, target)
	}
}

func quantities(utxos []tx.Transition) []types.Coin {
	out := make([]types.Coin, len(utxos))
	for i, u := range utxos {
		out[i] = u.Quantity()
	}
	return out
}
