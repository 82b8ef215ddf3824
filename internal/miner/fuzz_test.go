package miner

import (
	"testing"

	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

// FuzzNewBlockSourceNeverPanics drives NewBlockSource with a single mutated
// transfer and checks only that construction and one TryIntoBlock attempt
// never panic, since most mutations produce a rejected or underflowing
// transaction.
func FuzzNewBlockSourceNeverPanics(f *testing.F) {
	f.Add(uint64(30), uint64(40), uint8(10))
	f.Add(uint64(0), uint64(0), uint8(0))
	f.Add(uint64(1), uint64(1<<40), uint8(255))

	f.Fuzz(func(t *testing.T, inputQty, outputQty uint64, difficulty uint8) {
		miner := mustKey(t)
		sender := mustKey(t)
		receiver := mustKey(t)
		reward := func(types.BlockHeight) types.Coin { return 50 }

		input := tx.OfferTransfer(miner, sender.PublicKey(), types.Coin(inputQty))
		spend := tx.OfferTransfer(sender, receiver.PublicKey(), types.Coin(outputQty))
		spendTx := tx.OfferTransaction(sender, []tx.Transition{input}, []tx.Transition{spend})

		src, err := NewBlockSource(1, []tx.Transaction{spendTx}, types.BlockDigest{}, types.Difficulty(difficulty), 0, miner, reward)
		if err != nil {
			return
		}
		_, _ = src.TryIntoBlock()
	})
}
