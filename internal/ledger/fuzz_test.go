package ledger

import (
	"testing"

	"github.com/klingnet-chain/node/pkg/types"
)

// FuzzEntryNeverPanics drives Entry/VerifyBlock with structurally-mutated
// clones of a real two-block chain and checks only that neither call ever
// panics, since most mutations make the block outright invalid.
func FuzzEntryNeverPanics(f *testing.F) {
	f.Add(uint64(0), uint8(0xaa))
	f.Add(uint64(1), uint8(0x00))
	f.Add(uint64(999), uint8(0xff))

	f.Fuzz(func(t *testing.T, heightDelta uint64, digestByte uint8) {
		l := New()
		miner := mustKey(t)
		genesis := mustVerified(t, l, genesisBlock(t, miner, 50))
		if err := l.Entry(genesis); err != nil {
			t.Fatalf("Entry genesis: %v", err)
		}

		receiver := mustKey(t)
		child := childBlock(t, miner, genesis, genesis.Transactions[0].Outputs[0], receiver.PublicKey(), 50)
		child.Height = child.Height + types.BlockHeight(heightDelta)
		child.PreviousDigest[0] = digestByte

		_, _ = l.VerifyBlock(child) // must not panic regardless of mutation
	})
}
