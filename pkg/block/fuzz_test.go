package block

import (
	"testing"

	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

// FuzzVerifyDifficulty checks that stage X never panics for any
// combination of stated difficulty and expected floor.
func FuzzVerifyDifficulty(f *testing.F) {
	f.Add(uint8(0), uint8(0))
	f.Add(uint8(255), uint8(0))
	f.Add(uint8(0), uint8(255))
	f.Add(uint8(8), uint8(8))

	key, err := crypto.GenerateKey()
	if err != nil {
		f.Fatalf("generate key: %v", err)
	}

	f.Fuzz(func(t *testing.T, stated, expected uint8) {
		gen := tx.OfferGeneration(key, 1)
		coinbase := tx.OfferTransaction(key, nil, []tx.Transition{gen})
		b := Block{
			Height:       0,
			Transactions: []tx.Transaction{coinbase},
			Timestamp:    types.Now(),
			Difficulty:   types.Difficulty(stated),
		}
		_ = b.VerifyDifficulty(types.Difficulty(expected)) // must not panic
	})
}
