package block

import (
	"testing"

	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
	"github.com/klingnet-chain/node/pkg/wire"
)

func zeroReward(types.BlockHeight) types.Coin { return 0 }

func fixedReward(r types.Coin) RewardRule {
	return func(types.BlockHeight) types.Coin { return r }
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

// buildGenesis builds a one-transaction, pure-coinbase genesis block sealed
// at the given difficulty, with a valid digest and nonce found by brute
// force (the test difficulty is kept tiny so this terminates quickly).
func buildGenesis(t *testing.T, miner *crypto.PrivateKey, reward types.Coin, difficulty types.Difficulty) Block {
	t.Helper()
	gen := tx.OfferGeneration(miner, reward)
	coinbase := tx.OfferTransaction(miner, nil, []tx.Transition{gen})

	b := Block{
		Height:       0,
		Transactions: []tx.Transaction{coinbase},
		Timestamp:    types.Now(),
		Difficulty:   difficulty,
	}

	for nonce := uint64(0); ; nonce++ {
		b.Nonce = nonce
		digest := crypto.Digest(wire.Encode(b))
		if difficulty.Verify(digest) {
			b.Digest = digest
			return b
		}
		if nonce > 1_000_000 {
			t.Fatal("failed to find a nonce satisfying test difficulty")
		}
	}
}

func TestVerifyTransactionItself(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)

	if err := b.VerifyTransactionItself(); err != nil {
		t.Fatalf("VerifyTransactionItself: %v", err)
	}
	if !b.Witness.T {
		t.Fatal("expected T flag set")
	}
}

func TestVerifyTransactionRelation(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)

	if err := b.VerifyTransactionRelation(fixedReward(50)); err != nil {
		t.Fatalf("VerifyTransactionRelation: %v", err)
	}
	if !b.Witness.TR {
		t.Fatal("expected TR flag set")
	}
}

func TestVerifyTransactionRelationWrongReward(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)

	if err := b.VerifyTransactionRelation(fixedReward(51)); err != ErrTransactionQuantity {
		t.Fatalf("expected ErrTransactionQuantity, got %v", err)
	}
}

func TestVerifyUTXORequiresTAndTR(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)

	err := b.VerifyUTXO(func([]tx.Transaction) bool { return true })
	if err != ErrStageOutOfOrder {
		t.Fatalf("expected ErrStageOutOfOrder, got %v", err)
	}
}

func TestVerifyUTXOAfterPrerequisites(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)
	_ = b.VerifyTransactionItself()
	_ = b.VerifyTransactionRelation(fixedReward(50))

	if err := b.VerifyUTXO(func([]tx.Transaction) bool { return true }); err != nil {
		t.Fatalf("VerifyUTXO: %v", err)
	}
	if !b.Witness.U {
		t.Fatal("expected U flag set")
	}
}

func TestVerifyPreviousBlockGenesis(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)

	err := b.VerifyPreviousBlock(
		func(types.BlockHeight) (types.BlockDigest, bool) { return types.BlockDigest{}, false },
		func(types.BlockHeight) (types.Timestamp, bool) { return 0, false },
	)
	if err != nil {
		t.Fatalf("genesis VerifyPreviousBlock: %v", err)
	}
	if !b.Witness.P {
		t.Fatal("expected P flag set")
	}
}

func TestVerifyPreviousBlockLinked(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)
	b.Height = 1
	prevDigest := types.BlockDigest{0xaa}
	prevTimestamp := b.Timestamp - 1
	b.PreviousDigest = prevDigest

	err := b.VerifyPreviousBlock(
		func(types.BlockHeight) (types.BlockDigest, bool) { return prevDigest, true },
		func(types.BlockHeight) (types.Timestamp, bool) { return prevTimestamp, true },
	)
	if err != nil {
		t.Fatalf("VerifyPreviousBlock: %v", err)
	}
}

func TestVerifyPreviousBlockIsolated(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)
	b.Height = 1

	err := b.VerifyPreviousBlock(
		func(types.BlockHeight) (types.BlockDigest, bool) { return types.BlockDigest{}, false },
		func(types.BlockHeight) (types.Timestamp, bool) { return 0, false },
	)
	if err != ErrChain {
		t.Fatalf("expected ErrChain, got %v", err)
	}
}

func TestVerifyDigest(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)

	if err := b.VerifyDigest(); err != nil {
		t.Fatalf("VerifyDigest: %v", err)
	}
	if !b.Witness.D {
		t.Fatal("expected D flag set")
	}
}

func TestVerifyDigestTampered(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 0)
	b.Nonce++ // invalidates the digest without recomputing it

	if err := b.VerifyDigest(); err != ErrDigest {
		t.Fatalf("expected ErrDigest, got %v", err)
	}
}

func TestVerifyDifficulty(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 4)

	if err := b.VerifyDifficulty(4); err != nil {
		t.Fatalf("VerifyDifficulty: %v", err)
	}
	if !b.Witness.X {
		t.Fatal("expected X flag set")
	}
}

func TestVerifyDifficultyBelowExpected(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 2)

	if err := b.VerifyDifficulty(4); err != ErrInsufficientDifficulty {
		t.Fatalf("expected ErrInsufficientDifficulty, got %v", err)
	}
}

func TestFullPipeline(t *testing.T) {
	miner := mustKey(t)
	b := buildGenesis(t, miner, 50, 2)

	if err := b.VerifyTransactionItself(); err != nil {
		t.Fatalf("T: %v", err)
	}
	if err := b.VerifyTransactionRelation(fixedReward(50)); err != nil {
		t.Fatalf("TR: %v", err)
	}
	if err := b.VerifyUTXO(func([]tx.Transaction) bool { return true }); err != nil {
		t.Fatalf("U: %v", err)
	}
	if err := b.VerifyPreviousBlock(
		func(types.BlockHeight) (types.BlockDigest, bool) { return types.BlockDigest{}, false },
		func(types.BlockHeight) (types.Timestamp, bool) { return 0, false },
	); err != nil {
		t.Fatalf("P: %v", err)
	}
	if err := b.VerifyDigest(); err != nil {
		t.Fatalf("D: %v", err)
	}
	if err := b.VerifyDifficulty(2); err != nil {
		t.Fatalf("X: %v", err)
	}
	if !b.Witness.FullyVerified() {
		t.Fatal("expected fully verified witness")
	}
}
