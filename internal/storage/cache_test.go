package storage

import (
	"testing"

	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

func testBlock(t *testing.T) block.Block {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	gen := tx.OfferGeneration(key, 50)
	coinbase := tx.OfferTransaction(key, nil, []tx.Transition{gen})
	b := block.Block{
		Height:       3,
		Transactions: []tx.Transaction{coinbase},
		Timestamp:    types.Now(),
		Difficulty:   0,
		Digest:       types.BlockDigest{1, 2, 3},
	}
	b.Witness.T = true
	return b
}

func TestCachePutGetBlock(t *testing.T) {
	c := NewCache(NewMemory())
	want := testBlock(t)

	if err := c.PutBlock(want); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	got, ok, err := c.GetBlock(want.Digest)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if !ok {
		t.Fatal("GetBlock: expected block to be found")
	}
	if got.Height != want.Height || got.Digest != want.Digest {
		t.Fatalf("got %+v, want height/digest matching %+v", got, want)
	}
	if got.Witness.T {
		t.Fatal("cached block must come back unverified, like any Transport-decoded block")
	}
}

func TestCacheGetBlockMissing(t *testing.T) {
	c := NewCache(NewMemory())
	_, ok, err := c.GetBlock(types.BlockDigest{9, 9, 9})
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a digest never stored")
	}
}

func TestCacheForEachBlock(t *testing.T) {
	c := NewCache(NewMemory())
	a := testBlock(t)
	a.Digest = types.BlockDigest{1}
	b := testBlock(t)
	b.Digest = types.BlockDigest{2}

	if err := c.PutBlock(a); err != nil {
		t.Fatalf("PutBlock a: %v", err)
	}
	if err := c.PutBlock(b); err != nil {
		t.Fatalf("PutBlock b: %v", err)
	}

	seen := make(map[types.BlockDigest]bool)
	err := c.ForEachBlock(func(blk block.Block) error {
		seen[blk.Digest] = true
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachBlock: %v", err)
	}
	if !seen[a.Digest] || !seen[b.Digest] {
		t.Fatalf("ForEachBlock missed a cached block: %v", seen)
	}
}

func TestCacheTipRoundTrip(t *testing.T) {
	c := NewCache(NewMemory())

	if _, _, ok, err := c.GetTip(); err != nil || ok {
		t.Fatalf("GetTip() on empty cache: ok=%v err=%v", ok, err)
	}

	digest := types.BlockDigest{4, 5, 6}
	if err := c.PutTip(7, digest); err != nil {
		t.Fatalf("PutTip: %v", err)
	}

	height, got, ok, err := c.GetTip()
	if err != nil {
		t.Fatalf("GetTip: %v", err)
	}
	if !ok || height != 7 || got != digest {
		t.Fatalf("GetTip() = (%d, %v, %v), want (7, %v, true)", height, got, ok, digest)
	}
}
