package storage

import (
	"encoding/json"
	"fmt"

	"github.com/klingnet-chain/node/internal/transport"
	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/types"
)

var (
	blockPrefix = []byte("block/")
	tipKey      = []byte("meta/tip")
)

// tipRecord is the JSON form of the last-seen ledger tip.
type tipRecord struct {
	Height types.BlockHeight `json:"height"`
	Digest types.BlockDigest `json:"digest"`
}

// Cache is a resumable, non-authoritative record of blocks this node has
// already verified, so a restart can reseed its ledger without waiting to
// replay the whole chain again over the Transport. It is never the source
// of truth for ledger state: the node always re-verifies every cached
// block exactly as it would a freshly received one.
type Cache struct {
	db DB
}

// NewCache wraps db (typically a BadgerDB) as a block cache.
func NewCache(db DB) *Cache {
	return &Cache{db: db}
}

// PutBlock persists a verified block, keyed by its digest.
func (c *Cache) PutBlock(b block.Block) error {
	data, err := transport.EncodeBlock(b)
	if err != nil {
		return fmt.Errorf("encode block: %w", err)
	}
	key := append(append([]byte{}, blockPrefix...), b.Digest[:]...)
	return c.db.Put(key, data)
}

// GetBlock retrieves a previously cached block by digest. The block is
// returned with a zero Witness, same as any other Transport-decoded block:
// callers must re-verify it.
func (c *Cache) GetBlock(digest types.BlockDigest) (block.Block, bool, error) {
	key := append(append([]byte{}, blockPrefix...), digest[:]...)
	data, err := c.db.Get(key)
	if err != nil {
		return block.Block{}, false, nil
	}
	b, err := transport.DecodeBlock(data)
	if err != nil {
		return block.Block{}, false, fmt.Errorf("decode cached block: %w", err)
	}
	return b, true, nil
}

// ForEachBlock visits every cached block in no particular order.
func (c *Cache) ForEachBlock(fn func(block.Block) error) error {
	return c.db.ForEach(blockPrefix, func(_, value []byte) error {
		b, err := transport.DecodeBlock(value)
		if err != nil {
			return fmt.Errorf("decode cached block: %w", err)
		}
		return fn(b)
	})
}

// PutTip records the last-seen ledger tip, replacing any earlier record;
// GetTip reads it back.
func (c *Cache) PutTip(height types.BlockHeight, digest types.BlockDigest) error {
	data, err := json.Marshal(tipRecord{Height: height, Digest: digest})
	if err != nil {
		return fmt.Errorf("marshal tip: %w", err)
	}
	return c.db.Put(tipKey, data)
}

// GetTip returns the last recorded tip, if any.
func (c *Cache) GetTip() (types.BlockHeight, types.BlockDigest, bool, error) {
	data, err := c.db.Get(tipKey)
	if err != nil {
		return 0, types.BlockDigest{}, false, nil
	}
	var rec tipRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, types.BlockDigest{}, false, fmt.Errorf("unmarshal tip: %w", err)
	}
	return rec.Height, rec.Digest, true, nil
}
