// Package ledger holds the tree of fully-verified blocks a node has
// accepted, tracks every fork it has seen, and answers UTXO queries against
// any tip. It performs no locking of its own: callers (the node
// orchestrator) are expected to hold a single mutex around the whole
// Ledger for the duration of any call, per the orchestrator's concurrency
// rules.
package ledger

import (
	"errors"
	"sort"

	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

// Errors returned by Entry and VerifyBlock.
var (
	ErrIsolatedBlock          = errors.New("block does not attach to any known node")
	ErrDuplicatedBlock        = errors.New("block already has a sibling with the same digest")
	ErrDuplicatedGenesisBlock = errors.New("ledger already holds a genesis block")
)

// nodeID identifies a node in the block tree. IDs are assigned from 0 in
// insertion order, so the first node entered has id 0; noNode (-1) is used
// for "no parent" (the root) and "no root yet".
type nodeID int

const noNode nodeID = -1

type node struct {
	id       nodeID
	parent   nodeID
	children []nodeID
	block    block.Block
}

// Ledger is a node-indexed tree of fully-verified blocks, rooted at the
// genesis block once one has been entered.
type Ledger struct {
	nodes     map[nodeID]*node
	root      nodeID
	nextID    nodeID
	digestMap map[types.BlockDigest]nodeID
}

// New returns an empty ledger with no root.
func New() *Ledger {
	return &Ledger{
		nodes:     make(map[nodeID]*node),
		root:      noNode,
		digestMap: make(map[types.BlockDigest]nodeID),
	}
}

func (l *Ledger) nodeByDigest(digest types.BlockDigest) (*node, bool) {
	id, ok := l.digestMap[digest]
	if !ok {
		return nil, false
	}
	return l.nodes[id], true
}

// Get returns the block stored at digest, if any.
func (l *Ledger) Get(digest types.BlockDigest) (block.Block, bool) {
	n, ok := l.nodeByDigest(digest)
	if !ok {
		return block.Block{}, false
	}
	return n.block, true
}

// SearchLatestBlock returns the block of maximum height across every node
// in the tree. Ties are broken by insertion order: the first block entered
// at the maximum height wins.
func (l *Ledger) SearchLatestBlock() (block.Block, bool) {
	if len(l.nodes) == 0 {
		return block.Block{}, false
	}

	ids := make([]nodeID, 0, len(l.nodes))
	for id := range l.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	best := l.nodes[ids[0]]
	for _, id := range ids[1:] {
		if n := l.nodes[id]; n.block.Height > best.block.Height {
			best = n
		}
	}
	return best.block, true
}

// UpstreamChainFrom returns the blocks from digest up to the root,
// inclusive, ordered from leaf (digest) to root. It is empty if digest is
// not present.
func (l *Ledger) UpstreamChainFrom(digest types.BlockDigest) []block.Block {
	n, ok := l.nodeByDigest(digest)
	if !ok {
		return nil
	}

	var chain []block.Block
	for n != nil {
		chain = append(chain, n.block)
		if n.parent == noNode {
			break
		}
		n = l.nodes[n.parent]
	}
	return chain
}

// SearchLatestChain returns UpstreamChainFrom(SearchLatestBlock()'s digest),
// or nil if the ledger is empty.
func (l *Ledger) SearchLatestChain() []block.Block {
	latest, ok := l.SearchLatestBlock()
	if !ok {
		return nil
	}
	return l.UpstreamChainFrom(latest.Digest)
}

// replayTo builds the live transition set by walking the chain from the
// root down to and including uptoDigest, returning the first replay error
// encountered (if any). An empty/not-found digest yields an empty history
// (the state before genesis) and a nil error.
func (l *Ledger) replayTo(uptoDigest types.BlockDigest) (*history, error) {
	chain := l.UpstreamChainFrom(uptoDigest)
	h := newHistory()
	for i := len(chain) - 1; i >= 0; i-- {
		if err := h.pushBlock(chain[i]); err != nil {
			return h, err
		}
	}
	return h, nil
}

// BuildUTXOs returns every transition live at tip and received by holder.
// It is a best-effort read path: if a block fails to replay, replay stops
// there and the live set as of the block before it is used; the replay
// error is discarded rather than reported. VerifyBlock is the strict
// enforcer for blocks actually entering the ledger.
func (l *Ledger) BuildUTXOs(tip types.BlockDigest, holder types.Address) []tx.Transition {
	h, _ := l.replayTo(tip)
	return h.byHolder(holder)
}

// Entry inserts a fully-verified block into the tree.
//
//   - Genesis (no previous height): permitted only when the tree is empty;
//     becomes the root.
//   - Otherwise: the parent is located by PreviousDigest and must have
//     height block.Height.Previous(); the parent must not already have a
//     child with the same digest.
func (l *Ledger) Entry(b block.Block) error {
	prevHeight, hasPrev := b.Height.Previous()
	if !hasPrev {
		if l.root != noNode {
			return ErrDuplicatedGenesisBlock
		}
		id := l.insert(noNode, b)
		l.root = id
		return nil
	}

	parent, ok := l.nodeByDigest(b.PreviousDigest)
	if !ok || parent.block.Height != prevHeight {
		return ErrIsolatedBlock
	}
	for _, childID := range parent.children {
		if l.nodes[childID].block.Digest == b.Digest {
			return ErrDuplicatedBlock
		}
	}

	id := l.insert(parent.id, b)
	parent.children = append(parent.children, id)
	return nil
}

func (l *Ledger) insert(parent nodeID, b block.Block) nodeID {
	id := l.nextID
	l.nextID++
	l.nodes[id] = &node{id: id, parent: parent, block: b}
	l.digestMap[b.Digest] = id
	return id
}

// RemoveBranch drops the subtree rooted at digest (digest's node and every
// descendant), returning the removed node's block. If digest was the root,
// the whole ledger is emptied.
func (l *Ledger) RemoveBranch(digest types.BlockDigest) (block.Block, bool) {
	n, ok := l.nodeByDigest(digest)
	if !ok {
		return block.Block{}, false
	}

	if parent, ok := l.nodes[n.parent]; ok {
		for i, childID := range parent.children {
			if childID == n.id {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
	}
	if n.id == l.root {
		l.root = noNode
	}

	l.removeSubtree(n.id)
	return n.block, true
}

func (l *Ledger) removeSubtree(id nodeID) {
	n, ok := l.nodes[id]
	if !ok {
		return
	}
	for _, childID := range n.children {
		l.removeSubtree(childID)
	}
	delete(l.digestMap, n.block.Digest)
	delete(l.nodes, id)
}
