// Package mempool holds transactions that have passed their own
// verification and are waiting for block inclusion. There is no fee
// market here: transactions are kept in timestamp order and the whole
// pool is cleared whenever it might be stale, rather than evicted
// piecemeal.
package mempool

import (
	"sort"
	"sync"

	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

// Pool holds pending, transition-verified transactions ordered by
// non-decreasing timestamp.
type Pool struct {
	mu   sync.RWMutex
	txs  []tx.Transaction
	seen map[types.Signature]struct{}
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{seen: make(map[types.Signature]struct{})}
}

// Push inserts t, keeping the pool sorted by timestamp. Duplicates (by
// the transaction's own signature) are ignored.
func (p *Pool) Push(t tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.seen[t.Signature]; exists {
		return
	}
	p.seen[t.Signature] = struct{}{}

	p.txs = append(p.txs, t)
	sort.SliceStable(p.txs, func(i, j int) bool {
		return p.txs[i].Timestamp.Before(p.txs[j].Timestamp)
	})
}

// Snapshot returns a copy of the pool's current contents, in order. The
// caller may mine or forward these without holding the pool's lock.
func (p *Pool) Snapshot() []tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]tx.Transaction, len(p.txs))
	copy(out, p.txs)
	return out
}

// Clear empties the pool. BlockIntake calls this whenever a block lands
// (the block may have included queued transactions, or superseded them);
// the Miner task calls this when a block it just mined fails
// re-verification against the ledger, on the assumption the pool holds an
// invalid transaction.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.txs = nil
	p.seen = make(map[types.Signature]struct{})
}

// Len reports the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}
