// Package node hosts the seven long-lived tasks that make a full node:
// transaction intake, block intake, mining, block publication, height
// publication and subscription, and UTXO serving. All seven share one
// Ledger and one mempool, each guarded by its own lock, and talk to the
// rest of the network only through a Transport.
package node

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/klingnet-chain/node/internal/ledger"
	"github.com/klingnet-chain/node/internal/log"
	"github.com/klingnet-chain/node/internal/mempool"
	"github.com/klingnet-chain/node/internal/miner"
	"github.com/klingnet-chain/node/internal/storage"
	"github.com/klingnet-chain/node/internal/transport"
	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

const (
	miningWorkInterval = 10 * time.Millisecond
	miningIdleBackoff  = 60 * time.Second
	heightPublishEvery = 60 * time.Second
	catchUpSpacing     = 10 * time.Millisecond
	blockChannelDepth  = 10
)

// Orchestrator wires the Ledger, mempool, and Transport together and
// drives the seven tasks. The ledger mutex and the mempool's own
// internal lock are never held at the same time by any task; every
// network call happens with both released.
type Orchestrator struct {
	ledgerMu sync.Mutex
	ledger   *ledger.Ledger

	pool      *mempool.Pool
	transport transport.Transport

	reward     block.RewardRule
	difficulty types.Difficulty

	minerKey    *crypto.PrivateKey
	mineGenesis bool

	blockCh chan block.Block

	cache *storage.Cache

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an Orchestrator with a fresh, empty Ledger and mempool.
// minerKey may be nil to disable the Miner task entirely (a relay-only
// node). mineGenesis mirrors the CLI's opt-in "--mine-genesis-block"
// flag: without it, a node with an empty ledger never mines the first
// block, only ever receives one.
func New(t transport.Transport, reward block.RewardRule, difficulty types.Difficulty, minerKey *crypto.PrivateKey, mineGenesis bool) *Orchestrator {
	return &Orchestrator{
		ledger:      ledger.New(),
		pool:        mempool.New(),
		transport:   t,
		reward:      reward,
		difficulty:  difficulty,
		minerKey:    minerKey,
		mineGenesis: mineGenesis,
		blockCh:     make(chan block.Block, blockChannelDepth),
	}
}

// SetCache attaches a block cache. When set, every block this node enters
// into the ledger is also written there, and Run replays its contents
// before starting any task, so a restart doesn't have to wait on peers to
// rebuild a ledger it has already verified once.
func (o *Orchestrator) SetCache(c *storage.Cache) {
	o.cache = c
}

// seedFromCache replays every cached block into the ledger, oldest first,
// through the same verifyAndEnter path a freshly received block takes.
func (o *Orchestrator) seedFromCache() {
	if o.cache == nil {
		return
	}
	var blocks []block.Block
	if err := o.cache.ForEachBlock(func(b block.Block) error {
		blocks = append(blocks, b)
		return nil
	}); err != nil {
		log.Node.Warn().Err(err).Msg("read block cache")
		return
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Height < blocks[j].Height })
	for _, b := range blocks {
		if err := o.verifyAndEnter(&b); err != nil {
			log.Node.Warn().Err(err).Msg("drop cached block while reseeding")
		}
	}
}

// Run starts every task as its own goroutine. It returns immediately;
// call Stop to cancel and wait for them to exit.
func (o *Orchestrator) Run(ctx context.Context) {
	o.seedFromCache()

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	tasks := []func(context.Context){
		o.runTxIntake,
		o.runBlockIntake,
		o.runBlockPublisher,
		o.runHeightPublisher,
		o.runHeightSubscriber,
		o.runUtxoServe,
	}
	if o.minerKey != nil {
		tasks = append(tasks, o.runMiner)
	}

	for _, task := range tasks {
		o.wg.Add(1)
		go func(fn func(context.Context)) {
			defer o.wg.Done()
			fn(ctx)
		}(task)
	}
}

// Stop cancels every task and waits for them to return.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// sleep blocks for d or until ctx is cancelled, reporting which happened.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// runTxIntake is task 1: verify every incoming transaction and push
// survivors onto the mempool.
func (o *Orchestrator) runTxIntake(ctx context.Context) {
	logger := log.Node
	payloads, err := o.transport.Subscribe(ctx, transport.CreateTransaction)
	if err != nil {
		logger.Error().Err(err).Msg("subscribe CreateTransaction")
		return
	}

	for payload := range payloads {
		t, err := transport.DecodeTransaction(payload)
		if err != nil {
			logger.Warn().Err(err).Msg("decode transaction")
			continue
		}
		if err := t.Verify(); err != nil {
			logger.Warn().Err(err).Msg("reject transaction")
			continue
		}
		o.pool.Push(t)
		logger.Info().Msg("transaction accepted into mempool")
	}
}

// runBlockIntake is task 2: verify an incoming block through every
// stage and enter it into the ledger.
func (o *Orchestrator) runBlockIntake(ctx context.Context) {
	logger := log.Node
	payloads, err := o.transport.Subscribe(ctx, transport.NotifyBlock)
	if err != nil {
		logger.Error().Err(err).Msg("subscribe NotifyBlock")
		return
	}

	for payload := range payloads {
		b, err := transport.DecodeBlock(payload)
		if err != nil {
			logger.Warn().Err(err).Msg("decode block")
			continue
		}
		if err := o.verifyAndEnter(&b); err != nil {
			if errors.Is(err, ledger.ErrDuplicatedBlock) {
				continue // self-echo of a block we already published
			}
			logger.Warn().Err(err).Msg("reject block")
			continue
		}
		o.pool.Clear()
		logger.Info().Uint64("height", uint64(b.Height)).Msg("block accepted")
	}
}

// verifyAndEnter runs stages T, TR, X, D, then the ledger's P and U
// stages, then Entry — the full pipeline a block must pass before it is
// part of this node's view of the chain.
func (o *Orchestrator) verifyAndEnter(b *block.Block) error {
	if err := b.VerifyTransactionItself(); err != nil {
		return err
	}
	if err := b.VerifyTransactionRelation(o.reward); err != nil {
		return err
	}
	if err := b.VerifyDifficulty(o.difficulty); err != nil {
		return err
	}
	if err := b.VerifyDigest(); err != nil {
		return err
	}

	o.ledgerMu.Lock()
	defer o.ledgerMu.Unlock()

	verified, err := o.ledger.VerifyBlock(*b)
	if err != nil {
		return err
	}
	if err := o.ledger.Entry(verified); err != nil {
		return err
	}
	*b = verified

	if o.cache != nil {
		if err := o.cache.PutBlock(verified); err != nil {
			log.Node.Warn().Err(err).Msg("cache verified block")
		}
		if tip, ok := o.ledger.SearchLatestBlock(); ok {
			if err := o.cache.PutTip(tip.Height, tip.Digest); err != nil {
				log.Node.Warn().Err(err).Msg("cache ledger tip")
			}
		}
	}
	return nil
}

// runMiner is task 3.
func (o *Orchestrator) runMiner(ctx context.Context) {
	logger := log.Miner

	for {
		txs := o.pool.Snapshot()

		o.ledgerMu.Lock()
		tip, hasTip := o.ledger.SearchLatestBlock()
		o.ledgerMu.Unlock()

		var nextHeight types.BlockHeight
		var previousDigest types.BlockDigest
		if hasTip {
			nextHeight = tip.Height.Next()
			previousDigest = tip.Digest
		}

		if !hasTip && !o.mineGenesis {
			if !sleep(ctx, miningIdleBackoff) {
				return
			}
			continue
		}
		if hasTip && len(txs) == 0 {
			if !sleep(ctx, miningIdleBackoff) {
				return
			}
			continue
		}

		src, err := miner.NewBlockSource(nextHeight, txs, previousDigest, o.difficulty, rand.Uint64(), o.minerKey, o.reward)
		if err != nil {
			logger.Error().Err(err).Msg("build block source")
			if !sleep(ctx, miningIdleBackoff) {
				return
			}
			continue
		}

		candidate, ok := src.TryIntoBlock()
		if !ok {
			if !sleep(ctx, miningWorkInterval) {
				return
			}
			continue
		}

		if err := o.verifyAndEnter(&candidate); err != nil {
			logger.Warn().Err(err).Msg("mined block failed re-verification; clearing mempool")
			o.pool.Clear()
			continue
		}

		o.pool.Clear()
		logger.Info().Uint64("height", uint64(candidate.Height)).Msg("block mined")

		select {
		case o.blockCh <- candidate:
		case <-ctx.Done():
			return
		}
	}
}

// runBlockPublisher is task 4: drain mined or replayed blocks and
// publish them.
func (o *Orchestrator) runBlockPublisher(ctx context.Context) {
	logger := log.Node
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-o.blockCh:
			data, err := transport.EncodeBlock(b)
			if err != nil {
				logger.Error().Err(err).Msg("encode block")
				continue
			}
			if err := o.transport.Publish(ctx, transport.NotifyBlock, data); err != nil {
				logger.Error().Err(err).Msg("publish block")
			}
		}
	}
}

// runHeightPublisher is task 5: announce the ledger tip periodically.
func (o *Orchestrator) runHeightPublisher(ctx context.Context) {
	logger := log.Node
	ticker := time.NewTicker(heightPublishEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.ledgerMu.Lock()
			tip, ok := o.ledger.SearchLatestBlock()
			o.ledgerMu.Unlock()

			var height types.BlockHeight
			if ok {
				height = tip.Height
			}
			data, err := transport.EncodeHeight(height)
			if err != nil {
				logger.Error().Err(err).Msg("encode height")
				continue
			}
			if err := o.transport.Publish(ctx, transport.NotifyBlockHeight, data); err != nil {
				logger.Error().Err(err).Msg("publish height")
			}
		}
	}
}

// runHeightSubscriber is task 6: when a peer reports a lower height,
// replay this node's chain to it.
func (o *Orchestrator) runHeightSubscriber(ctx context.Context) {
	logger := log.Node
	payloads, err := o.transport.Subscribe(ctx, transport.NotifyBlockHeight)
	if err != nil {
		logger.Error().Err(err).Msg("subscribe NotifyBlockHeight")
		return
	}

	for payload := range payloads {
		peerHeight, err := transport.DecodeHeight(payload)
		if err != nil {
			logger.Warn().Err(err).Msg("decode height")
			continue
		}

		o.ledgerMu.Lock()
		tip, ok := o.ledger.SearchLatestBlock()
		var chain []block.Block
		if ok && tip.Height > peerHeight {
			chain = o.ledger.UpstreamChainFrom(tip.Digest)
		}
		o.ledgerMu.Unlock()

		// UpstreamChainFrom is leaf-first; the peer needs genesis first so
		// each block's parent is already in its ledger when it arrives.
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}

		for _, b := range chain {
			select {
			case o.blockCh <- b:
			case <-ctx.Done():
				return
			}
			if !sleep(ctx, catchUpSpacing) {
				return
			}
		}
	}
}

// runUtxoServe is task 7: answer address UTXO queries from the ledger.
func (o *Orchestrator) runUtxoServe(ctx context.Context) {
	logger := log.Node
	payloads, err := o.transport.Subscribe(ctx, transport.RequestUtxoByAddress)
	if err != nil {
		logger.Error().Err(err).Msg("subscribe RequestUtxoByAddress")
		return
	}

	for payload := range payloads {
		addr, err := transport.DecodeAddress(payload)
		if err != nil {
			logger.Warn().Err(err).Msg("decode address")
			continue
		}

		o.ledgerMu.Lock()
		tip, ok := o.ledger.SearchLatestBlock()
		var transitions []tx.Transition
		if ok {
			transitions = o.ledger.BuildUTXOs(tip.Digest, addr)
		}
		o.ledgerMu.Unlock()

		data, err := transport.EncodeUtxoResponse(addr, transitions)
		if err != nil {
			logger.Error().Err(err).Msg("encode utxo response")
			continue
		}
		if err := o.transport.Publish(ctx, transport.RespondUtxoByAddress, data); err != nil {
			logger.Error().Err(err).Msg("publish utxo response")
		}
	}
}
