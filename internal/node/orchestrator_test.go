package node

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/klingnet-chain/node/internal/transport"
	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

// fakeTransport is an in-process Transport: every Publish fans out to
// every channel a Subscribe call handed out for that topic, including
// the publisher's own, matching the self-echo behaviour libp2p-pubsub
// exhibits and that BlockIntake must tolerate.
type fakeTransport struct {
	mu   sync.Mutex
	subs map[transport.Topic][]chan []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{subs: make(map[transport.Topic][]chan []byte)}
}

func (f *fakeTransport) Publish(ctx context.Context, topic transport.Topic, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[topic] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (f *fakeTransport) Subscribe(ctx context.Context, topic transport.Topic) (<-chan []byte, error) {
	f.mu.Lock()
	ch := make(chan []byte, 16)
	f.subs[topic] = append(f.subs[topic], ch)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
	}()
	return ch, nil
}

func mustMinerKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", d)
}

func TestOrchestratorMinesGenesisWhenOptedIn(t *testing.T) {
	key := mustMinerKey(t)
	tp := newFakeTransport()
	reward := func(types.BlockHeight) types.Coin { return 50 }

	o := New(tp, reward, 0, key, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Run(ctx)
	defer o.Stop()

	waitFor(t, 5*time.Second, func() bool {
		o.ledgerMu.Lock()
		_, ok := o.ledger.SearchLatestBlock()
		o.ledgerMu.Unlock()
		return ok
	})
}

func TestOrchestratorWithoutMineGenesisNeverMines(t *testing.T) {
	key := mustMinerKey(t)
	tp := newFakeTransport()
	reward := func(types.BlockHeight) types.Coin { return 50 }

	o := New(tp, reward, 0, key, false)
	ctx, cancel := context.WithCancel(context.Background())
	o.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	o.ledgerMu.Lock()
	_, ok := o.ledger.SearchLatestBlock()
	o.ledgerMu.Unlock()
	if ok {
		t.Fatal("genesis mined without opting in")
	}
	cancel()
	o.Stop()
}

func TestOrchestratorRelayOnlyHasNoMinerTask(t *testing.T) {
	tp := newFakeTransport()
	reward := func(types.BlockHeight) types.Coin { return 50 }

	o := New(tp, reward, 0, nil, true)
	ctx, cancel := context.WithCancel(context.Background())
	o.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	o.ledgerMu.Lock()
	_, ok := o.ledger.SearchLatestBlock()
	o.ledgerMu.Unlock()
	if ok {
		t.Fatal("relay-only orchestrator must never mine")
	}
	cancel()
	o.Stop()
}

func TestTxIntakeRejectsUnverifiableTransaction(t *testing.T) {
	tp := newFakeTransport()
	reward := func(types.BlockHeight) types.Coin { return 50 }
	o := New(tp, reward, 0, nil, false)
	ctx, cancel := context.WithCancel(context.Background())
	o.Run(ctx)
	defer func() {
		cancel()
		o.Stop()
	}()

	if err := tp.Publish(ctx, transport.CreateTransaction, []byte("not json")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := o.pool.Len(); got != 0 {
		t.Fatalf("pool.Len() = %d, want 0", got)
	}
}

func TestTxIntakeAcceptsVerifiedTransaction(t *testing.T) {
	tp := newFakeTransport()
	reward := func(types.BlockHeight) types.Coin { return 50 }
	o := New(tp, reward, 0, nil, false)
	ctx, cancel := context.WithCancel(context.Background())
	o.Run(ctx)
	defer func() {
		cancel()
		o.Stop()
	}()

	sender := mustMinerKey(t)
	in := tx.OfferTransfer(sender, sender.PublicKey(), 10)
	out := tx.OfferTransfer(sender, mustMinerKey(t).PublicKey(), 10)
	txn := tx.OfferTransaction(sender, []tx.Transition{in}, []tx.Transition{out})

	data, err := transport.EncodeTransaction(txn)
	if err != nil {
		t.Fatalf("EncodeTransaction: %v", err)
	}
	if err := tp.Publish(ctx, transport.CreateTransaction, data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return o.pool.Len() == 1 })
}
