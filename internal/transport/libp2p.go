package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klingnet-chain/node/internal/log"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	dutil "github.com/libp2p/go-libp2p/p2p/discovery/util"
)

const (
	rendezvousFallback  = "klingnet-node"
	dhtDiscoveryInterval = 30 * time.Second
)

// Config holds the libp2p transport's own startup settings. It has no
// domain knowledge of transactions, blocks, or addresses — those only
// ever appear as opaque payloads.
type Config struct {
	ListenAddr string
	Port       int
	Seeds      []string
	NetworkID  string
	NoDiscover bool
}

// PubSub is a Transport backed by libp2p's GossipSub.
type PubSub struct {
	host   host.Host
	ps     *pubsub.PubSub
	dht    *dht.IpfsDHT
	config Config

	mu     sync.Mutex
	topics map[Topic]*pubsub.Topic
}

// New starts a libp2p host and GossipSub router and returns a Transport
// backed by it. Unless NoDiscover is set, peer discovery runs in the
// background (mDNS and a Kademlia DHT); with it set, neither runs. The
// five topics are joined lazily, on first Publish or Subscribe.
func New(ctx context.Context, cfg Config) (*PubSub, error) {
	addr := fmt.Sprintf("/ip4/%s/tcp/%d", cfg.ListenAddr, cfg.Port)
	h, err := libp2p.New(libp2p.ListenAddrStrings(addr))
	if err != nil {
		return nil, fmt.Errorf("create libp2p host: %w", err)
	}

	t := &PubSub{
		host:   h,
		config: cfg,
		topics: make(map[Topic]*pubsub.Topic),
	}

	if !cfg.NoDiscover {
		kadDHT, err := dht.New(ctx, h, dht.Mode(dht.ModeClient))
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("create kad-dht: %w", err)
		}
		if err := kadDHT.Bootstrap(ctx); err != nil {
			h.Close()
			return nil, fmt.Errorf("bootstrap kad-dht: %w", err)
		}
		t.dht = kadDHT
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("create pubsub: %w", err)
	}
	t.ps = ps

	for _, addr := range cfg.Seeds {
		info, err := peer.AddrInfoFromString(addr)
		if err != nil {
			log.Transport.Warn().Str("addr", addr).Err(err).Msg("bad seed address")
			continue
		}
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = h.Connect(dialCtx, *info)
		cancel()
		if err != nil {
			log.Transport.Warn().Str("peer", info.ID.String()).Err(err).Msg("seed connect failed")
		}
	}

	if !cfg.NoDiscover {
		svc := mdns.NewMdnsService(h, t.rendezvous(), &discoveryNotifee{ctx: ctx, host: h})
		_ = svc.Start()
		go t.runDHTDiscovery(ctx)
	}

	return t, nil
}

func (t *PubSub) rendezvous() string {
	if t.config.NetworkID != "" {
		return "klingnet/" + t.config.NetworkID
	}
	return rendezvousFallback
}

func (t *PubSub) runDHTDiscovery(ctx context.Context) {
	if t.dht == nil {
		return
	}
	routingDiscovery := drouting.NewRoutingDiscovery(t.dht)
	dutil.Advertise(ctx, routingDiscovery, t.rendezvous())

	ticker := time.NewTicker(dhtDiscoveryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			findCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			peerCh, err := routingDiscovery.FindPeers(findCtx, t.rendezvous())
			if err != nil {
				cancel()
				continue
			}
			for pi := range peerCh {
				if pi.ID == t.host.ID() {
					continue
				}
				_ = t.host.Connect(findCtx, pi)
			}
			cancel()
		}
	}
}

type discoveryNotifee struct {
	ctx  context.Context
	host host.Host
}

func (d *discoveryNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == d.host.ID() {
		return
	}
	ctx, cancel := context.WithTimeout(d.ctx, 5*time.Second)
	defer cancel()
	_ = d.host.Connect(ctx, pi)
}

func (t *PubSub) join(topic Topic) (*pubsub.Topic, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if top, ok := t.topics[topic]; ok {
		return top, nil
	}
	top, err := t.ps.Join(string(topic))
	if err != nil {
		return nil, fmt.Errorf("join topic %s: %w", topic, err)
	}
	t.topics[topic] = top
	return top, nil
}

// Publish implements Transport.
func (t *PubSub) Publish(ctx context.Context, topic Topic, payload []byte) error {
	top, err := t.join(topic)
	if err != nil {
		return err
	}
	return top.Publish(ctx, payload)
}

// Subscribe implements Transport.
func (t *PubSub) Subscribe(ctx context.Context, topic Topic) (<-chan []byte, error) {
	top, err := t.join(topic)
	if err != nil {
		return nil, err
	}
	sub, err := top.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe topic %s: %w", topic, err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer sub.Cancel()
		for {
			msg, err := sub.Next(ctx)
			if err != nil {
				return
			}
			if msg.ReceivedFrom == t.host.ID() {
				continue
			}
			select {
			case out <- msg.Data:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the host (and DHT, if running) down.
func (t *PubSub) Close() error {
	if t.dht != nil {
		t.dht.Close()
	}
	return t.host.Close()
}
