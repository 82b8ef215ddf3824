// Package transport defines the publish/subscribe contract the node
// orchestrator talks to, and a concrete libp2p-pubsub implementation of it.
package transport

import "context"

// Topic names one of the five wire channels the orchestrator uses. These
// are pub/sub topics, not request/response RPCs: a request and its
// response travel as two independently-published topics.
type Topic string

const (
	CreateTransaction    Topic = "CreateTransaction"
	NotifyBlock          Topic = "NotifyBlock"
	NotifyBlockHeight    Topic = "NotifyBlockHeight"
	RequestUtxoByAddress Topic = "RequestUtxoByAddress"
	RespondUtxoByAddress Topic = "RespondUtxoByAddress"
)

// Transport is the external collaborator the orchestrator's tasks
// publish to and subscribe through. Payloads are the JSON encoding
// produced by this package's codec (EncodeBlock, EncodeTransaction, ...)
// for the value named in each topic's table entry (§6); the transport
// itself never interprets them.
type Transport interface {
	// Publish sends payload to every subscriber of topic. Whether this
	// node's own subscribers also receive it depends on the
	// implementation: PubSub's Subscribe drops messages this host
	// published itself (its ReceivedFrom-based self-skip), while an
	// in-process fan-out may deliver them.
	Publish(ctx context.Context, topic Topic, payload []byte) error

	// Subscribe returns a channel of payloads published to topic. The
	// channel is closed when ctx is done. Subscribing to the same topic
	// twice returns two independent channels fed from the same stream.
	Subscribe(ctx context.Context, topic Topic) (<-chan []byte, error)
}
