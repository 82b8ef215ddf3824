// Package tx implements transitions (transfers and generations of coin) and
// the transactions that bundle them.
package tx

import (
	"errors"

	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/types"
	"github.com/klingnet-chain/node/pkg/wire"
)

// ErrInvalidSignature is returned when a transition's signature does not
// verify against its sender or receiver address.
var ErrInvalidSignature = errors.New("invalid transition signature")

// Transition is a tagged union of Transfer and Generation: it either moves
// existing coin between two addresses, or issues new coin to one. Every
// Transition carries its own signature and is identified, for UTXO
// purposes, by that signature.
type Transition interface {
	// Receiver returns the address coin is moved to.
	Receiver() types.Address
	Quantity() types.Coin
	Timestamp() types.Timestamp
	Signature() types.Signature
	// WriteTo appends the transition's signature-source encoding. No
	// variant tag is written; the two variants are distinguished only by
	// the caller's own schema.
	WriteTo(e *wire.Encoder)
	// Verify checks the embedded signature against the transition's
	// content.
	Verify() error
	// IsGeneration reports whether this transition issues new coin rather
	// than moving existing coin from a sender.
	IsGeneration() bool
}

// Transfer moves quantity coin from sender to receiver. It is signed by the
// sender over (sender‖receiver‖quantity‖timestamp).
type Transfer struct {
	sender    types.Address
	receiver  types.Address
	quantity  types.Coin
	timestamp types.Timestamp
	signature types.Signature
}

// OfferTransfer builds and signs a Transfer from sender's key to receiver.
func OfferTransfer(sender *crypto.PrivateKey, receiver types.Address, quantity types.Coin) Transfer {
	t := Transfer{
		sender:    sender.PublicKey(),
		receiver:  receiver,
		quantity:  quantity,
		timestamp: types.Now(),
	}
	t.signature = sender.Sign(wire.Encode(t))
	return t
}

// NewTransfer reconstructs a Transfer received over the wire, with no
// signature verification performed; call Verify before trusting it.
func NewTransfer(sender, receiver types.Address, quantity types.Coin, timestamp types.Timestamp, signature types.Signature) Transfer {
	return Transfer{sender: sender, receiver: receiver, quantity: quantity, timestamp: timestamp, signature: signature}
}

func (t Transfer) Sender() types.Address         { return t.sender }
func (t Transfer) Receiver() types.Address        { return t.receiver }
func (t Transfer) Quantity() types.Coin           { return t.quantity }
func (t Transfer) Timestamp() types.Timestamp     { return t.timestamp }
func (t Transfer) Signature() types.Signature     { return t.signature }
func (t Transfer) IsGeneration() bool             { return false }

// WriteTo appends (sender‖receiver‖quantity‖timestamp).
func (t Transfer) WriteTo(e *wire.Encoder) {
	e.WriteAddress(t.sender)
	e.WriteAddress(t.receiver)
	e.WriteCoin(t.quantity)
	e.WriteTimestamp(t.timestamp)
}

// Verify checks that sender's signature covers this transfer's content.
func (t Transfer) Verify() error {
	if !crypto.VerifySignature(t.sender, wire.Encode(t), t.signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Generation issues quantity new coin to receiver. It is signed by the
// receiver over (receiver‖quantity‖timestamp) — the receiver authorizes
// their own issuance (used for the coinbase / mining reward).
type Generation struct {
	receiver  types.Address
	quantity  types.Coin
	timestamp types.Timestamp
	signature types.Signature
}

// OfferGeneration builds and signs a Generation for receiver's own key.
func OfferGeneration(receiver *crypto.PrivateKey, quantity types.Coin) Generation {
	g := Generation{
		receiver:  receiver.PublicKey(),
		quantity:  quantity,
		timestamp: types.Now(),
	}
	g.signature = receiver.Sign(wire.Encode(g))
	return g
}

// NewGeneration reconstructs a Generation received over the wire, with no
// signature verification performed; call Verify before trusting it.
func NewGeneration(receiver types.Address, quantity types.Coin, timestamp types.Timestamp, signature types.Signature) Generation {
	return Generation{receiver: receiver, quantity: quantity, timestamp: timestamp, signature: signature}
}

func (g Generation) Receiver() types.Address    { return g.receiver }
func (g Generation) Quantity() types.Coin       { return g.quantity }
func (g Generation) Timestamp() types.Timestamp { return g.timestamp }
func (g Generation) Signature() types.Signature { return g.signature }
func (g Generation) IsGeneration() bool         { return true }

// WriteTo appends (receiver‖quantity‖timestamp).
func (g Generation) WriteTo(e *wire.Encoder) {
	e.WriteAddress(g.receiver)
	e.WriteCoin(g.quantity)
	e.WriteTimestamp(g.timestamp)
}

// Verify checks that receiver's signature covers this generation's content.
func (g Generation) Verify() error {
	if !crypto.VerifySignature(g.receiver, wire.Encode(g), g.signature) {
		return ErrInvalidSignature
	}
	return nil
}
