package transport

import (
	"encoding/json"
	"fmt"

	"github.com/klingnet-chain/node/pkg/block"
	"github.com/klingnet-chain/node/pkg/tx"
	"github.com/klingnet-chain/node/pkg/types"
)

// The canonical encoding in pkg/wire exists only to produce the bytes a
// signature or digest commits to; it never round-trips and it never
// tags which Transition variant it is writing (§6: "the core does not
// hash the tag"). Wire transport needs the opposite: a self-describing,
// round-trippable encoding, so this codec gives the tagged union an
// explicit "kind" field and leans on encoding/json the same way the
// teacher's gossip.go does for its own pubsub payloads.

type transitionWire struct {
	Kind      string           `json:"kind"`
	Sender    *types.Address   `json:"sender,omitempty"`
	Receiver  types.Address    `json:"receiver"`
	Quantity  types.Coin       `json:"quantity"`
	Timestamp types.Timestamp  `json:"timestamp"`
	Signature types.Signature  `json:"signature"`
}

func encodeTransition(t tx.Transition) transitionWire {
	w := transitionWire{
		Receiver:  t.Receiver(),
		Quantity:  t.Quantity(),
		Timestamp: t.Timestamp(),
		Signature: t.Signature(),
	}
	if xfer, ok := t.(tx.Transfer); ok {
		w.Kind = "transfer"
		sender := xfer.Sender()
		w.Sender = &sender
		return w
	}
	w.Kind = "generation"
	return w
}

func decodeTransition(w transitionWire) (tx.Transition, error) {
	switch w.Kind {
	case "transfer":
		if w.Sender == nil {
			return nil, fmt.Errorf("transfer transition missing sender")
		}
		return tx.NewTransfer(*w.Sender, w.Receiver, w.Quantity, w.Timestamp, w.Signature), nil
	case "generation":
		return tx.NewGeneration(w.Receiver, w.Quantity, w.Timestamp, w.Signature), nil
	default:
		return nil, fmt.Errorf("unknown transition kind %q", w.Kind)
	}
}

type transactionWire struct {
	Contractor types.Address    `json:"contractor"`
	Inputs     []transitionWire `json:"inputs"`
	Outputs    []transitionWire `json:"outputs"`
	Timestamp  types.Timestamp  `json:"timestamp"`
	Signature  types.Signature  `json:"signature"`
}

func encodeTransaction(t tx.Transaction) transactionWire {
	w := transactionWire{
		Contractor: t.Contractor,
		Timestamp:  t.Timestamp,
		Signature:  t.Signature,
	}
	for _, in := range t.Inputs {
		w.Inputs = append(w.Inputs, encodeTransition(in))
	}
	for _, out := range t.Outputs {
		w.Outputs = append(w.Outputs, encodeTransition(out))
	}
	return w
}

func decodeTransaction(w transactionWire) (tx.Transaction, error) {
	txn := tx.Transaction{
		Contractor: w.Contractor,
		Timestamp:  w.Timestamp,
		Signature:  w.Signature,
	}
	for i, in := range w.Inputs {
		t, err := decodeTransition(in)
		if err != nil {
			return tx.Transaction{}, fmt.Errorf("input %d: %w", i, err)
		}
		txn.Inputs = append(txn.Inputs, t)
	}
	for i, out := range w.Outputs {
		t, err := decodeTransition(out)
		if err != nil {
			return tx.Transaction{}, fmt.Errorf("output %d: %w", i, err)
		}
		txn.Outputs = append(txn.Outputs, t)
	}
	return txn, nil
}

// EncodeTransaction serializes t for the CreateTransaction topic.
func EncodeTransaction(t tx.Transaction) ([]byte, error) {
	return json.Marshal(encodeTransaction(t))
}

// DecodeTransaction parses a CreateTransaction payload. The result is
// freshly reconstructed and carries no assumption that it was ever
// verified; callers must call Verify themselves.
func DecodeTransaction(data []byte) (tx.Transaction, error) {
	var w transactionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return tx.Transaction{}, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return decodeTransaction(w)
}

type blockWire struct {
	Height         types.BlockHeight `json:"height"`
	Transactions   []transactionWire `json:"transactions"`
	Timestamp      types.Timestamp   `json:"timestamp"`
	PreviousDigest types.BlockDigest `json:"previous_digest"`
	Difficulty     types.Difficulty  `json:"difficulty"`
	Nonce          uint64            `json:"nonce"`
	Digest         types.BlockDigest `json:"digest"`
}

// EncodeBlock serializes b for the NotifyBlock topic. b's Witness flags
// are not carried: §6 requires recipients to re-verify from scratch, so
// there is nothing for the wire form to assert about verification state.
func EncodeBlock(b block.Block) ([]byte, error) {
	w := blockWire{
		Height:         b.Height,
		Timestamp:      b.Timestamp,
		PreviousDigest: b.PreviousDigest,
		Difficulty:     b.Difficulty,
		Nonce:          b.Nonce,
		Digest:         b.Digest,
	}
	for _, t := range b.Transactions {
		w.Transactions = append(w.Transactions, encodeTransaction(t))
	}
	return json.Marshal(w)
}

// DecodeBlock parses a NotifyBlock payload. The result always has a zero
// Witness; the caller runs the full six-stage pipeline before trusting it.
func DecodeBlock(data []byte) (block.Block, error) {
	var w blockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return block.Block{}, fmt.Errorf("unmarshal block: %w", err)
	}
	b := block.Block{
		Height:         w.Height,
		Timestamp:      w.Timestamp,
		PreviousDigest: w.PreviousDigest,
		Difficulty:     w.Difficulty,
		Nonce:          w.Nonce,
		Digest:         w.Digest,
	}
	for i, wt := range w.Transactions {
		t, err := decodeTransaction(wt)
		if err != nil {
			return block.Block{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		b.Transactions = append(b.Transactions, t)
	}
	return b, nil
}

// EncodeHeight serializes h for the NotifyBlockHeight topic.
func EncodeHeight(h types.BlockHeight) ([]byte, error) {
	return json.Marshal(h)
}

// DecodeHeight parses a NotifyBlockHeight payload.
func DecodeHeight(data []byte) (types.BlockHeight, error) {
	var h types.BlockHeight
	if err := json.Unmarshal(data, &h); err != nil {
		return 0, fmt.Errorf("unmarshal height: %w", err)
	}
	return h, nil
}

// EncodeAddress serializes addr for the RequestUtxoByAddress topic.
func EncodeAddress(addr types.Address) ([]byte, error) {
	return json.Marshal(addr)
}

// DecodeAddress parses a RequestUtxoByAddress payload.
func DecodeAddress(data []byte) (types.Address, error) {
	var addr types.Address
	if err := json.Unmarshal(data, &addr); err != nil {
		return types.Address{}, fmt.Errorf("unmarshal address: %w", err)
	}
	return addr, nil
}

// utxoResponseWire pairs the queried address with its live transitions so
// a subscriber can match responses to its own request on a shared topic.
type utxoResponseWire struct {
	Holder      types.Address    `json:"holder"`
	Transitions []transitionWire `json:"transitions"`
}

// EncodeUtxoResponse serializes a RespondUtxoByAddress payload.
func EncodeUtxoResponse(holder types.Address, transitions []tx.Transition) ([]byte, error) {
	w := utxoResponseWire{Holder: holder}
	for _, t := range transitions {
		w.Transitions = append(w.Transitions, encodeTransition(t))
	}
	return json.Marshal(w)
}

// DecodeUtxoResponse parses a RespondUtxoByAddress payload.
func DecodeUtxoResponse(data []byte) (types.Address, []tx.Transition, error) {
	var w utxoResponseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return types.Address{}, nil, fmt.Errorf("unmarshal utxo response: %w", err)
	}
	out := make([]tx.Transition, 0, len(w.Transitions))
	for i, wt := range w.Transitions {
		t, err := decodeTransition(wt)
		if err != nil {
			return types.Address{}, nil, fmt.Errorf("transition %d: %w", i, err)
		}
		out = append(out, t)
	}
	return w.Holder, out, nil
}
