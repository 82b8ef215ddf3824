package tx

import (
	"errors"
	"fmt"

	"github.com/klingnet-chain/node/pkg/crypto"
	"github.com/klingnet-chain/node/pkg/types"
	"github.com/klingnet-chain/node/pkg/wire"
)

// Structural validation errors, checked in this order by VerifyTransaction.
var (
	ErrEmptyOutput      = errors.New("transaction has no outputs")
	ErrSenderMismatch   = errors.New("output transfer sender is not the contractor")
	ErrReceiverMismatch = errors.New("input receiver is not the contractor")
	ErrQuantityMismatch = errors.New("input quantity is less than output quantity")
	ErrInvalidTimestamp = errors.New("transition timestamp is newer than transaction timestamp")
)

// Transaction bundles input and output transitions under one contractor
// signature. At least one output is required; inputs may be empty only
// when every output is a Generation (a pure coinbase transaction).
type Transaction struct {
	Contractor types.Address
	Inputs     []Transition
	Outputs    []Transition
	Timestamp  types.Timestamp
	Signature  types.Signature
}

// OfferTransaction builds and signs a Transaction over the given inputs and
// outputs, stamping the current time.
func OfferTransaction(contractor *crypto.PrivateKey, inputs, outputs []Transition) Transaction {
	tx := Transaction{
		Contractor: contractor.PublicKey(),
		Inputs:     inputs,
		Outputs:    outputs,
		Timestamp:  types.Now(),
	}
	tx.Signature = contractor.Sign(wire.Encode(tx))
	return tx
}

// WriteTo appends (contractor‖inputs‖outputs‖timestamp). Each transition
// writes its own content with no variant tag or length prefix; the
// transaction carries no information to redecode this byte stream, only to
// reproduce it deterministically for signing.
func (tx Transaction) WriteTo(e *wire.Encoder) {
	e.WriteAddress(tx.Contractor)
	for _, in := range tx.Inputs {
		in.WriteTo(e)
	}
	for _, out := range tx.Outputs {
		out.WriteTo(e)
	}
	e.WriteTimestamp(tx.Timestamp)
}

// VerifyTransitions verifies every embedded transition's own signature,
// lifting the transaction from unverified to transition-verified.
func (tx Transaction) VerifyTransitions() error {
	for i, in := range tx.Inputs {
		if err := in.Verify(); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	for i, out := range tx.Outputs {
		if err := out.Verify(); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	return nil
}

// VerifyTransaction checks the transaction's own structural invariants,
// assuming every contained transition has already been verified. Checks run
// in the order the failure variants are defined.
func (tx Transaction) VerifyTransaction() error {
	if len(tx.Outputs) == 0 {
		return ErrEmptyOutput
	}

	for _, in := range tx.Inputs {
		if in.Receiver() != tx.Contractor {
			return ErrReceiverMismatch
		}
	}

	var outputSum types.Coin
	for i, out := range tx.Outputs {
		if out.IsGeneration() {
			continue
		}
		transfer, ok := out.(Transfer)
		if !ok || transfer.Sender() != tx.Contractor {
			return ErrSenderMismatch
		}
		sum, err := outputSum.Add(out.Quantity())
		if err != nil {
			return fmt.Errorf("output %d: %w", i, ErrQuantityMismatch)
		}
		outputSum = sum
	}

	var inputSum types.Coin
	for _, in := range tx.Inputs {
		sum, err := inputSum.Add(in.Quantity())
		if err != nil {
			return ErrQuantityMismatch
		}
		inputSum = sum
	}
	if inputSum < outputSum {
		return ErrQuantityMismatch
	}

	for _, in := range tx.Inputs {
		if in.Timestamp().After(tx.Timestamp) {
			return ErrInvalidTimestamp
		}
	}
	for _, out := range tx.Outputs {
		if out.Timestamp().After(tx.Timestamp) {
			return ErrInvalidTimestamp
		}
	}

	if !crypto.VerifySignature(tx.Contractor, wire.Encode(tx), tx.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Verify fully verifies a transaction received over the wire: first every
// contained transition, then the transaction's own structural invariants.
func (tx Transaction) Verify() error {
	if err := tx.VerifyTransitions(); err != nil {
		return err
	}
	return tx.VerifyTransaction()
}
