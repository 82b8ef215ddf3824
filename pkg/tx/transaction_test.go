package tx

import "testing"

func TestTransactionOfferVerify(t *testing.T) {
	inputSender := mustKey(t)
	contractor := mustKey(t)
	outputReceiver := mustKey(t)

	input := OfferTransfer(inputSender, contractor.PublicKey(), 42)
	output := OfferTransfer(contractor, outputReceiver.PublicKey(), 42)

	txn := OfferTransaction(contractor, []Transition{input}, []Transition{output})
	if err := txn.Verify(); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
}

func TestTransactionQuantityMismatch(t *testing.T) {
	inputSender := mustKey(t)
	contractor := mustKey(t)
	outputReceiver := mustKey(t)

	input := OfferTransfer(inputSender, contractor.PublicKey(), 10)
	output := OfferTransfer(contractor, outputReceiver.PublicKey(), 11)

	txn := OfferTransaction(contractor, []Transition{input}, []Transition{output})
	if err := txn.VerifyTransaction(); err != ErrQuantityMismatch {
		t.Fatalf("expected ErrQuantityMismatch, got %v", err)
	}
}

func TestTransactionEmptyOutputs(t *testing.T) {
	contractor := mustKey(t)
	inputSender := mustKey(t)
	input := OfferTransfer(inputSender, contractor.PublicKey(), 1)

	txn := OfferTransaction(contractor, []Transition{input}, nil)
	if err := txn.VerifyTransaction(); err != ErrEmptyOutput {
		t.Fatalf("expected ErrEmptyOutput, got %v", err)
	}
}

func TestTransactionReceiverMismatch(t *testing.T) {
	contractor := mustKey(t)
	inputSender := mustKey(t)
	someoneElse := mustKey(t)
	outputReceiver := mustKey(t)

	input := OfferTransfer(inputSender, someoneElse.PublicKey(), 5)
	output := OfferTransfer(contractor, outputReceiver.PublicKey(), 1)

	txn := OfferTransaction(contractor, []Transition{input}, []Transition{output})
	if err := txn.VerifyTransaction(); err != ErrReceiverMismatch {
		t.Fatalf("expected ErrReceiverMismatch, got %v", err)
	}
}

func TestTransactionSenderMismatch(t *testing.T) {
	contractor := mustKey(t)
	inputSender := mustKey(t)
	someoneElse := mustKey(t)
	outputReceiver := mustKey(t)

	input := OfferTransfer(inputSender, contractor.PublicKey(), 5)
	output := OfferTransfer(someoneElse, outputReceiver.PublicKey(), 1)

	txn := OfferTransaction(contractor, []Transition{input}, []Transition{output})
	if err := txn.VerifyTransaction(); err != ErrSenderMismatch {
		t.Fatalf("expected ErrSenderMismatch, got %v", err)
	}
}

func TestTransactionPureCoinbase(t *testing.T) {
	contractor := mustKey(t)
	gen := OfferGeneration(contractor, 50)

	txn := OfferTransaction(contractor, nil, []Transition{gen})
	if err := txn.Verify(); err != nil {
		t.Fatalf("pure coinbase transaction should verify, got: %v", err)
	}
}

func TestTransactionInvalidTimestamp(t *testing.T) {
	contractor := mustKey(t)
	inputSender := mustKey(t)
	outputReceiver := mustKey(t)

	input := OfferTransfer(inputSender, contractor.PublicKey(), 10)
	output := OfferTransfer(contractor, outputReceiver.PublicKey(), 10)

	txn := OfferTransaction(contractor, []Transition{input}, []Transition{output})
	txn.Timestamp = input.Timestamp() - 1 // backdate the transaction itself

	if err := txn.VerifyTransaction(); err != ErrInvalidTimestamp {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestTransactionVerifyTransitionsPropagates(t *testing.T) {
	contractor := mustKey(t)
	inputSender := mustKey(t)
	outputReceiver := mustKey(t)

	input := OfferTransfer(inputSender, contractor.PublicKey(), 10)
	input.quantity = 999 // invalidate the input's own signature
	output := OfferTransfer(contractor, outputReceiver.PublicKey(), 10)

	txn := OfferTransaction(contractor, []Transition{input}, []Transition{output})
	if err := txn.Verify(); err == nil {
		t.Fatal("expected Verify() to fail due to a tampered input transition")
	}
}
