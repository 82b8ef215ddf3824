package consensus

import (
	"testing"

	"github.com/klingnet-chain/node/pkg/types"
)

func TestPacemakerInsufficientHistory(t *testing.T) {
	p := Pacemaker{Easiest: 4}
	if got := p.Suggest(nil); got != 4 {
		t.Fatalf("Suggest(nil) = %d, want 4", got)
	}
	history := []DifficultyAt{{Difficulty: 10, Timestamp: 0}, {Difficulty: 10, Timestamp: 100}}
	if got := p.Suggest(history); got != 4 {
		t.Fatalf("Suggest(2 entries) = %d, want 4", got)
	}
}

func TestPacemakerRaisesWhenAccelerating(t *testing.T) {
	p := Pacemaker{Easiest: 1}
	history := []DifficultyAt{
		{Difficulty: 10, Timestamp: 0},
		{Difficulty: 10, Timestamp: 1000}, // old gap: 1000
		{Difficulty: 10, Timestamp: 1100}, // new gap: 100, old > 2*new
	}
	if got := p.Suggest(history); got != 11 {
		t.Fatalf("Suggest = %d, want 11 (raised)", got)
	}
}

func TestPacemakerEasesWhenSlowing(t *testing.T) {
	p := Pacemaker{Easiest: 1}
	history := []DifficultyAt{
		{Difficulty: 10, Timestamp: 0},
		{Difficulty: 10, Timestamp: 100},  // old gap: 100
		{Difficulty: 10, Timestamp: 1100}, // new gap: 1000, 2*old < new
	}
	if got := p.Suggest(history); got != 9 {
		t.Fatalf("Suggest = %d, want 9 (eased)", got)
	}
}

func TestPacemakerEaseFloorsAtEasiest(t *testing.T) {
	p := Pacemaker{Easiest: 10}
	history := []DifficultyAt{
		{Difficulty: 10, Timestamp: 0},
		{Difficulty: 10, Timestamp: 100},
		{Difficulty: 10, Timestamp: 1100},
	}
	if got := p.Suggest(history); got != 10 {
		t.Fatalf("Suggest = %d, want 10 (floored at Easiest)", got)
	}
}

func TestPacemakerHoldsWhenStable(t *testing.T) {
	p := Pacemaker{Easiest: 1}
	history := []DifficultyAt{
		{Difficulty: 10, Timestamp: 0},
		{Difficulty: 10, Timestamp: 100},
		{Difficulty: 10, Timestamp: 150},
	}
	if got := p.Suggest(history); got != 10 {
		t.Fatalf("Suggest = %d, want 10 (held)", got)
	}
}

func TestPacemakerUsesOnlyLastThree(t *testing.T) {
	p := Pacemaker{Easiest: 1}
	history := []DifficultyAt{
		{Difficulty: 99, Timestamp: 0},
		{Difficulty: 99, Timestamp: 50000}, // would suggest a huge raise if considered
		{Difficulty: 5, Timestamp: 50100},
		{Difficulty: 5, Timestamp: 50200},
		{Difficulty: 5, Timestamp: 50250},
	}
	got := p.Suggest(history)
	if got == 99 || got > 6 {
		t.Fatalf("Suggest = %d, expected to ignore entries older than the last three", got)
	}
}

func TestDifficultyRaiseSaturates(t *testing.T) {
	if got := types.Difficulty(255).Raise(1); got != 255 {
		t.Fatalf("Raise at ceiling = %d, want 255", got)
	}
}
