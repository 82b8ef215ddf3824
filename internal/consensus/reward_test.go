package consensus

import (
	"testing"

	"github.com/klingnet-chain/node/pkg/types"
)

func TestFixedReward(t *testing.T) {
	r := FixedReward(50)
	for _, h := range []types.BlockHeight{0, 1, 1000, 1 << 40} {
		if got := r(h); got != 50 {
			t.Fatalf("FixedReward(50)(%d) = %d, want 50", h, got)
		}
	}
}

func TestHalvingReward(t *testing.T) {
	r := HalvingReward(100, 10)
	cases := []struct {
		height types.BlockHeight
		want   types.Coin
	}{
		{0, 100},
		{9, 100},
		{10, 50},
		{19, 50},
		{20, 25},
		{1000, 0}, // 100 halvings, floored at zero well before then
	}
	for _, c := range cases {
		if got := r(c.height); got != c.want {
			t.Errorf("HalvingReward(100,10)(%d) = %d, want %d", c.height, got, c.want)
		}
	}
}

func TestHalvingRewardZeroInterval(t *testing.T) {
	r := HalvingReward(42, 0)
	if got := r(999999); got != 42 {
		t.Fatalf("HalvingReward with interval 0 = %d, want constant 42", got)
	}
}
