package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/klingnet-chain/node/pkg/types"
)

func hexToDigest(t *testing.T, s string) types.BlockDigest {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var d types.BlockDigest
	copy(d[:], b)
	return d
}

func TestDigest(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := hexToDigest(t, tt.want)
			got := Digest(tt.input)
			if got != want {
				t.Errorf("Digest(%q) = %x, want %x", tt.input, got, want)
			}
		})
	}
}

func TestDigestDeterministic(t *testing.T) {
	data := []byte("deterministic test input")
	h1 := Digest(data)
	h2 := Digest(data)
	if h1 != h2 {
		t.Errorf("Digest is not deterministic: %x != %x", h1, h2)
	}
}

func TestDigestDifferentInputs(t *testing.T) {
	h1 := Digest([]byte("input A"))
	h2 := Digest([]byte("input B"))
	if h1 == h2 {
		t.Error("different inputs produced the same digest")
	}
}
