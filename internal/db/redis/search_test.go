package redis

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestVectorToBytes(t *testing.T) {
	got := vectorToBytes([]float32{1.5, -2})
	if len(got) != 8 {
		t.Fatalf("want 8 bytes, got %d", len(got))
	}
	first := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got)))
	second := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got)[4:]))
	if first != 1.5 || second != -2 {
		t.Fatalf("round trip gave %f, %f", first, second)
	}
}

func TestEscapeTag(t *testing.T) {
	cases := map[string]string{
		"SKU-123":     `SKU\-123`,
		"plain":       "plain",
		"a b":         `a\ b`,
		"x{y}":        `x\{y\}`,
		"dot.and,com": `dot\.and\,com`,
	}
	for in, want := range cases {
		if got := escapeTag(in); got != want {
			t.Errorf("escapeTag(%q) = %q, want %q", in, got, want)
		}
	}
}
