package bitcodec

import "testing"

func TestEncodeZigZag(t *testing.T) {
	golden := []struct {
		n    int32
		want uint32
	}{
		{n: 0, want: 0},
		{n: -1, want: 1},
		{n: 1, want: 2},
		{n: -2, want: 3},
		{n: 2, want: 4},
		{n: -3, want: 5},
		{n: 3, want: 6},
	}
	for _, g := range golden {
		got := EncodeZigZag(g.n)
		if got != g.want {
			t.Errorf("EncodeZigZag(%d) = %d, want %d", g.n, got, g.want)
		}
	}
}

func TestDecodeZigZag(t *testing.T) {
	golden := []struct {
		z    uint32
		want int32
	}{
		{z: 0, want: 0},
		{z: 1, want: -1},
		{z: 2, want: 1},
		{z: 3, want: -2},
		{z: 4, want: 2},
		{z: 5, want: -3},
		{z: 6, want: 3},
	}
	for _, g := range golden {
		got := DecodeZigZag(g.z)
		if got != g.want {
			t.Errorf("DecodeZigZag(%d) = %d, want %d", g.z, got, g.want)
		}
	}
}

func TestZigZagRoundTrip(t *testing.T) {
	for _, n := range []int32{0, 1, -1, 2147483647, -2147483648, 12345, -54321} {
		got := DecodeZigZag(EncodeZigZag(n))
		if got != n {
			t.Errorf("round-trip mismatch for n=%d: got %d", n, got)
		}
	}
}
