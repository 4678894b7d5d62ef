package bitcodec

import (
	"io"

	"github.com/lasagna-io/lsg2/internal/errs"
)

// maxVarintBytes bounds the number of continuation bytes a single varint
// may span before decode gives up and reports Overflow. Ten 7-bit groups
// cover 70 bits of payload, comfortably more than the 32-bit ZigZag values
// this codec ever produces; anything longer is a hostile or corrupt input.
const maxVarintBytes = 10

// EncodeVarint writes u to w as little-endian base-128 varint: each byte
// carries 7 payload bits, with the high bit set to signal that another byte
// follows. Mirrors the teacher's WriteUnary loop shape (peel off chunks,
// write a terminator byte) adapted from unary to 7-bit groups.
func EncodeVarint(w io.ByteWriter, u uint32) error {
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			if err := w.WriteByte(b | 0x80); err != nil {
				return err
			}
			continue
		}
		return w.WriteByte(b)
	}
}

// DecodeVarint reads one little-endian base-128 varint from r.
//
// It fails with errs.Truncated if the input ends before a terminator byte
// is read, and errs.Overflow if more than 10 bytes are consumed without
// termination (accumulated shift would exceed 63).
func DecodeVarint(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, errs.Wrap(errs.Truncated, err, "varint: truncated before terminator byte")
		}
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, errs.New(errs.Overflow, "varint: consumed more than %d bytes without terminator", maxVarintBytes)
}

// DecodeVarintN decodes exactly n signed integers (ZigZag+varint coded)
// from r. Trailing bytes left in r after the nth value are permitted and
// ignored per the codec's permissive trailing-bytes rule; callers that care
// whether any bytes were left over can inspect r themselves afterward.
func DecodeVarintN(r io.ByteReader, n int) ([]int32, error) {
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		z, err := DecodeVarint(r)
		if err != nil {
			return nil, err
		}
		out[i] = DecodeZigZag(z)
	}
	return out, nil
}

// EncodeVarintN encodes a slice of signed integers as the concatenation of
// ZigZag+varint codes, in order.
func EncodeVarintN(w io.ByteWriter, values []int32) error {
	for _, v := range values {
		if err := EncodeVarint(w, EncodeZigZag(v)); err != nil {
			return err
		}
	}
	return nil
}
