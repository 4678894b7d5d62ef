// Package bitcodec implements the leaf integer coding used by LSG2 residual
// blocks: ZigZag mapping of signed to unsigned integers, and little-endian
// base-128 varint encoding. Ported from github.com/mewkiz/flac's
// internal/bits package (zigzag.go, unary.go), generalized from FLAC's Rice
// coding to LSG2's varint coding.
package bitcodec

// EncodeZigZag maps a signed 32-bit integer to an unsigned 32-bit integer,
// folding small-magnitude negative values next to small-magnitude positive
// ones so that varint coding stays short for residuals clustered around
// zero.
//
// Examples of integer input on the left and ZigZag encoded values on the
// right:
//
//	 0 => 0
//	-1 => 1
//	 1 => 2
//	-2 => 3
//	 2 => 4
//
// The shift width is fixed at 32 bits as part of the on-wire contract:
// quantized residuals are stored as signed 32-bit integers, and a decoder
// using a different width would disagree with the encoder on every
// negative residual.
func EncodeZigZag(n int32) uint32 {
	return uint32(n<<1) ^ uint32(n>>31)
}

// DecodeZigZag is the inverse of EncodeZigZag.
//
// Examples of ZigZag encoded values on the left and decoded values on the
// right:
//
//	0 =>  0
//	1 => -1
//	2 =>  1
//	3 => -2
//	4 =>  2
func DecodeZigZag(z uint32) int32 {
	return int32(z>>1) ^ -int32(z&1)
}
