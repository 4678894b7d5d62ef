package lsg2

import (
	"encoding/json"
	"io"
	"math"
	"math/bits"

	"github.com/icza/bitio"
	"github.com/lasagna-io/lsg2/internal/errs"
)

// Signature is present at the beginning of each LSG2 container, in place of
// the teacher's "fLaC" magic.
const Signature = "LSG2"

// Version is the only defined container version.
const Version = 1

// Fixed byte widths of the container's structural regions.
const (
	fileHeaderLen         = 28
	segmentEntryLen       = 64
	residualSectionHdrLen = 16
	residualBlockHdrLen   = 12
)

// contextJSON is the on-wire shape of the metadata blob: {"sampling":
// {"dt":...,"t0":...},"unit":...}. Field order and json tags fix the key
// order and separators the encoder emits; a Go struct with these fields in
// this order already produces the stable, minimal-separator layout
// encoding/json's Marshal is required to produce, with no third-party JSON
// library needed (see DESIGN.md).
type contextJSON struct {
	Sampling struct {
		Dt float64 `json:"dt"`
		T0 string  `json:"t0"`
	} `json:"sampling"`
	Unit string `json:"unit"`
}

// decodeContextJSON tolerates any valid JSON object carrying the three
// interpreted fields; unknown keys don't break decoding but are not
// round-tripped, since Metadata has no field to hold them.
func decodeContextJSON(data []byte) (Metadata, error) {
	var c contextJSON
	if err := json.Unmarshal(data, &c); err != nil {
		return Metadata{}, errs.Wrap(errs.InvalidFormat, err, "decode context JSON")
	}
	return Metadata{Dt: c.Sampling.Dt, T0: c.Sampling.T0, Unit: c.Unit}, nil
}

func encodeContextJSON(md Metadata) ([]byte, error) {
	var c contextJSON
	c.Sampling.Dt = md.Dt
	c.Sampling.T0 = md.T0
	c.Unit = md.Unit
	b, err := json.Marshal(&c)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "encode context JSON")
	}
	return b, nil
}

// writeU32/writeU16/writeF64 write a single fixed-width little-endian field
// through the bitio.Writer. bitio.Writer.WriteBits packs its value MSB-first
// (the same shape the teacher uses for Rice-coded payloads, where bit order
// within a byte matters but byte order across a multi-byte value never
// arises), so a raw WriteBits(v, 32) would put v's most significant byte on
// the wire first: big-endian, not the little-endian layout spec.md §4.6
// requires. Byte-reversing v before the call makes WriteBits's MSB-first
// emission land the bytes in little-endian order instead.
func writeU32(w *bitio.Writer, v uint32) error {
	return w.WriteBits(uint64(bits.ReverseBytes32(v)), 32)
}

func writeU16(w *bitio.Writer, v uint16) error {
	return w.WriteBits(uint64(bits.ReverseBytes16(v)), 16)
}

func writeF64(w *bitio.Writer, v float64) error {
	return w.WriteBits(bits.ReverseBytes64(math.Float64bits(v)), 64)
}

// readU32/readU16/readF64 undo the byte-reversal writeU32/writeU16/writeF64
// apply: ReadBits reassembles its bytes MSB-first, so the value it returns
// is byte-reversed relative to the little-endian field that was written;
// reversing it back recovers the original value.
func readU32(r *bitio.Reader) (uint32, error) {
	v, err := r.ReadBits(32)
	if err != nil {
		return 0, errs.Wrap(errs.Truncated, err, "read u32")
	}
	return bits.ReverseBytes32(uint32(v)), nil
}

func readU16(r *bitio.Reader) (uint16, error) {
	v, err := r.ReadBits(16)
	if err != nil {
		return 0, errs.Wrap(errs.Truncated, err, "read u16")
	}
	return bits.ReverseBytes16(uint16(v)), nil
}

func readF64(r *bitio.Reader) (float64, error) {
	v, err := r.ReadBits(64)
	if err != nil {
		return 0, errs.Wrap(errs.Truncated, err, "read f64")
	}
	return math.Float64frombits(bits.ReverseBytes64(v)), nil
}

// writeBytes writes raw bytes through the same byte-aligned writer used
// for fixed-width fields; used for the magic and the context JSON blob.
func writeBytes(w *bitio.Writer, p []byte) error {
	_, err := w.Write(p)
	return err
}

func readBytes(r *bitio.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errs.Wrap(errs.Truncated, err, "read bytes")
	}
	return buf, nil
}
