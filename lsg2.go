// Package lsg2 implements the LSG2 container codec for univariate numeric
// time series: adaptive piecewise segmentation, per-segment predictor
// fitting, residual quantization with a data-driven step, two residual
// codings, and a little-endian binary container that round-trips a
// reconstructed approximation of the original sequence.
//
// The package is structured the way github.com/mewkiz/flac layers its
// frame/meta parsing underneath flac.NewStream/flac.Encode: pure leaf
// packages (internal/bitcodec, segment, internal/quantize,
// internal/segmenter) are orchestrated by the container codec in this
// package (container.go, encode.go, decode.go, inspect.go).
package lsg2

import "github.com/lasagna-io/lsg2/segment"

// Hostile-input guards, fixed as part of the on-wire contract; never
// mutated at runtime.
const (
	MaxPoints   = 10_000_000
	MaxSegments = 1_000_000
)

// Default quantizer constants.
const (
	DefaultCQ   = 0.5
	DefaultQMin = 1e-6
)

// TimeSeries is an ordered sequence of samples paired with sampling
// metadata. T0 is opaque to the codec (ISO-8601 recommended, not
// validated).
type TimeSeries struct {
	Values []float64
	Dt     float64
	T0     string
	Unit   string
}

// SegmentEntry describes one contiguous run of samples and the predictor
// fit over it.
type SegmentEntry struct {
	StartIdx, EndIdx uint32
	Predictor        segment.Predictor
	Mean             float64
	Slope            float64
	Intercept        float64
	QuantStepQ       float64
	SeedValue        float64
}

// Len returns the number of samples the segment covers.
func (s SegmentEntry) Len() int {
	return int(s.EndIdx-s.StartIdx) + 1
}

// SegmentMode selects how the encoder partitions the input.
type SegmentMode uint8

const (
	// Fixed partitions the input into consecutive runs of SegmentLength
	// samples, the last possibly shorter.
	Fixed SegmentMode = iota
	// Adaptive extends each segment while a probe predictor's MSE stays
	// at or below MSEThreshold, bounded by MinSegmentLength/MaxSegmentLength.
	Adaptive
)

// PredictorChoice selects the predictor the encoder fits per segment.
type PredictorChoice uint8

const (
	PredMean PredictorChoice = iota
	PredLinear
	PredRandomWalk
	// PredAuto evaluates all three predictor types per segment end to
	// end (predict, quantize, dequantize, reconstruct) and commits the
	// one with the lowest reconstructed MSE, ties broken by lowest type ID.
	PredAuto
)

// ResidualCoding selects how quantized residuals are serialized.
type ResidualCoding uint32

const (
	CodingRaw    ResidualCoding = 0
	CodingVarint ResidualCoding = 1
)

// EncodeOptions configures Encode. CQ and QMin default to DefaultCQ and
// DefaultQMin when left zero-valued.
type EncodeOptions struct {
	SegmentMode      SegmentMode
	SegmentLength    int
	MinSegmentLength int
	MaxSegmentLength int
	MSEThreshold     float64
	Predictor        PredictorChoice
	ResidualCoding   ResidualCoding
	CQ               float64
	QMin             float64
}

// withDefaults returns a copy of opts with CQ/QMin filled in when unset.
func (o EncodeOptions) withDefaults() EncodeOptions {
	if o.CQ == 0 {
		o.CQ = DefaultCQ
	}
	if o.QMin == 0 {
		o.QMin = DefaultQMin
	}
	return o
}

// InspectResult is the header+segment-table summary returned by Inspect,
// without decoding any residual payload.
type InspectResult struct {
	Metadata Metadata
	NPoints  uint32
	Segments []SegmentEntry
	Coding   ResidualCoding
}

// Metadata is the decoded form of the container's context JSON blob.
type Metadata struct {
	Dt   float64
	T0   string
	Unit string
}
