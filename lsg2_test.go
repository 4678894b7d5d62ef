package lsg2

import (
	"math"
	"testing"

	"github.com/lasagna-io/lsg2/internal/errs"
)

func rmse(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(a)))
}

func TestEncodeDecodeFixedLinear(t *testing.T) {
	n := 200
	values := make([]float64, n)
	for i := range values {
		values[i] = 0.1 * float64(i)
	}
	ts := TimeSeries{Values: values, Dt: 60, T0: "2025-01-01T00:00:00Z", Unit: "kW"}
	opts := EncodeOptions{
		SegmentMode:    Fixed,
		SegmentLength:  50,
		Predictor:      PredLinear,
		ResidualCoding: CodingRaw,
	}

	data, err := Encode(ts, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Values) != n {
		t.Fatalf("decoded length = %d, want %d", len(got.Values), n)
	}
	if e := rmse(got.Values, values); e >= 1e-6 {
		t.Errorf("RMSE = %v, want < 1e-6", e)
	}
	if got.Dt != ts.Dt || got.T0 != ts.T0 || got.Unit != ts.Unit {
		t.Errorf("metadata mismatch: got %+v, want dt=%v t0=%v unit=%v", got, ts.Dt, ts.T0, ts.Unit)
	}

	res, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(res.Segments) != 4 {
		t.Fatalf("segment count = %d, want 4", len(res.Segments))
	}
	prevEnd := int64(-1)
	for i, seg := range res.Segments {
		if int64(seg.StartIdx) != prevEnd+1 {
			t.Errorf("segment %d: start_idx %d does not follow previous end %d", i, seg.StartIdx, prevEnd)
		}
		prevEnd = int64(seg.EndIdx)
	}
	if prevEnd != int64(n-1) {
		t.Errorf("final end_idx = %d, want %d", prevEnd, n-1)
	}
}

func TestEncodeDecodeAdaptiveAutoVarint(t *testing.T) {
	n := 300
	values := make([]float64, n)
	// Deterministic pseudo-noise standing in for N(0, 0.1^2): a fixed
	// congruential sequence, not math/rand, so the test needs no seeding.
	state := uint32(123)
	noise := func() float64 {
		state = state*1664525 + 1013904223
		return (float64(state>>8)/float64(1<<24) - 0.5) * 0.2
	}
	for i := range values {
		values[i] = math.Sin(2*math.Pi*float64(i)/50) + noise()
	}
	ts := TimeSeries{Values: values, Dt: 1, T0: "2025-01-01T00:00:00Z", Unit: "unitless"}
	opts := EncodeOptions{
		SegmentMode:      Adaptive,
		MinSegmentLength: 30,
		MaxSegmentLength: 80,
		MSEThreshold:     0.2,
		Predictor:        PredAuto,
		ResidualCoding:   CodingVarint,
	}

	data, err := Encode(ts, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Values) != n {
		t.Fatalf("decoded length = %d, want %d", len(got.Values), n)
	}
	if e := rmse(got.Values, values); e >= 0.3 {
		t.Errorf("RMSE = %v, want < 0.3", e)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := makeScenario1(t)
	_, err := Decode(data[:10])
	if !errs.Is(err, errs.Truncated) {
		t.Fatalf("expected Truncated, got %v", err)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	data := makeScenario1(t)
	corrupt := append([]byte(nil), data...)
	copy(corrupt[0:4], []byte("XXXX"))
	_, err := Decode(corrupt)
	if !errs.Is(err, errs.InvalidFormat) {
		t.Fatalf("expected InvalidFormat, got %v", err)
	}
}

func TestDecodeHostileNPoints(t *testing.T) {
	data := makeScenario1(t)
	corrupt := append([]byte(nil), data...)
	// n_points lives at file header offset 12 (magic 4 + version 2 + flags 2 + header_len 4).
	putU32LE(corrupt[12:16], 20_000_000)
	_, err := Decode(corrupt)
	if !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestDecodeWithWarningsReportsTrailingVarintBytes(t *testing.T) {
	n := 20
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	ts := TimeSeries{Values: values, Dt: 1, T0: "t0", Unit: "u"}
	opts := EncodeOptions{
		SegmentMode:    Fixed,
		SegmentLength:  n, // a single segment, so its residual block runs to EOF
		Predictor:      PredLinear,
		ResidualCoding: CodingVarint,
	}
	data, err := Encode(ts, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	headerLen := readU32LE(data[8:12])
	nSegments := readU32LE(data[16:20])
	segTableOffset := fileHeaderLen + int(headerLen)
	residualHdrOffset := segTableOffset + int(nSegments)*segmentEntryLen
	byteLenOffset := residualHdrOffset + residualSectionHdrLen + residualBlockHdrLen - 4 // seg_id, seg_len precede byte_len

	corrupt := append([]byte(nil), data...)
	corrupt = append(corrupt, 0x00) // surplus trailing byte on the final (only) residual block
	putU32LE(corrupt[byteLenOffset:byteLenOffset+4], readU32LE(data[byteLenOffset:byteLenOffset+4])+1)

	got, warnings, err := DecodeWithWarnings(corrupt)
	if err != nil {
		t.Fatalf("DecodeWithWarnings: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly 1", warnings)
	}
	if e := rmse(got.Values, values); e >= 1e-6 {
		t.Errorf("RMSE = %v, want < 1e-6 despite trailing byte", e)
	}

	// Decode ignores the same condition rather than erroring.
	if _, err := Decode(corrupt); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestEncodeDecodeConstantMean(t *testing.T) {
	n := 100
	values := make([]float64, n)
	for i := range values {
		values[i] = 42.0
	}
	ts := TimeSeries{Values: values, Dt: 1, T0: "t0", Unit: "u"}
	opts := EncodeOptions{
		SegmentMode:    Fixed,
		SegmentLength:  n,
		Predictor:      PredMean,
		ResidualCoding: CodingRaw,
	}
	data, err := Encode(ts, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, v := range got.Values {
		if math.Abs(v-42.0) > DefaultQMin+1e-12 {
			t.Errorf("value %d = %v, want ~42.0", i, v)
		}
	}
	res, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if res.Segments[0].QuantStepQ != DefaultQMin {
		t.Errorf("Q = %v, want Q_MIN %v", res.Segments[0].QuantStepQ, DefaultQMin)
	}
}

func TestEncodeRejectsEmptyInput(t *testing.T) {
	_, err := Encode(TimeSeries{}, EncodeOptions{SegmentMode: Fixed, SegmentLength: 10})
	if !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestEncodeRejectsBadOptions(t *testing.T) {
	ts := TimeSeries{Values: []float64{1, 2, 3}}
	_, err := Encode(ts, EncodeOptions{SegmentMode: Fixed, SegmentLength: 0})
	if !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput for segment_length=0, got %v", err)
	}
	_, err = Encode(ts, EncodeOptions{SegmentMode: Adaptive, MinSegmentLength: 5, MaxSegmentLength: 2})
	if !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput for max < min, got %v", err)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	ts := TimeSeries{Values: []float64{1, 2, 3, 4, 5, 6, 7, 8}, Dt: 1, T0: "t", Unit: "u"}
	opts := EncodeOptions{SegmentMode: Fixed, SegmentLength: 3, Predictor: PredAuto, ResidualCoding: CodingVarint}
	a, err := Encode(ts, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(ts, opts)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("Encode is not deterministic across invocations")
	}
}

// makeScenario1 builds the 200-point fixed-length-50 linear scenario used
// by several decode-error tests.
func makeScenario1(t *testing.T) []byte {
	t.Helper()
	n := 200
	values := make([]float64, n)
	for i := range values {
		values[i] = 0.1 * float64(i)
	}
	ts := TimeSeries{Values: values, Dt: 60, T0: "2025-01-01T00:00:00Z", Unit: "kW"}
	opts := EncodeOptions{SegmentMode: Fixed, SegmentLength: 50, Predictor: PredLinear, ResidualCoding: CodingRaw}
	data, err := Encode(ts, opts)
	if err != nil {
		t.Fatalf("makeScenario1: Encode: %v", err)
	}
	return data
}

func putU32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func readU32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
