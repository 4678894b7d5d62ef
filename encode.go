package lsg2

import (
	"bytes"

	"github.com/icza/bitio"
	"github.com/lasagna-io/lsg2/internal/bitcodec"
	"github.com/lasagna-io/lsg2/internal/errs"
	"github.com/lasagna-io/lsg2/internal/quantize"
	"github.com/lasagna-io/lsg2/internal/segmenter"
	"github.com/lasagna-io/lsg2/segment"
)

// Encode validates opts, segments and predicts over ts.Values, quantizes
// the resulting residuals, and serializes the container bytes. Options are
// validated before any allocation.
func Encode(ts TimeSeries, opts EncodeOptions) ([]byte, error) {
	opts = opts.withDefaults()
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if len(ts.Values) == 0 {
		return nil, errs.New(errs.InvalidInput, "encode: empty time series")
	}
	if len(ts.Values) > MaxPoints {
		return nil, errs.New(errs.InvalidInput, "encode: %d points exceeds MaxPoints %d", len(ts.Values), MaxPoints)
	}

	ranges, err := segmentRanges(ts.Values, opts)
	if err != nil {
		return nil, err
	}
	if len(ranges) > MaxSegments {
		return nil, errs.New(errs.InvalidInput, "encode: %d segments exceeds MaxSegments %d", len(ranges), MaxSegments)
	}

	entries := make([]SegmentEntry, len(ranges))
	residuals := make([][]int32, len(ranges))
	for i, rg := range ranges {
		seg := ts.Values[rg.Start : rg.End+1]
		entry, q, err := fitSegment(seg, rg, opts)
		if err != nil {
			return nil, err
		}
		entries[i] = entry
		residuals[i] = q
	}

	return writeContainer(ts, entries, residuals, opts)
}

func validateOptions(opts EncodeOptions) error {
	switch opts.SegmentMode {
	case Fixed:
		if opts.SegmentLength <= 0 {
			return errs.New(errs.InvalidInput, "encode options: segment_length must be > 0, got %d", opts.SegmentLength)
		}
	case Adaptive:
		if opts.MinSegmentLength <= 0 {
			return errs.New(errs.InvalidInput, "encode options: min_segment_length must be >= 1, got %d", opts.MinSegmentLength)
		}
		if opts.MaxSegmentLength < opts.MinSegmentLength {
			return errs.New(errs.InvalidInput, "encode options: max_segment_length %d < min_segment_length %d", opts.MaxSegmentLength, opts.MinSegmentLength)
		}
	default:
		return errs.New(errs.InvalidInput, "encode options: unknown segment_mode %d", opts.SegmentMode)
	}
	switch opts.Predictor {
	case PredMean, PredLinear, PredRandomWalk, PredAuto:
	default:
		return errs.New(errs.InvalidInput, "encode options: unknown predictor %d", opts.Predictor)
	}
	switch opts.ResidualCoding {
	case CodingRaw, CodingVarint:
	default:
		return errs.New(errs.InvalidInput, "encode options: unknown residual_coding %d", opts.ResidualCoding)
	}
	if opts.CQ <= 0 {
		return errs.New(errs.InvalidInput, "encode options: C_Q must be > 0, got %v", opts.CQ)
	}
	if opts.QMin <= 0 {
		return errs.New(errs.InvalidInput, "encode options: Q_MIN must be > 0, got %v", opts.QMin)
	}
	return nil
}

func segmentRanges(values []float64, opts EncodeOptions) ([]segmenter.Range, error) {
	switch opts.SegmentMode {
	case Fixed:
		return segmenter.Fixed(len(values), opts.SegmentLength)
	case Adaptive:
		probe := choicePredictor(opts.Predictor)
		return segmenter.Adaptive(values, probe, opts.MinSegmentLength, opts.MaxSegmentLength, opts.MSEThreshold)
	default:
		return nil, errs.New(errs.InvalidInput, "encode: unknown segment_mode %d", opts.SegmentMode)
	}
}

// choicePredictor maps the user's predictor choice to the predictor the
// segmenter probes and the non-auto fitter commits to; auto resolves to
// linear for probing, per spec §4.4.
func choicePredictor(p PredictorChoice) segment.Predictor {
	switch p {
	case PredMean:
		return segment.Mean
	case PredRandomWalk:
		return segment.RandomWalk
	default:
		return segment.Linear
	}
}

// fitSegment fits and quantizes one segment, choosing among predictor
// types per opts.Predictor (auto brute-forces all three by reconstructed
// MSE, ties to lowest type ID).
func fitSegment(seg []float64, rg segmenter.Range, opts EncodeOptions) (SegmentEntry, []int32, error) {
	if opts.Predictor == PredAuto {
		return fitSegmentAuto(seg, rg, opts)
	}
	pred := choicePredictor(opts.Predictor)
	return fitSegmentAs(seg, rg, pred, opts)
}

// fitSegmentAs fits stats, predicts, quantizes and (for RandomWalk)
// reconstructs against the encoder's committed residual stream, for a
// single predictor kind.
func fitSegmentAs(seg []float64, rg segmenter.Range, pred segment.Predictor, opts EncodeOptions) (SegmentEntry, []int32, error) {
	st := segment.FitStats(seg)
	length := len(seg)

	var q []int32
	var Q float64

	switch pred {
	case segment.Mean, segment.Linear:
		preds := segment.Predict(pred, st, length)
		residuals := make([]float64, length)
		for i := range seg {
			residuals[i] = seg[i] - preds[i]
		}
		q, Q = quantize.Quantize(residuals, opts.CQ, opts.QMin)
	case segment.RandomWalk:
		q, Q = quantizeRandomWalk(seg, st.Seed, opts.CQ, opts.QMin)
	default:
		return SegmentEntry{}, nil, errs.New(errs.InvalidFormat, "fit segment: unknown predictor %d", pred)
	}

	entry := SegmentEntry{
		StartIdx:   rg.Start,
		EndIdx:     rg.End,
		Predictor:  pred,
		Mean:       st.Mean,
		Slope:      st.Slope,
		Intercept:  st.Intercept,
		QuantStepQ: Q,
		SeedValue:  st.Seed,
	}
	return entry, q, nil
}

// quantizeRandomWalk computes residuals against reconstructed (not
// original) previous samples: the hard parity contract. It sizes the
// quantization step from the raw-sample deltas, then quantizes and
// dequantizes sequentially so the predictor for residual i+1 sees exactly
// what the decoder will see when it reconstructs residual i.
func quantizeRandomWalk(seg []float64, seed, cQ, qMin float64) ([]int32, float64) {
	n := len(seg)
	if n == 0 {
		return nil, qMin
	}
	deltas := make([]float64, n)
	prev := seed
	for i, v := range seg {
		deltas[i] = v - prev
		prev = v
	}
	Q := quantize.Step(deltas, cQ, qMin)

	q := make([]int32, n)
	xhat := seed
	for i, v := range seg {
		r := v - xhat
		q[i] = int32(quantize.Round(r / Q))
		xhat = xhat + float64(q[i])*Q
	}
	return q, Q
}

// fitSegmentAuto evaluates all three predictor types end to end and keeps
// the lowest reconstructed-MSE result, ties broken by lowest type ID
// (mean < linear < random-walk), per spec §4.5.
func fitSegmentAuto(seg []float64, rg segmenter.Range, opts EncodeOptions) (SegmentEntry, []int32, error) {
	candidates := []segment.Predictor{segment.Mean, segment.Linear, segment.RandomWalk}

	var bestEntry SegmentEntry
	var bestQ []int32
	bestMSE := -1.0

	for _, pred := range candidates {
		entry, q, err := fitSegmentAs(seg, rg, pred, opts)
		if err != nil {
			return SegmentEntry{}, nil, err
		}
		reconstructed := reconstructSegment(entry, q)
		mse := meanSquaredError(seg, reconstructed)
		if bestMSE < 0 || mse < bestMSE {
			bestMSE = mse
			bestEntry = entry
			bestQ = q
		}
	}
	return bestEntry, bestQ, nil
}

func reconstructSegment(entry SegmentEntry, q []int32) []float64 {
	length := entry.Len()
	if entry.Predictor == segment.RandomWalk {
		return segment.ReconstructRW(entry.SeedValue, q, entry.QuantStepQ)
	}
	st := segment.Stats{Mean: entry.Mean, Slope: entry.Slope, Intercept: entry.Intercept, Seed: entry.SeedValue}
	preds := segment.Predict(entry.Predictor, st, length)
	out := make([]float64, length)
	for i := range out {
		out[i] = preds[i] + float64(q[i])*entry.QuantStepQ
	}
	return out
}

func meanSquaredError(orig, reconstructed []float64) float64 {
	n := len(orig)
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range orig {
		d := orig[i] - reconstructed[i]
		sum += d * d
	}
	return sum / float64(n)
}

// writeContainer serializes the file header, context JSON, segment table,
// residual section header, and residual blocks in the order of spec §4.6.
func writeContainer(ts TimeSeries, entries []SegmentEntry, residuals [][]int32, opts EncodeOptions) ([]byte, error) {
	ctxJSON, err := encodeContextJSON(Metadata{Dt: ts.Dt, T0: ts.T0, Unit: ts.Unit})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)

	if err := writeBytes(w, []byte(Signature)); err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "write signature")
	}
	if err := writeU16(w, Version); err != nil {
		return nil, err
	}
	if err := writeU16(w, 0); err != nil { // flags
		return nil, err
	}
	if err := writeU32(w, uint32(len(ctxJSON))); err != nil {
		return nil, err
	}
	if err := writeU32(w, uint32(len(ts.Values))); err != nil {
		return nil, err
	}
	if err := writeU32(w, uint32(len(entries))); err != nil {
		return nil, err
	}
	if err := writeU32(w, 0); err != nil { // reserved1
		return nil, err
	}
	if err := writeU32(w, 0); err != nil { // reserved2
		return nil, err
	}

	if err := writeBytes(w, ctxJSON); err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "write context JSON")
	}

	for _, e := range entries {
		if err := writeSegmentEntry(w, e); err != nil {
			return nil, err
		}
	}

	if err := writeU32(w, uint32(opts.ResidualCoding)); err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		if err := writeU32(w, 0); err != nil { // reserved
			return nil, err
		}
	}

	for i, e := range entries {
		if err := writeResidualBlock(w, uint32(i), e.Len(), residuals[i], opts.ResidualCoding); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "flush container")
	}
	return buf.Bytes(), nil
}

func writeSegmentEntry(w *bitio.Writer, e SegmentEntry) error {
	if err := writeU32(w, e.StartIdx); err != nil {
		return err
	}
	if err := writeU32(w, e.EndIdx); err != nil {
		return err
	}
	if err := writeU32(w, uint32(e.Predictor)); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if err := writeU32(w, 0); err != nil { // padding
			return err
		}
	}
	for _, v := range []float64{e.Mean, e.Slope, e.Intercept, e.QuantStepQ, e.SeedValue} {
		if err := writeF64(w, v); err != nil {
			return err
		}
	}
	return nil
}

func writeResidualBlock(w *bitio.Writer, segID uint32, segLen int, q []int32, coding ResidualCoding) error {
	var payload []byte
	switch coding {
	case CodingRaw:
		payload = make([]byte, 4*len(q))
		for i, v := range q {
			u := uint32(v)
			payload[4*i+0] = byte(u)
			payload[4*i+1] = byte(u >> 8)
			payload[4*i+2] = byte(u >> 16)
			payload[4*i+3] = byte(u >> 24)
		}
	case CodingVarint:
		var buf bytes.Buffer
		for _, v := range q {
			if err := bitcodec.EncodeVarint(&buf, bitcodec.EncodeZigZag(v)); err != nil {
				return errs.Wrap(errs.InvalidInput, err, "encode residual varint")
			}
		}
		payload = buf.Bytes()
	default:
		return errs.New(errs.InvalidInput, "write residual block: unknown coding %d", coding)
	}

	if err := writeU32(w, segID); err != nil {
		return err
	}
	if err := writeU32(w, uint32(segLen)); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(payload))); err != nil {
		return err
	}
	return writeBytes(w, payload)
}
