// Package quantize implements the fixed-step scalar quantizer LSG2 applies
// to per-segment prediction residuals, grounded on
// original_source/lasagna2/core.py's quantize_residuals/dequantize_residuals
// and structured after the teacher's two-pass residual analysis in
// analysis_fixed.go (one pass to size the step, one pass to emit values).
package quantize

import "math"

// Step computes the quantization step Q for a segment's residuals:
// Q = max(cQ * sigma, qMin), where sigma is the population standard
// deviation of residuals. An empty residual slice has no variance to
// measure, so Q defaults to qMin, matching spec.md's empty-segment rule.
func Step(residuals []float64, cQ, qMin float64) float64 {
	n := len(residuals)
	if n == 0 {
		return qMin
	}
	var sum float64
	for _, r := range residuals {
		sum += r
	}
	mean := sum / float64(n)
	var sqSum float64
	for _, r := range residuals {
		d := r - mean
		sqSum += d * d
	}
	sigma := math.Sqrt(sqSum / float64(n))
	q := cQ * sigma
	if q < qMin {
		q = qMin
	}
	return q
}

// Round implements half-away-from-zero rounding: round(2.5) = 3,
// round(-2.5) = -3. This is the rounding mode spec.md pins for quantization,
// distinct from Go's default round-half-to-even behavior. Exported so
// callers that must quantize sequentially (the random-walk residual path,
// which needs the committed, reconstructed value before predicting the
// next residual) apply exactly the same rule Quantize uses.
func Round(x float64) float64 {
	if x >= 0 {
		return math.Floor(x + 0.5)
	}
	return math.Ceil(x - 0.5)
}

// Quantize fits a step Q over residuals and returns the quantized integer
// codes q[i] = round(residuals[i] / Q).
func Quantize(residuals []float64, cQ, qMin float64) (q []int32, Q float64) {
	Q = Step(residuals, cQ, qMin)
	q = make([]int32, len(residuals))
	for i, r := range residuals {
		q[i] = int32(Round(r / Q))
	}
	return q, Q
}

// Dequantize reverses Quantize given the step Q the segment was quantized
// with: residual[i] = q[i] * Q.
func Dequantize(q []int32, Q float64) []float64 {
	out := make([]float64, len(q))
	for i, v := range q {
		out[i] = float64(v) * Q
	}
	return out
}
