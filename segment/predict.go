package segment

// Stats holds the fit parameters a segment's predictor needs, computed once
// per segment from the raw samples. Ported from
// original_source/lasagna2/core.py's compute_stats, which computes the
// same closed-form OLS sums the teacher's fixed/LPC predictors consume as
// precomputed coefficients (frame/subframe.go's fixedCoeffs table).
type Stats struct {
	Mean      float64
	Slope     float64
	Intercept float64
	Seed      float64
}

// FitStats computes Mean, Slope, Intercept (ordinary least squares of
// samples against intra-segment position 0..len-1), and Seed (the
// segment's first sample) over x. For len(x) <= 1, Slope is 0 and
// Intercept equals Mean, matching spec.md's length-1 segment invariant.
func FitStats(x []float64) Stats {
	n := len(x)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(n)
	if n == 1 {
		return Stats{Mean: mean, Slope: 0, Intercept: mean, Seed: x[0]}
	}

	// Closed-form simple linear regression against t = 0..n-1.
	nf := float64(n)
	sumT := (nf - 1) * nf / 2
	sumT2 := (nf - 1) * nf * (2*nf - 1) / 6
	var sumTX float64
	for i, v := range x {
		sumTX += float64(i) * v
	}

	denom := nf*sumT2 - sumT*sumT
	var slope float64
	if denom != 0 {
		slope = (nf*sumTX - sumT*sum) / denom
	}
	intercept := mean - slope*(sumT/nf)

	return Stats{Mean: mean, Slope: slope, Intercept: intercept, Seed: x[0]}
}

// Predict returns the stateless predictions for Mean and Linear over a
// segment of the given length. It must not be called for RandomWalk: that
// predictor's predictions depend on reconstructed samples (see
// ReconstructRW) and have no stateless form beyond the adaptive-segmenter
// probe, which predicts directly against the raw samples (PredictRWProbe).
func Predict(pred Predictor, st Stats, length int) []float64 {
	out := make([]float64, length)
	switch pred {
	case Mean:
		for i := range out {
			out[i] = st.Mean
		}
	case Linear:
		for i := range out {
			out[i] = st.Intercept + st.Slope*float64(i)
		}
	default:
		panic("segment: Predict called with RandomWalk; use ReconstructRW or PredictRWProbe")
	}
	return out
}

// PredictRWProbe returns the random-walk predictions used by the adaptive
// segmenter's fit-quality probe, where the prediction is compared directly
// against the raw (not yet quantized) samples: pred[0] = seed,
// pred[i] = x[i-1]. This is distinct from the encoder's real residual path
// (ReconstructRW), which must use reconstructed samples, not raw ones, to
// preserve decoder parity (spec.md section 4.2/9).
func PredictRWProbe(x []float64, seed float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = seed
	for i := 1; i < n; i++ {
		out[i] = x[i-1]
	}
	return out
}

// ReconstructRW rebuilds a random-walk segment's samples from its quantized
// residuals: x̂[0] = seed + q[0]*Q, x̂[i] = x̂[i-1] + q[i]*Q.
//
// This is the hard contract from spec.md section 4.2/9: the encoder's
// random-walk quantizer (quantizeRandomWalk in package lsg2) applies this
// same recurrence one sample at a time while it quantizes, predicting each
// sample from the reconstructed previous one (not from PredictRWProbe's raw
// samples), so that encode-time residuals and decode-time reconstruction
// can never diverge. A naive
// encoder that predicts x[i] from the original x[i-1] instead of the
// reconstructed x̂[i-1] would accumulate quantization error that the
// decoder has no way to reproduce.
func ReconstructRW(seed float64, quantizedResiduals []int32, q float64) []float64 {
	n := len(quantizedResiduals)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = seed + float64(quantizedResiduals[0])*q
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + float64(quantizedResiduals[i])*q
	}
	return out
}
