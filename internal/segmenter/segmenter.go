// Package segmenter splits a time series into contiguous index ranges,
// either at a fixed length or adaptively while a probe predictor's MSE
// stays under a threshold. Ported from
// original_source/lasagna2/core.py's segment_series_fixed_length and
// segment_series_adaptive, structured the way the teacher's
// analysis_fixed.go walks a sample buffer in a single forward pass.
package segmenter

import (
	"github.com/lasagna-io/lsg2/internal/errs"
	"github.com/lasagna-io/lsg2/segment"
)

// Range is a contiguous, inclusive index range [Start, End].
type Range struct {
	Start, End uint32
}

// Fixed splits n points into consecutive ranges of segLen points each, the
// final range truncated to whatever remains. n == 0 yields no ranges.
func Fixed(n int, segLen int) ([]Range, error) {
	if segLen <= 0 {
		return nil, errs.New(errs.InvalidInput, "segment_length must be > 0, got %d", segLen)
	}
	var out []Range
	start := 0
	for start < n {
		end := start + segLen
		if end > n {
			end = n
		}
		out = append(out, Range{Start: uint32(start), End: uint32(end - 1)})
		start = end
	}
	return out, nil
}

// Adaptive splits values into ranges of at least minLen and at most maxLen
// points, extending each range one sample at a time while the probe
// predictor's mean squared error against the raw samples stays at or below
// mseThreshold. Each range starts at minLen points (or whatever remains of
// the series) and is kept at that length even when its MSE already exceeds
// the threshold. Extension stops as soon as the MSE would exceed the
// threshold, at maxLen, or at the end of the series — whichever comes
// first; the last in-threshold extent is then kept.
func Adaptive(values []float64, probe segment.Predictor, minLen, maxLen int, mseThreshold float64) ([]Range, error) {
	n := len(values)
	if n == 0 {
		return nil, nil
	}
	if minLen <= 0 || maxLen < minLen {
		return nil, errs.New(errs.InvalidInput, "invalid min_len/max_len: min=%d max=%d", minLen, maxLen)
	}

	var out []Range
	i := 0
	for i < n {
		start := i
		end := start + minLen
		if end > n {
			end = n
		}
		end-- // inclusive
		bestEnd := end

		for {
			seg := values[start : end+1]
			mse := probeMSE(seg, probe)
			if mse <= mseThreshold {
				bestEnd = end
				if end+1 < n && (end-start+1) < maxLen {
					end++
					continue
				}
			}
			break
		}

		out = append(out, Range{Start: uint32(start), End: uint32(bestEnd)})
		i = bestEnd + 1
	}
	return out, nil
}

// probeMSE fits stats over seg and returns the mean squared error of the
// given predictor's stateless prediction against the raw samples. For
// RandomWalk this uses segment.PredictRWProbe (prediction against raw, not
// reconstructed, samples) since the segmenter only needs a fit-quality
// signal, not the encoder's real residual path.
func probeMSE(seg []float64, probe segment.Predictor) float64 {
	length := len(seg)
	if length == 0 {
		return 0
	}
	var preds []float64
	switch probe {
	case segment.RandomWalk:
		preds = segment.PredictRWProbe(seg, seg[0])
	default:
		st := segment.FitStats(seg)
		preds = segment.Predict(probe, st, length)
	}
	var sum float64
	for i, v := range seg {
		d := v - preds[i]
		sum += d * d
	}
	return sum / float64(length)
}
