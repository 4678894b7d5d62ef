// Package segment defines the three predictor kinds LSG2 fits over a
// segment and the closed-form fitting/reconstruction functions each kind
// needs, mirroring how github.com/mewkiz/flac's frame package defines
// PredMethod for FLAC's CONSTANT/FIXED/LPC subframe kinds.
package segment

// Predictor identifies the prediction method used by a segment. It is a
// narrow 3-value enum on the wire (predictor_type); no open extension is
// required by the format.
type Predictor uint32

// The three predictor kinds a segment may use.
const (
	// Mean predicts a constant value for every sample in the segment.
	Mean Predictor = iota
	// Linear predicts an affine function of intra-segment position, fit by
	// ordinary least squares.
	Linear
	// RandomWalk predicts each sample from the previous *reconstructed*
	// sample, seeded by the segment's first original sample.
	RandomWalk
)

func (p Predictor) String() string {
	switch p {
	case Mean:
		return "mean"
	case Linear:
		return "linear"
	case RandomWalk:
		return "rw"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the three defined predictor kinds.
func (p Predictor) Valid() bool {
	return p == Mean || p == Linear || p == RandomWalk
}
