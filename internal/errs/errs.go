// Package errs implements the LSG2 error taxonomy: a small, closed set of
// error kinds that every boundary in the codec raises from, generalized
// from github.com/mewkiz/pkg/errutil's position-carrying error wrapper.
package errs

import (
	"errors"
	"fmt"

	"github.com/mewkiz/pkg/errutil"
	pkgerrors "github.com/pkg/errors"
)

// Kind identifies which boundary of the codec rejected the input.
type Kind uint8

// The five error kinds enumerated by the codec's error taxonomy. Every
// fatal condition raised by the codec carries exactly one of these.
const (
	// InvalidInput covers empty time series on encode, invalid option
	// values (non-positive segment lengths, inverted min/max, unknown
	// predictor or coding names), and n_points/n_segments above the
	// MaxPoints/MaxSegments sanity bounds.
	InvalidInput Kind = iota
	// InvalidFormat covers bad magic, unsupported version, unsupported
	// coding_type.
	InvalidFormat
	// Truncated covers a buffer shorter than required at any parse
	// boundary.
	Truncated
	// InconsistentSizes covers header_len/byte_len/seg_id/seg_len
	// mismatches and segment-table coverage errors (gap, overlap, or a
	// segment outside [0, n_points)).
	InconsistentSizes
	// Overflow covers a varint that consumes more than 10 bytes without a
	// terminator.
	Overflow
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case InvalidFormat:
		return "invalid format"
	case Truncated:
		return "truncated"
	case InconsistentSizes:
		return "inconsistent sizes"
	case Overflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// E is an error that carries a Kind plus the position (file:line and
// callee) of the call that raised it. Position-tracking is delegated to
// github.com/mewkiz/pkg/errutil, the same wrapper the teacher's own
// enc*.go/encode*.go use to annotate errors with their raising site.
type E struct {
	Kind Kind
	Err  error
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, a ...interface{}) error {
	return &E{Kind: kind, Err: errutil.Err(fmt.Errorf(format, a...))}
}

// Wrap returns an error of the given kind that wraps cause, preserving its
// message via github.com/pkg/errors so that pkgerrors.Cause(err) unwraps to
// it, then annotating the wrap site via errutil.Err exactly as the teacher
// does when it wraps an io.Writer failure in enc.go.
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &E{Kind: kind, Err: errutil.Err(pkgerrors.Wrap(cause, msg))}
}

// Error implements the error interface.
func (e *E) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *E) Unwrap() error {
	return e.Err
}

// Is reports whether err was raised with the given kind.
func Is(err error, kind Kind) bool {
	var e *E
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind carried by err, or false if err was not raised
// through this package.
func KindOf(err error) (Kind, bool) {
	var e *E
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
