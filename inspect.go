package lsg2

import (
	"github.com/icza/bitio"
	"github.com/lasagna-io/lsg2/internal/errs"
)

// Inspect reads the file header and segment table and returns a summary
// without decoding any residual payload — each residual block is skipped
// using its declared byte_len, the same "read headers, skip bodies by
// declared length" shape the teacher's metadata-block reader uses for
// block types it does not need to decode.
func Inspect(data []byte) (InspectResult, error) {
	hdr, r, err := readFileHeader(data)
	if err != nil {
		return InspectResult{}, err
	}

	ctxBytes, err := readBytes(r, int(hdr.headerLen))
	if err != nil {
		return InspectResult{}, errs.Wrap(errs.Truncated, err, "inspect: context JSON")
	}
	md, err := decodeContextJSON(ctxBytes)
	if err != nil {
		return InspectResult{}, err
	}

	entries, err := readSegmentTable(r, hdr.nSegments, hdr.nPoints)
	if err != nil {
		return InspectResult{}, err
	}

	coding, err := readResidualSectionHeader(r)
	if err != nil {
		return InspectResult{}, err
	}

	if err := skipResidualBlocks(r, uint32(len(entries))); err != nil {
		return InspectResult{}, err
	}

	return InspectResult{
		Metadata: md,
		NPoints:  hdr.nPoints,
		Segments: entries,
		Coding:   coding,
	}, nil
}

// skipResidualBlocks reads each block's 12-byte header and advances past
// its payload by the declared byte_len, without interpreting the bytes.
func skipResidualBlocks(r *bitio.Reader, nSegments uint32) error {
	for i := uint32(0); i < nSegments; i++ {
		if _, err := readU32(r); err != nil { // seg_id
			return errs.Wrap(errs.Truncated, err, "inspect: residual block header")
		}
		if _, err := readU32(r); err != nil { // seg_len
			return errs.Wrap(errs.Truncated, err, "inspect: residual block header")
		}
		byteLen, err := readU32(r)
		if err != nil {
			return errs.Wrap(errs.Truncated, err, "inspect: residual block header")
		}
		if _, err := readBytes(r, int(byteLen)); err != nil {
			return errs.Wrap(errs.Truncated, err, "inspect: residual payload")
		}
	}
	return nil
}
