package lsg2

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
	"github.com/lasagna-io/lsg2/internal/bitcodec"
	"github.com/lasagna-io/lsg2/internal/errs"
	"github.com/lasagna-io/lsg2/segment"
)

// Decode parses data as an LSG2 v1 container and reconstructs the encoded
// time series. Every structural boundary is validated before the bytes
// past it are trusted (spec §4.6/§7): short buffers, bad magic, wrong
// version, out-of-range n_points/n_segments, header_len inconsistency,
// truncated sections, unsupported coding_type, out-of-range seg_id,
// negative/overflow lengths, byte_len mismatches, and gap/overlap in the
// reconstructed coverage. Non-fatal conditions (permitted trailing varint
// bytes in a residual block) are discarded; call DecodeWithWarnings to see
// them.
func Decode(data []byte) (TimeSeries, error) {
	ts, _, err := DecodeWithWarnings(data)
	return ts, err
}

// DecodeWithWarnings behaves exactly like Decode but additionally returns
// the non-fatal warnings collected while decoding residual blocks: per spec
// §9's "trailing varint bytes" open question, a varint-coded block with
// bytes left over after its declared seg_len values are decoded is
// permitted, not an error, but is worth surfacing to a caller that wants to
// notice it.
func DecodeWithWarnings(data []byte) (TimeSeries, []string, error) {
	hdr, r, err := readFileHeader(data)
	if err != nil {
		return TimeSeries{}, nil, err
	}

	ctxBytes, err := readBytes(r, int(hdr.headerLen))
	if err != nil {
		return TimeSeries{}, nil, errs.Wrap(errs.Truncated, err, "decode: context JSON")
	}
	md, err := decodeContextJSON(ctxBytes)
	if err != nil {
		return TimeSeries{}, nil, err
	}

	entries, err := readSegmentTable(r, hdr.nSegments, hdr.nPoints)
	if err != nil {
		return TimeSeries{}, nil, err
	}

	coding, err := readResidualSectionHeader(r)
	if err != nil {
		return TimeSeries{}, nil, err
	}

	values, warnings, err := decodeResiduals(r, entries, hdr.nPoints, coding)
	if err != nil {
		return TimeSeries{}, nil, err
	}

	return TimeSeries{Values: values, Dt: md.Dt, T0: md.T0, Unit: md.Unit}, warnings, nil
}

type fileHeader struct {
	headerLen uint32
	nPoints   uint32
	nSegments uint32
}

func readFileHeader(data []byte) (fileHeader, *bitio.Reader, error) {
	if len(data) < fileHeaderLen {
		return fileHeader{}, nil, errs.New(errs.Truncated, "decode: header needs %d bytes, got %d", fileHeaderLen, len(data))
	}
	r := bitio.NewReader(bytes.NewReader(data))

	magic, err := readBytes(r, len(Signature))
	if err != nil {
		return fileHeader{}, nil, errs.Wrap(errs.Truncated, err, "decode: signature")
	}
	if string(magic) != Signature {
		return fileHeader{}, nil, errs.New(errs.InvalidFormat, "decode: bad magic %q, want %q", magic, Signature)
	}

	version, err := readU16(r)
	if err != nil {
		return fileHeader{}, nil, err
	}
	if version != Version {
		return fileHeader{}, nil, errs.New(errs.InvalidFormat, "decode: unsupported version %d", version)
	}

	if _, err := readU16(r); err != nil { // flags, unused
		return fileHeader{}, nil, err
	}

	headerLen, err := readU32(r)
	if err != nil {
		return fileHeader{}, nil, err
	}
	if int(headerLen) > len(data)-fileHeaderLen {
		return fileHeader{}, nil, errs.New(errs.InconsistentSizes, "decode: header_len %d exceeds remaining %d bytes", headerLen, len(data)-fileHeaderLen)
	}

	nPoints, err := readU32(r)
	if err != nil {
		return fileHeader{}, nil, err
	}
	if nPoints > MaxPoints {
		return fileHeader{}, nil, errs.New(errs.InvalidInput, "decode: n_points %d exceeds MaxPoints %d", nPoints, MaxPoints)
	}

	nSegments, err := readU32(r)
	if err != nil {
		return fileHeader{}, nil, err
	}
	if nSegments > MaxSegments {
		return fileHeader{}, nil, errs.New(errs.InvalidInput, "decode: n_segments %d exceeds MaxSegments %d", nSegments, MaxSegments)
	}

	if _, err := readU32(r); err != nil { // reserved1
		return fileHeader{}, nil, err
	}
	if _, err := readU32(r); err != nil { // reserved2
		return fileHeader{}, nil, err
	}

	return fileHeader{headerLen: headerLen, nPoints: nPoints, nSegments: nSegments}, r, nil
}

func readSegmentTable(r *bitio.Reader, nSegments, nPoints uint32) ([]SegmentEntry, error) {
	entries := make([]SegmentEntry, nSegments)
	var covered uint64
	for i := range entries {
		e, err := readSegmentEntry(r)
		if err != nil {
			return nil, errs.Wrap(errs.Truncated, err, "decode: segment table")
		}
		if e.EndIdx < e.StartIdx {
			return nil, errs.New(errs.InconsistentSizes, "decode: segment %d has end_idx %d < start_idx %d", i, e.EndIdx, e.StartIdx)
		}
		if e.EndIdx >= nPoints {
			return nil, errs.New(errs.InconsistentSizes, "decode: segment %d has end_idx %d outside n_points %d", i, e.EndIdx, nPoints)
		}
		if !e.Predictor.Valid() {
			return nil, errs.New(errs.InvalidFormat, "decode: segment %d has unknown predictor_type %d", i, e.Predictor)
		}
		if e.QuantStepQ <= 0 {
			return nil, errs.New(errs.InconsistentSizes, "decode: segment %d has non-positive quant_step_Q %v", i, e.QuantStepQ)
		}
		covered += uint64(e.Len())
		entries[i] = e
	}
	if covered != uint64(nPoints) {
		return nil, errs.New(errs.InconsistentSizes, "decode: segments cover %d samples, n_points is %d", covered, nPoints)
	}
	return entries, nil
}

// readSegmentEntry reads one fixed-width segmentEntryLen-byte row of the
// segment table: 3 leading u32 fields, 3 u32 padding words, then 5 f64
// fields (12 + 12 + 40 = segmentEntryLen bytes).
func readSegmentEntry(r *bitio.Reader) (SegmentEntry, error) {
	startIdx, err := readU32(r)
	if err != nil {
		return SegmentEntry{}, err
	}
	endIdx, err := readU32(r)
	if err != nil {
		return SegmentEntry{}, err
	}
	predRaw, err := readU32(r)
	if err != nil {
		return SegmentEntry{}, err
	}
	for i := 0; i < 3; i++ {
		if _, err := readU32(r); err != nil { // padding
			return SegmentEntry{}, err
		}
	}
	fields := make([]float64, 5)
	for i := range fields {
		v, err := readF64(r)
		if err != nil {
			return SegmentEntry{}, err
		}
		fields[i] = v
	}
	return SegmentEntry{
		StartIdx:   startIdx,
		EndIdx:     endIdx,
		Predictor:  segment.Predictor(predRaw),
		Mean:       fields[0],
		Slope:      fields[1],
		Intercept:  fields[2],
		QuantStepQ: fields[3],
		SeedValue:  fields[4],
	}, nil
}

func readResidualSectionHeader(r *bitio.Reader) (ResidualCoding, error) {
	codingRaw, err := readU32(r)
	if err != nil {
		return 0, errs.Wrap(errs.Truncated, err, "decode: residual section header")
	}
	for i := 0; i < 3; i++ {
		if _, err := readU32(r); err != nil { // reserved
			return 0, errs.Wrap(errs.Truncated, err, "decode: residual section header")
		}
	}
	coding := ResidualCoding(codingRaw)
	if coding != CodingRaw && coding != CodingVarint {
		return 0, errs.New(errs.InvalidFormat, "decode: unsupported coding_type %d", codingRaw)
	}
	return coding, nil
}

// decodeResiduals reads n_segments residual blocks in seg_id order,
// reconstructs each segment's samples, and verifies every index in
// [0, n_points) is written exactly once. It also collects the non-fatal
// warnings decodeResidualPayload reports for each block, prefixed with the
// segment that raised them.
func decodeResiduals(r *bitio.Reader, entries []SegmentEntry, nPoints uint32, coding ResidualCoding) ([]float64, []string, error) {
	out := make([]float64, nPoints)
	written := make([]bool, nPoints)
	nSegments := uint32(len(entries))
	var warnings []string

	for expected := uint32(0); expected < nSegments; expected++ {
		segID, segLen, payload, err := readResidualBlockHeader(r)
		if err != nil {
			return nil, nil, err
		}
		if segID >= nSegments {
			return nil, nil, errs.New(errs.InconsistentSizes, "decode: seg_id %d out of range [0,%d)", segID, nSegments)
		}
		entry := entries[segID]
		if int(segLen) != entry.Len() {
			return nil, nil, errs.New(errs.InconsistentSizes, "decode: segment %d declares seg_len %d, table says %d", segID, segLen, entry.Len())
		}

		q, blockWarnings, err := decodeResidualPayload(payload, int(segLen), coding)
		if err != nil {
			return nil, nil, err
		}
		for _, w := range blockWarnings {
			warnings = append(warnings, fmt.Sprintf("segment %d: %s", segID, w))
		}
		if len(q) != entry.Len() {
			return nil, nil, errs.New(errs.InconsistentSizes, "decode: segment %d residual count %d disagrees with length %d", segID, len(q), entry.Len())
		}

		samples := reconstructSegment(entry, q)
		for i, v := range samples {
			idx := entry.StartIdx + uint32(i)
			if written[idx] {
				return nil, nil, errs.New(errs.InconsistentSizes, "decode: sample index %d written more than once (overlap)", idx)
			}
			out[idx] = v
			written[idx] = true
		}
	}

	for i, w := range written {
		if !w {
			return nil, nil, errs.New(errs.InconsistentSizes, "decode: sample index %d never written (gap)", i)
		}
	}
	return out, warnings, nil
}

func readResidualBlockHeader(r *bitio.Reader) (segID, segLen uint32, payload []byte, err error) {
	segID, err = readU32(r)
	if err != nil {
		return 0, 0, nil, errs.Wrap(errs.Truncated, err, "decode: residual block header")
	}
	segLen, err = readU32(r)
	if err != nil {
		return 0, 0, nil, errs.Wrap(errs.Truncated, err, "decode: residual block header")
	}
	byteLen, err := readU32(r)
	if err != nil {
		return 0, 0, nil, errs.Wrap(errs.Truncated, err, "decode: residual block header")
	}
	payload, err = readBytes(r, int(byteLen))
	if err != nil {
		return 0, 0, nil, errs.Wrap(errs.Truncated, err, "decode: residual payload")
	}
	return segID, segLen, payload, nil
}

// decodeResidualPayload decodes exactly segLen quantized residuals from
// payload. For raw coding, byte_len must equal 4*segLen exactly. For
// varint coding, trailing bytes after the segLen-th value are permitted
// and reported back as a warning, not an error (spec §9 open question).
func decodeResidualPayload(payload []byte, segLen int, coding ResidualCoding) ([]int32, []string, error) {
	switch coding {
	case CodingRaw:
		if len(payload) != 4*segLen {
			return nil, nil, errs.New(errs.InconsistentSizes, "decode: raw residual byte_len %d != 4*seg_len %d", len(payload), 4*segLen)
		}
		q := make([]int32, segLen)
		for i := range q {
			u := uint32(payload[4*i]) | uint32(payload[4*i+1])<<8 | uint32(payload[4*i+2])<<16 | uint32(payload[4*i+3])<<24
			q[i] = int32(u)
		}
		return q, nil, nil
	case CodingVarint:
		r := bytes.NewReader(payload)
		q, err := bitcodec.DecodeVarintN(r, segLen)
		if err != nil {
			return nil, nil, err
		}
		var warnings []string
		if r.Len() > 0 {
			warnings = append(warnings, "trailing bytes after decoded residuals")
		}
		return q, warnings, nil
	default:
		return nil, nil, errs.New(errs.InvalidFormat, "decode: unsupported coding_type %d", coding)
	}
}
