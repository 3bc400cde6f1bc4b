package object

import (
	"bytes"
	"fmt"
	"io"
)

// MinCopyLen is the shortest match DeltaIndex will ever report and the
// shortest run EncodeDelta will ever emit as a COPY (spec.md §4.3).
const MinCopyLen = fingerprintWindow

// MaxInsertLen is the largest literal run a single INSERT instruction
// can carry; longer literal runs are split across instructions
// (spec.md §4.3).
const MaxInsertLen = 127

// MaxCopyLen is the largest length a single COPY instruction can
// express. A length of exactly MaxCopyLen is encoded by omitting all
// three size bytes; the decoder treats an all-zero size field as
// MaxCopyLen (spec.md §3, §4.3).
const MaxCopyLen = 1 << 16

// encodeVarint writes v as a little-endian base-128 varint (LEB128):
// seven data bits per byte, MSB set while more bytes follow.
func encodeVarint(out *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// decodeVarint reads a LEB128 varint written by encodeVarint.
func decodeVarint(r io.ByteReader) (uint64, error) {
	var (
		value uint64
		shift uint
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("decode varint: %w", err)
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("%w: varint too large", ErrInvalidInput)
		}
	}
}

// DeltaStats summarizes a delta without allocating its encoded form,
// per spec.md §4.3's analyze.
type DeltaStats struct {
	SourceSize         int
	TargetSize         int
	CopyBytes          int
	InsertBytes        int
	CopyInstructions   int
	InsertInstructions int
	TotalInstructions  int
	CompressionRatio   float64
}

// EncodeDelta produces a Git-format delta that reconstructs target from
// source, using a pre-built index over source. Pass the same index
// across multiple targets sharing a base to amortize index construction.
//
// The walk is the greedy matcher of spec.md §4.3: at each position, take
// the index's best match if it is at least MinCopyLen; otherwise grow a
// literal run, stopping early if a later position within MaxInsertLen
// already has a usable match (so a long insert doesn't swallow a copy
// opportunity one byte away).
func EncodeDelta(index *DeltaIndex, source, target []byte) ([]byte, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: nil index", ErrInvalidInput)
	}
	if source == nil || target == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrInvalidInput)
	}

	var out bytes.Buffer
	out.Grow(len(target)/2 + 32)
	encodeVarint(&out, uint64(len(source)))
	encodeVarint(&out, uint64(len(target)))

	pos := 0
	for pos < len(target) {
		if m, ok := index.FindMatch(target, pos); ok && int(m.Length) >= MinCopyLen {
			emitCopySplit(&out, m.SrcOffset, m.Length)
			pos += int(m.Length)
			continue
		}

		start := pos
		end := pos + 1
		for end < len(target) && end-start < MaxInsertLen {
			if m2, ok2 := index.FindMatch(target, end); ok2 && int(m2.Length) >= MinCopyLen {
				break
			}
			end++
		}
		emitInsert(&out, target[start:end])
		pos = end
	}

	return out.Bytes(), nil
}

// emitCopySplit emits one or more COPY instructions covering
// [srcOffset, srcOffset+length); a single instruction can address at
// most MaxCopyLen bytes, so longer matches are split into consecutive
// copies (spec.md §4.3, §6).
func emitCopySplit(out *bytes.Buffer, srcOffset, length uint32) {
	for length > 0 {
		chunk := length
		if chunk > MaxCopyLen {
			chunk = MaxCopyLen
		}
		emitCopy(out, srcOffset, chunk)
		srcOffset += chunk
		length -= chunk
	}
}

// emitCopy appends a COPY instruction for [srcOffset, srcOffset+length)
// using Git's bit-gated variable-length encoding (spec.md §4.3).
// length == MaxCopyLen is encoded by clearing every length bit.
func emitCopy(out *bytes.Buffer, srcOffset, length uint32) {
	var cmd byte = 0x80
	var args [7]byte
	n := 0

	off := srcOffset
	for i := 0; i < 4; i++ {
		b := byte(off)
		if b != 0 {
			cmd |= 1 << uint(i)
			args[n] = b
			n++
		}
		off >>= 8
	}

	encodedLen := length
	if encodedLen == MaxCopyLen {
		encodedLen = 0
	}
	for i := 0; i < 3; i++ {
		b := byte(encodedLen)
		if b != 0 {
			cmd |= 1 << uint(4+i)
			args[n] = b
			n++
		}
		encodedLen >>= 8
	}

	out.WriteByte(cmd)
	out.Write(args[:n])
}

// emitInsert appends an INSERT instruction. Callers guarantee
// 1 <= len(data) <= MaxInsertLen.
func emitInsert(out *bytes.Buffer, data []byte) {
	out.WriteByte(byte(len(data)))
	out.Write(data)
}

// ApplyDelta reconstructs the target buffer that EncodeDelta(index,
// source, target) would have encoded, validating every COPY against the
// actual source length (spec.md §4.4).
func ApplyDelta(source, delta []byte) ([]byte, error) {
	r := bytes.NewReader(delta)

	sourceSize, err := decodeVarint(r)
	if err != nil {
		return nil, fmt.Errorf("delta source size: %w", err)
	}
	if int(sourceSize) != len(source) {
		return nil, fmt.Errorf("%w: header says %d, got %d", ErrSourceMismatch, sourceSize, len(source))
	}

	targetSize, err := decodeVarint(r)
	if err != nil {
		return nil, fmt.Errorf("delta target size: %w", err)
	}

	out := make([]byte, 0, targetSize)
	for r.Len() > 0 {
		if uint64(len(out)) > targetSize {
			return nil, fmt.Errorf("%w", ErrExtraData)
		}

		cmd, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("delta opcode: %w", err)
		}

		if cmd&0x80 != 0 {
			var offset, length uint32
			for i := 0; i < 4; i++ {
				if cmd&(1<<uint(i)) == 0 {
					continue
				}
				b, err := r.ReadByte()
				if err != nil {
					return nil, fmt.Errorf("%w: copy offset byte %d: %v", ErrTruncatedDelta, i, err)
				}
				offset |= uint32(b) << uint(8*i)
			}
			for i := 0; i < 3; i++ {
				if cmd&(1<<uint(4+i)) == 0 {
					continue
				}
				b, err := r.ReadByte()
				if err != nil {
					return nil, fmt.Errorf("%w: copy size byte %d: %v", ErrTruncatedDelta, i, err)
				}
				length |= uint32(b) << uint(8*i)
			}
			if length == 0 {
				length = MaxCopyLen
			}
			if uint64(offset)+uint64(length) > uint64(len(source)) {
				return nil, fmt.Errorf("%w: copy [%d,%d) exceeds source length %d", ErrTruncatedDelta, offset, uint64(offset)+uint64(length), len(source))
			}
			out = append(out, source[offset:offset+length]...)
			continue
		}

		if cmd == 0 {
			return nil, fmt.Errorf("%w", ErrInvalidOpcode)
		}
		n := int(cmd)
		lit := make([]byte, n)
		if _, err := io.ReadFull(r, lit); err != nil {
			return nil, fmt.Errorf("%w: insert of %d bytes: %v", ErrTruncatedDelta, n, err)
		}
		out = append(out, lit...)
	}

	if uint64(len(out)) < targetSize {
		return nil, fmt.Errorf("%w: produced %d of %d bytes", ErrTruncatedDelta, len(out), targetSize)
	}
	if uint64(len(out)) > targetSize {
		return nil, fmt.Errorf("%w", ErrExtraData)
	}
	return out, nil
}

// AnalyzeDelta runs the same greedy walk EncodeDelta uses but only
// tallies statistics, without allocating the encoded instruction stream
// (spec.md §4.3).
func AnalyzeDelta(index *DeltaIndex, source, target []byte) (DeltaStats, error) {
	if index == nil {
		return DeltaStats{}, fmt.Errorf("%w: nil index", ErrInvalidInput)
	}

	stats := DeltaStats{SourceSize: len(source), TargetSize: len(target)}

	pos := 0
	for pos < len(target) {
		if m, ok := index.FindMatch(target, pos); ok && int(m.Length) >= MinCopyLen {
			stats.CopyBytes += int(m.Length)
			stats.CopyInstructions += (int(m.Length) + MaxCopyLen - 1) / MaxCopyLen
			pos += int(m.Length)
			continue
		}

		start := pos
		end := pos + 1
		for end < len(target) && end-start < MaxInsertLen {
			if m2, ok2 := index.FindMatch(target, end); ok2 && int(m2.Length) >= MinCopyLen {
				break
			}
			end++
		}
		stats.InsertBytes += end - start
		stats.InsertInstructions++
		pos = end
	}

	stats.TotalInstructions = stats.CopyInstructions + stats.InsertInstructions
	denom := stats.TargetSize
	if denom < 1 {
		denom = 1
	}
	stats.CompressionRatio = float64(stats.CopyBytes) / float64(denom)
	return stats, nil
}
