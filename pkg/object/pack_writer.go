package object

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	packHeaderSize       = 12
	supportedPackVersion = 2
)

var packMagic = [4]byte{'P', 'A', 'C', 'K'}

// PackObjectType is the Git pack object type encoding used in object entry
// headers. Values match the canonical Git wire/storage format; pack_reader.go
// is the only other consumer, decoding these same codes back off the wire.
type PackObjectType uint8

const (
	PackCommit   PackObjectType = 1
	PackTree     PackObjectType = 2
	PackBlob     PackObjectType = 3
	PackTag      PackObjectType = 4
	PackOfsDelta PackObjectType = 6
	PackRefDelta PackObjectType = 7
)

// packEntryType maps an ObjectKind to the pack entry type code WriteFullEntry
// writes into an entry header. This is the one place ObjectKind crosses into
// wire vocabulary; spec.md §6 defines REF_DELTA production as out of scope,
// so no kind ever maps to PackRefDelta.
func packEntryType(kind ObjectKind) (PackObjectType, error) {
	switch kind {
	case KindCommit:
		return PackCommit, nil
	case KindTree:
		return PackTree, nil
	case KindBlob:
		return PackBlob, nil
	case KindTag:
		return PackTag, nil
	default:
		return 0, fmt.Errorf("%w: unknown object kind %d", ErrInvalidInput, kind)
	}
}

// PackHeader is the fixed-size Git pack header.
//
// Bytes:
//   - 0..3:  "PACK"
//   - 4..7:  version (big-endian)
//   - 8..11: number of objects (big-endian)
type PackHeader struct {
	Version    uint32
	NumObjects uint32
}

// Marshal serializes the header to the canonical 12-byte pack header.
func (h PackHeader) Marshal() []byte {
	buf := make([]byte, packHeaderSize)
	copy(buf[:4], packMagic[:])
	binary.BigEndian.PutUint32(buf[4:8], h.Version)
	binary.BigEndian.PutUint32(buf[8:12], h.NumObjects)
	return buf
}

// encodePackEntryHeader encodes the variable-length object entry header
// WriteFullEntry and WriteOfsDeltaEntry prepend to every entry body.
func encodePackEntryHeader(objType PackObjectType, size uint64) []byte {
	b := byte((objType & 0x7) << 4)
	b |= byte(size & 0x0f)
	size >>= 4

	out := make([]byte, 0, 10)
	if size > 0 {
		b |= 0x80
	}
	out = append(out, b)

	for size > 0 {
		next := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			next |= 0x80
		}
		out = append(out, next)
	}

	return out
}

// packCountedWriter tees writes to an underlying writer while tracking
// how many bytes have passed through, so PackWriter can report absolute
// entry offsets without a separate byte counter at each call site.
type packCountedWriter struct {
	w io.Writer
	n uint64
}

func (cw *packCountedWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n)
	return n, err
}

// PackWriter frames a Git pack-v2 stream: the 12-byte header, one entry
// per WriteFullEntry/WriteOfsDeltaEntry call, and a trailer checksum
// produced by the caller-supplied Hasher (spec.md §4.6, §6).
type PackWriter struct {
	counter  *packCountedWriter
	hasher   Hasher
	deflate  DeflateFunc
	expected uint32
	written  uint32
	finished bool
}

// NewPackWriter writes the fixed pack header and returns a writer ready
// to accept numObjects entries.
func NewPackWriter(out io.Writer, numObjects uint32, hasher Hasher, deflate DeflateFunc) (*PackWriter, error) {
	if hasher == nil || deflate == nil {
		return nil, fmt.Errorf("%w: hasher and deflate are required", ErrInvalidInput)
	}

	counter := &packCountedWriter{w: out}
	pw := &PackWriter{
		counter:  counter,
		hasher:   hasher,
		deflate:  deflate,
		expected: numObjects,
	}

	header := PackHeader{Version: supportedPackVersion, NumObjects: numObjects}
	if err := pw.writeRaw(header.Marshal()); err != nil {
		return nil, fmt.Errorf("write pack header: %w", err)
	}
	return pw, nil
}

// writeRaw writes p to the stream and feeds it through the running hash.
func (p *PackWriter) writeRaw(b []byte) error {
	if _, err := p.counter.Write(b); err != nil {
		return err
	}
	p.hasher.Update(b)
	return nil
}

// CurrentOffset returns the current byte offset from the start of the
// stream, excluding the trailer this writer hasn't written yet.
func (p *PackWriter) CurrentOffset() uint64 {
	return p.counter.n
}

// WriteFullEntry appends a full (non-delta) object entry and returns the
// byte offset its header starts at.
func (p *PackWriter) WriteFullEntry(kind ObjectKind, payload []byte) (uint64, error) {
	if err := p.preWriteCheck(); err != nil {
		return 0, err
	}
	objType, err := packEntryType(kind)
	if err != nil {
		return 0, err
	}
	start := p.CurrentOffset()

	compressed, err := p.deflate(payload)
	if err != nil {
		return 0, fmt.Errorf("deflate object payload: %w", err)
	}

	header := encodePackEntryHeader(objType, uint64(len(payload)))
	if err := p.writeRaw(header); err != nil {
		return 0, fmt.Errorf("write entry header: %w", err)
	}
	if err := p.writeRaw(compressed); err != nil {
		return 0, fmt.Errorf("write entry payload: %w", err)
	}

	p.written++
	return start, nil
}

// WriteOfsDeltaEntry appends an OFS_DELTA entry referencing the entry
// that starts at baseOffset, and returns the byte offset this entry's
// header starts at.
func (p *PackWriter) WriteOfsDeltaEntry(baseOffset uint64, delta []byte) (uint64, error) {
	if err := p.preWriteCheck(); err != nil {
		return 0, err
	}
	start := p.CurrentOffset()
	if baseOffset >= start {
		return 0, fmt.Errorf("%w: base offset %d must precede entry offset %d", ErrInvalidInput, baseOffset, start)
	}

	compressed, err := p.deflate(delta)
	if err != nil {
		return 0, fmt.Errorf("deflate delta payload: %w", err)
	}

	header := encodePackEntryHeader(PackOfsDelta, uint64(len(delta)))
	if err := p.writeRaw(header); err != nil {
		return 0, fmt.Errorf("write ofs-delta header: %w", err)
	}
	if err := p.writeRaw(encodeOfsDeltaDistance(start - baseOffset)); err != nil {
		return 0, fmt.Errorf("write ofs-delta distance: %w", err)
	}
	if err := p.writeRaw(compressed); err != nil {
		return 0, fmt.Errorf("write ofs-delta payload: %w", err)
	}

	p.written++
	return start, nil
}

func (p *PackWriter) preWriteCheck() error {
	if p.finished {
		return fmt.Errorf("%w: pack writer already finished", ErrInvalidInput)
	}
	if p.written >= p.expected {
		return fmt.Errorf("%w: pack object count exceeded, expected %d", ErrInvalidInput, p.expected)
	}
	return nil
}

// Finish validates that every expected entry was written and appends the
// trailer checksum.
func (p *PackWriter) Finish() (OID, error) {
	if p.finished {
		return OID{}, fmt.Errorf("%w: pack writer already finished", ErrInvalidInput)
	}
	if p.written != p.expected {
		return OID{}, fmt.Errorf("%w: wrote %d entries, expected %d", ErrInvalidInput, p.written, p.expected)
	}

	sum := p.hasher.Finalize()
	if _, err := p.counter.Write(sum[:]); err != nil {
		return OID{}, fmt.Errorf("write pack trailer: %w", err)
	}

	p.finished = true
	return OID(sum), nil
}

// encodeOfsDeltaDistance encodes a strictly positive backward distance
// for an OFS_DELTA entry using Git's big-endian 7-bit-per-byte encoding
// with a +1 carry on every non-terminal byte (spec.md §4.6). The decoding
// half lives in pack_reader.go, its only caller.
func encodeOfsDeltaDistance(distance uint64) []byte {
	b := []byte{byte(distance & 0x7f)}
	for distance >>= 7; distance > 0; distance >>= 7 {
		distance--
		b = append([]byte{byte((distance & 0x7f) | 0x80)}, b...)
	}
	return b
}

// WritePack orders records per OrderForEmission, selects a delta base
// for each using the §4.5 window and accept policy, and writes the
// resulting pack stream. Records are mutated in place: Depth is updated
// to reflect the chain depth each object was actually emitted at.
//
// maxIndexBytes bounds DeltaIndex construction; bases larger than this
// are never indexed and the corresponding targets fall back to full
// entries, per spec.md §5.
func WritePack(out io.Writer, records []*ObjectRecord, hasher Hasher, deflate DeflateFunc, maxIndexBytes int) (OID, error) {
	ordered := OrderForEmission(records)

	pw, err := NewPackWriter(out, uint32(len(ordered)), hasher, deflate)
	if err != nil {
		return OID{}, err
	}

	offsets := make(map[OID]uint64, len(ordered))
	for i, target := range ordered {
		base := findBestBase(target, window(ordered, i))

		if base != nil {
			if baseOffset, ok := offsets[base.OID]; ok {
				delta, ok := tryDelta(base, target, maxIndexBytes)
				if ok {
					entryOffset, err := pw.WriteOfsDeltaEntry(baseOffset, delta)
					if err != nil {
						return OID{}, fmt.Errorf("write ofs-delta for %s: %w", target.OID, err)
					}
					target.Depth = base.Depth + 1
					offsets[target.OID] = entryOffset
					continue
				}
			}
		}

		entryOffset, err := pw.WriteFullEntry(target.Kind, target.Payload)
		if err != nil {
			return OID{}, fmt.Errorf("write full entry for %s: %w", target.OID, err)
		}
		target.Depth = 0
		offsets[target.OID] = entryOffset
	}

	return pw.Finish()
}

// tryDelta encodes a candidate delta from base to target and applies the
// §4.5 accept policy. It returns ok=false on any failure to index or
// encode, treating those the same as "no acceptable delta" rather than
// propagating an error — a full entry is always a safe fallback.
func tryDelta(base, target *ObjectRecord, maxIndexBytes int) ([]byte, bool) {
	index, err := NewDeltaIndexWithLimit(base.Payload, maxIndexBytes)
	if err != nil {
		return nil, false
	}
	delta, err := EncodeDelta(index, base.Payload, target.Payload)
	if err != nil {
		return nil, false
	}
	if !acceptDelta(len(delta), len(base.Payload), len(target.Payload)) {
		return nil, false
	}
	return delta, true
}
