package object

import (
	"encoding/binary"
	"fmt"
)

// UnmarshalPackHeader parses a canonical Git pack header.
func UnmarshalPackHeader(data []byte) (*PackHeader, error) {
	if len(data) < packHeaderSize {
		return nil, fmt.Errorf("pack header too short: got %d bytes", len(data))
	}
	if string(data[:4]) != string(packMagic[:]) {
		return nil, fmt.Errorf("invalid pack magic %q", data[:4])
	}

	version := binary.BigEndian.Uint32(data[4:8])
	if version != supportedPackVersion {
		return nil, fmt.Errorf("unsupported pack version %d", version)
	}

	return &PackHeader{
		Version:    version,
		NumObjects: binary.BigEndian.Uint32(data[8:12]),
	}, nil
}

// kindFromPackType maps a decoded pack entry type back to an ObjectKind.
// It is the reader's half of the mapping packEntryType defines for the
// writer; PackOfsDelta and PackRefDelta have no ObjectKind and are
// rejected before a caller ever reaches this function.
func kindFromPackType(t PackObjectType) (ObjectKind, error) {
	switch t {
	case PackCommit:
		return KindCommit, nil
	case PackTree:
		return KindTree, nil
	case PackBlob:
		return KindBlob, nil
	case PackTag:
		return KindTag, nil
	default:
		return 0, fmt.Errorf("%w: pack entry type %d has no object kind", ErrInvalidInput, t)
	}
}

// PackEntry is one decoded entry from a pack stream, before OFS_DELTA
// resolution. Data is the decompressed body: an object payload for a
// full entry, or a raw delta stream for an OFS_DELTA entry.
type PackEntry struct {
	Offset   uint64
	Type     PackObjectType
	Size     uint64
	BaseDist uint64 // valid only when Type == PackOfsDelta
	Data     []byte
}

// PackFile is the decoded content of a full pack stream, used by tests
// and by packcore verify; the core's write path never constructs one.
type PackFile struct {
	Header   PackHeader
	Entries  []PackEntry
	Checksum OID
}

// ReadPack parses a full pack stream, verifying the trailer checksum
// with hasher and decompressing entry bodies with inflate. It does not
// resolve OFS_DELTA entries; use ReadPackResolved for that.
func ReadPack(data []byte, hasher Hasher, inflate InflateFunc) (*PackFile, error) {
	if len(data) < packHeaderSize+OIDSize {
		return nil, fmt.Errorf("%w: pack too short (%d bytes)", ErrInvalidInput, len(data))
	}

	payload := data[:len(data)-OIDSize]
	trailer := data[len(data)-OIDSize:]

	hasher.Update(payload)
	sum := hasher.Finalize()
	if sum != trailer16(trailer) {
		return nil, fmt.Errorf("%w: pack checksum mismatch", ErrInvalidInput)
	}

	header, err := UnmarshalPackHeader(payload[:packHeaderSize])
	if err != nil {
		return nil, err
	}

	offset := packHeaderSize
	entries := make([]PackEntry, 0, header.NumObjects)
	for i := uint32(0); i < header.NumObjects; i++ {
		entryStart := offset

		objType, size, n, err := decodePackEntryHeaderStrict(payload[offset:])
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		offset += n

		switch objType {
		case PackCommit, PackTree, PackBlob, PackTag, PackOfsDelta:
			// recognized; fall through to decode the body below.
		case PackRefDelta:
			return nil, fmt.Errorf("%w: entry %d is a ref-delta, which this reader does not support", ErrInvalidInput, i)
		default:
			return nil, fmt.Errorf("%w: entry %d has unsupported type %d", ErrInvalidInput, i, objType)
		}

		var baseDist uint64
		if objType == PackOfsDelta {
			dist, n, err := decodeOfsDeltaDistance(payload[offset:])
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			baseDist = dist
			offset += n
		}

		if offset > len(payload) {
			return nil, fmt.Errorf("%w: entry %d missing compressed payload", ErrTruncatedDelta, i)
		}

		raw, consumed, err := inflate(payload[offset:])
		if err != nil {
			return nil, fmt.Errorf("entry %d: decompress: %w", i, err)
		}
		if objType != PackOfsDelta && uint64(len(raw)) != size {
			return nil, fmt.Errorf("%w: entry %d size mismatch header=%d decoded=%d", ErrInvalidInput, i, size, len(raw))
		}
		offset += consumed

		entries = append(entries, PackEntry{
			Offset:   uint64(entryStart),
			Type:     objType,
			Size:     size,
			BaseDist: baseDist,
			Data:     raw,
		})
	}

	if offset != len(payload) {
		return nil, fmt.Errorf("%w: %d trailing undecoded bytes", ErrExtraData, len(payload)-offset)
	}

	return &PackFile{Header: *header, Entries: entries, Checksum: OID(sum)}, nil
}

// ResolvedEntry is a pack entry after OFS_DELTA chains have been applied
// against earlier entries, yielding the final object bytes.
type ResolvedEntry struct {
	Offset uint64
	Kind   ObjectKind
	Data   []byte
}

// ReadPackResolved parses a pack stream and resolves every OFS_DELTA
// entry against the already-resolved entry at its base offset, so the
// returned entries all carry final object bytes (spec.md §8 property
// 10). Entries must reference only earlier offsets; this always holds
// for packs WritePack produced, since a base is always emitted before
// any target delta against it.
func ReadPackResolved(data []byte, hasher Hasher, inflate InflateFunc) ([]ResolvedEntry, error) {
	pf, err := ReadPack(data, hasher, inflate)
	if err != nil {
		return nil, err
	}

	byOffset := make(map[uint64]ResolvedEntry, len(pf.Entries))
	out := make([]ResolvedEntry, len(pf.Entries))

	for i, e := range pf.Entries {
		if e.Type != PackOfsDelta {
			kind, err := kindFromPackType(e.Type)
			if err != nil {
				return nil, fmt.Errorf("entry at %d: %w", e.Offset, err)
			}
			resolved := ResolvedEntry{Offset: e.Offset, Kind: kind, Data: e.Data}
			out[i] = resolved
			byOffset[e.Offset] = resolved
			continue
		}

		baseOffset := e.Offset - e.BaseDist
		base, ok := byOffset[baseOffset]
		if !ok {
			return nil, fmt.Errorf("%w: entry at %d references unresolved base at %d", ErrInvalidInput, e.Offset, baseOffset)
		}

		data, err := ApplyDelta(base.Data, e.Data)
		if err != nil {
			return nil, fmt.Errorf("resolve entry at %d: %w", e.Offset, err)
		}

		resolved := ResolvedEntry{Offset: e.Offset, Kind: base.Kind, Data: data}
		out[i] = resolved
		byOffset[e.Offset] = resolved
	}

	return out, nil
}

// trailer16 narrows a 20-byte trailer slice to a fixed array.
func trailer16(b []byte) [OIDSize]byte {
	var out [OIDSize]byte
	copy(out[:], b)
	return out
}

// decodePackEntryHeaderStrict decodes the variable-length object entry
// header WriteFullEntry and WriteOfsDeltaEntry write, returning object
// type, uncompressed object size, and bytes consumed. Truncation is
// reported as ErrTruncatedDelta rather than a silently short count.
func decodePackEntryHeaderStrict(data []byte) (PackObjectType, uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: entry header empty", ErrTruncatedDelta)
	}

	b := data[0]
	objType := PackObjectType((b >> 4) & 0x7)
	size := uint64(b & 0x0f)
	shift := uint(4)
	consumed := 1

	for b&0x80 != 0 {
		if consumed >= len(data) {
			return 0, 0, 0, fmt.Errorf("%w: entry header truncated", ErrTruncatedDelta)
		}
		b = data[consumed]
		size |= uint64(b&0x7f) << shift
		shift += 7
		consumed++
	}

	return objType, size, consumed, nil
}

// decodeOfsDeltaDistance decodes an OFS_DELTA back-reference distance,
// returning the distance and the number of bytes consumed. This is the
// reader's half of encodeOfsDeltaDistance, defined in pack_writer.go.
func decodeOfsDeltaDistance(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("%w: ofs-delta distance truncated", ErrTruncatedDelta)
	}
	i := 0
	c := data[i]
	i++
	distance := uint64(c & 0x7f)
	for c&0x80 != 0 {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("%w: ofs-delta distance truncated", ErrTruncatedDelta)
		}
		c = data[i]
		i++
		distance = ((distance + 1) << 7) | uint64(c&0x7f)
	}
	return distance, i, nil
}
