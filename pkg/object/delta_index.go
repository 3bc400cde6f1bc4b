package object

// MaxIndexBytes is the default soft bound on source buffer size above
// which DeltaIndex refuses to build (spec.md §4.2, §9). Callers that
// need a different bound pass one explicitly via NewDeltaIndexWithLimit;
// cmd/packcore passes the pkg/packconfig value through to WritePack.
const MaxIndexBytes = 100 << 20 // 100 MiB

// chainEnd marks the end of an intrusive hash-chain list. Offset 0 is a
// valid source offset, so the sentinel can't be 0; it is one past the
// largest offset any index can hold (source size is capped well below
// this by MaxIndexBytes).
const chainEnd = ^uint32(0)

// Match is a single window match: a source offset and the number of
// bytes that compare equal from there.
type Match struct {
	SrcOffset uint32
	Length    uint32
}

// DeltaIndex maps every 16-byte window hash in a source buffer to the
// chain of source offsets that produced it, per spec.md §4.2.
//
// Internally this is the table+chain intrusive-link-array structure
// spec.md §9 recommends in place of a map of head pointers plus
// separately-allocated linked-list nodes: buckets[hash] holds the most
// recently inserted offset for that hash (or chainEnd), and next[i]
// links back to the previous offset inserted under the same hash. This
// mirrors andybalholm/pack's HashChain (table + chain arrays), adapted
// from a fixed-size rolling window match finder to an exact, full-file
// index over 23-bit window hashes. Offsets within a chain are visited
// newest-first by this structure, but FindMatch still honors spec.md's
// "first in chain by insertion order" tie-break by tracking the best
// insertion-order match explicitly rather than relying on chain order.
type DeltaIndex struct {
	source  []byte
	buckets map[uint32]uint32
	next    []uint32 // next[offset] = previously inserted offset with the same hash, or chainEnd
}

// NewDeltaIndex builds an index over source using the default size
// bound.
func NewDeltaIndex(source []byte) (*DeltaIndex, error) {
	return NewDeltaIndexWithLimit(source, MaxIndexBytes)
}

// NewDeltaIndexWithLimit builds an index over source, refusing sources
// larger than maxBytes.
func NewDeltaIndexWithLimit(source []byte, maxBytes int) (*DeltaIndex, error) {
	if len(source) > maxBytes {
		return nil, ErrSourceTooLarge
	}

	idx := &DeltaIndex{source: source}
	if len(source) < fingerprintWindow {
		return idx, nil
	}

	n := len(source) - fingerprintWindow + 1
	idx.buckets = make(map[uint32]uint32, n)
	idx.next = make([]uint32, n)

	for i := 0; i < n; i++ {
		h, err := StaticHash(source, i)
		if err != nil {
			return nil, err
		}
		head, ok := idx.buckets[h]
		if !ok {
			idx.next[i] = chainEnd
		} else {
			idx.next[i] = head
		}
		idx.buckets[h] = uint32(i)
	}
	return idx, nil
}

// commonPrefixLen returns the number of leading equal bytes of a and b.
func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// FindMatch returns the longest match for the 16-byte window starting at
// pos in target, or ok=false if no source window shares that hash or the
// best extended match is shorter than the window size (spec.md §4.2).
// Ties are broken by earliest insertion order, i.e. smallest source
// offset.
func (idx *DeltaIndex) FindMatch(target []byte, pos int) (Match, bool) {
	if idx.buckets == nil || pos < 0 || pos+fingerprintWindow > len(target) {
		return Match{}, false
	}
	h, err := StaticHash(target, pos)
	if err != nil {
		return Match{}, false
	}
	head, ok := idx.buckets[h]
	if !ok {
		return Match{}, false
	}

	var (
		bestOffset uint32
		bestLength int
		found      bool
	)
	maxLen := len(target) - pos
	for o := head; o != chainEnd; o = idx.next[o] {
		avail := len(idx.source) - int(o)
		if avail > maxLen {
			avail = maxLen
		}
		length := commonPrefixLen(idx.source[o:o+uint32(avail)], target[pos:pos+avail])
		if length > bestLength || (length == bestLength && (!found || o < bestOffset)) {
			bestOffset = o
			bestLength = length
			found = true
		}
	}
	if !found || bestLength < fingerprintWindow {
		return Match{}, false
	}
	return Match{SrcOffset: bestOffset, Length: uint32(bestLength)}, true
}

// FindAllMatches returns every source offset whose extended match length
// against target[pos:] is at least the window size, sorted by ascending
// source offset.
func (idx *DeltaIndex) FindAllMatches(target []byte, pos int) []Match {
	if idx.buckets == nil || pos < 0 || pos+fingerprintWindow > len(target) {
		return nil
	}
	h, err := StaticHash(target, pos)
	if err != nil {
		return nil
	}
	head, ok := idx.buckets[h]
	if !ok {
		return nil
	}

	maxLen := len(target) - pos
	var matches []Match
	for o := head; o != chainEnd; o = idx.next[o] {
		avail := len(idx.source) - int(o)
		if avail > maxLen {
			avail = maxLen
		}
		length := commonPrefixLen(idx.source[o:o+uint32(avail)], target[pos:pos+avail])
		if length >= fingerprintWindow {
			matches = append(matches, Match{SrcOffset: o, Length: uint32(length)})
		}
	}
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j-1].SrcOffset > matches[j].SrcOffset; j-- {
			matches[j-1], matches[j] = matches[j], matches[j-1]
		}
	}
	return matches
}

// Len returns the number of indexed window positions (0 if the source
// was shorter than the window).
func (idx *DeltaIndex) Len() int {
	return len(idx.next)
}
