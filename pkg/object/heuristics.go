package object

import "sort"

// MinSizeForDelta is the smallest payload that is ever a delta target or
// base (spec.md §4.5).
const MinSizeForDelta = 16

// MaxDeltaChainDepth bounds how many OFS_DELTA hops a reconstruction may
// require (spec.md §4.5, §5).
const MaxDeltaChainDepth = 50

// windowSize is how many preceding entries in the emit order are
// considered as delta-base candidates for a given target (spec.md §4.5).
const windowSize = 10

// maxSizeRatio bounds how mismatched a candidate base and target may be
// in length before the candidate is dropped (spec.md §4.5).
const maxSizeRatio = 2.0

// prefixSampleLen is the largest prefix considered by the similarity
// score's prefix term (spec.md §4.5).
const prefixSampleLen = 100

// isCandidate reports whether candidate is admissible as a delta base
// for target, per spec.md §4.5's candidate filter.
func isCandidate(candidate, target *ObjectRecord) bool {
	if candidate.Kind != target.Kind {
		return false
	}
	if candidate.Depth >= MaxDeltaChainDepth {
		return false
	}
	cs, ts := len(candidate.Payload), len(target.Payload)
	if cs == 0 || ts == 0 {
		return false
	}
	big, small := cs, ts
	if small > big {
		big, small = small, big
	}
	return float64(big)/float64(small) <= maxSizeRatio
}

// similarityScore scores candidate as a base for target on a 0-100
// scale, per spec.md §4.5's four weighted terms.
func similarityScore(candidate, target *ObjectRecord) float64 {
	cs, ts := len(candidate.Payload), len(target.Payload)

	deltaSize := cs - ts
	if deltaSize < 0 {
		deltaSize = -deltaSize
	}
	sizeRatio := float64(deltaSize) / float64(ts)
	if sizeRatio > 1 {
		sizeRatio = 1
	}
	sizeScore := (1 - sizeRatio) * 30

	p := prefixSampleLen
	if cs < p {
		p = cs
	}
	if ts < p {
		p = ts
	}
	matching := 0
	for i := 0; i < p; i++ {
		if candidate.Payload[i] != target.Payload[i] {
			break
		}
		matching++
	}
	var prefixScore float64
	if p > 0 {
		prefixScore = (float64(matching) / float64(p)) * 30
	}

	var pathScore float64
	switch {
	case candidate.Path == "" || target.Path == "":
		pathScore = 0
	case candidate.Path == target.Path:
		pathScore = 20
	case trailingComponent(candidate.Path) == trailingComponent(target.Path):
		pathScore = 10
	}

	depthScore := (1 - float64(candidate.Depth)/float64(MaxDeltaChainDepth)) * 20

	return sizeScore + prefixScore + pathScore + depthScore
}

// trailingComponent returns the text after the last '/' in path, or path
// itself if there is no separator.
func trailingComponent(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// window returns the slice of the preceding windowSize entries at
// position i in sequence, per spec.md §4.5's window selection.
func window(sequence []*ObjectRecord, i int) []*ObjectRecord {
	start := i - windowSize
	if start < 0 {
		start = 0
	}
	return sequence[start:i]
}

// findBestBase returns the highest-scoring admissible candidate for
// target among candidates, or nil if none is admissible. Ties are
// broken by earliest position in candidates (spec.md §4.5).
func findBestBase(target *ObjectRecord, candidates []*ObjectRecord) *ObjectRecord {
	var (
		best      *ObjectRecord
		bestScore float64
	)
	for _, c := range candidates {
		if len(target.Payload) < MinSizeForDelta || len(c.Payload) < MinSizeForDelta {
			continue
		}
		if !isCandidate(c, target) {
			continue
		}
		score := similarityScore(c, target)
		if best == nil || score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

// partitionKey groups a record for emission ordering: its path when
// present, else the first two hex characters of its oid (spec.md §4.5).
func partitionKey(r *ObjectRecord) string {
	if r.Path != "" {
		return r.Path
	}
	return r.OID.String()[:2]
}

// OrderForEmission groups records by kind, partitions each kind group by
// path (or oid prefix), sorts partitions lexicographically by key and
// entries within a partition by ascending size, and concatenates the
// result, per spec.md §4.5's emission ordering.
func OrderForEmission(records []*ObjectRecord) []*ObjectRecord {
	byKind := make(map[ObjectKind][]*ObjectRecord)
	var kinds []ObjectKind
	for _, r := range records {
		if _, ok := byKind[r.Kind]; !ok {
			kinds = append(kinds, r.Kind)
		}
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	out := make([]*ObjectRecord, 0, len(records))
	for _, kind := range kinds {
		group := byKind[kind]

		partitions := make(map[string][]*ObjectRecord)
		var keys []string
		for _, r := range group {
			key := partitionKey(r)
			if _, ok := partitions[key]; !ok {
				keys = append(keys, key)
			}
			partitions[key] = append(partitions[key], r)
		}
		sort.Strings(keys)

		for _, key := range keys {
			part := partitions[key]
			sort.SliceStable(part, func(i, j int) bool {
				return len(part[i].Payload) < len(part[j].Payload)
			})
			out = append(out, part...)
		}
	}
	return out
}

// acceptDelta reports whether a produced delta of deltaLen bytes should
// replace a full entry for a target of targetLen bytes against a base of
// baseLen bytes, per spec.md §4.5's accept policy.
func acceptDelta(deltaLen, baseLen, targetLen int) bool {
	if deltaLen < 100 {
		return deltaLen < int(0.5*float64(targetLen))
	}
	return deltaLen < int(0.5*float64(targetLen)) && deltaLen < baseLen
}
