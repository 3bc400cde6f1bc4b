package packadapt

import (
	"bytes"
	"fmt"

	"github.com/odvcencio/packcore/pkg/object"
)

// BlobFixture returns a deterministic blob payload of the given size,
// built from a repeating "line N of LINES\n" pattern so that successive fixtures
// sharing a prefix look the way successive revisions of a real text file
// would to the base-selection heuristics (spec.md §4.5's prefix and size
// similarity terms). It is test/demo scaffolding only; this module does
// not define a canonical blob encoding of its own.
func BlobFixture(lines int, size int) []byte {
	var buf bytes.Buffer
	for i := 0; buf.Len() < size; i++ {
		fmt.Fprintf(&buf, "line %d of %d\n", i%lines, lines)
	}
	return buf.Bytes()[:size]
}

// TreeFixture returns a deterministic tree-like payload: one
// "100644 <name>" line per entry, in the order names are given. It
// carries no oids and does not sort the names.
func TreeFixture(names []string) []byte {
	var buf bytes.Buffer
	for _, name := range names {
		fmt.Fprintf(&buf, "100644 %s\n", name)
	}
	return buf.Bytes()
}

// CommitFixture returns a deterministic commit-like payload referencing
// a tree oid and zero or more parent oids.
func CommitFixture(tree object.OID, parents []object.OID, message string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", tree)
	for _, p := range parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	buf.WriteByte('\n')
	buf.WriteString(message)
	return buf.Bytes()
}

// Revision returns a copy of base with the byte at offset (mod len(base))
// replaced by b, simulating a small single-line edit between revisions of
// the same fixture for delta tests.
func Revision(base []byte, offset int, b byte) []byte {
	out := make([]byte, len(base))
	copy(out, base)
	if len(out) > 0 {
		out[offset%len(out)] = b
	}
	return out
}
