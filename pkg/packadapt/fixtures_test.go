package packadapt

import (
	"bytes"
	"testing"

	"github.com/odvcencio/packcore/pkg/object"
)

func TestBlobFixtureDeterministicAndSized(t *testing.T) {
	a := BlobFixture(5, 200)
	b := BlobFixture(5, 200)
	if !bytes.Equal(a, b) {
		t.Fatalf("BlobFixture is not deterministic for identical arguments")
	}
	if len(a) != 200 {
		t.Fatalf("len(a) = %d, want 200", len(a))
	}
}

func TestBlobFixtureSharesPrefixAcrossSizes(t *testing.T) {
	small := BlobFixture(5, 100)
	large := BlobFixture(5, 300)
	if !bytes.Equal(large[:100], small) {
		t.Fatalf("larger fixture should share the smaller fixture's prefix")
	}
}

func TestTreeFixtureListsEntries(t *testing.T) {
	got := TreeFixture([]string{"a.go", "b.go"})
	want := "100644 a.go\n100644 b.go\n"
	if string(got) != want {
		t.Fatalf("TreeFixture = %q, want %q", got, want)
	}
}

func TestCommitFixtureIncludesTreeParentsAndMessage(t *testing.T) {
	var tree, parent object.OID
	tree[0] = 1
	parent[0] = 2

	got := CommitFixture(tree, []object.OID{parent}, "initial commit")
	s := string(got)
	if !bytes.Contains([]byte(s), []byte("tree "+tree.String())) {
		t.Fatalf("missing tree line: %q", s)
	}
	if !bytes.Contains([]byte(s), []byte("parent "+parent.String())) {
		t.Fatalf("missing parent line: %q", s)
	}
	if !bytes.HasSuffix([]byte(s), []byte("initial commit")) {
		t.Fatalf("missing message suffix: %q", s)
	}
}

func TestRevisionFlipsOneByteWithoutChangingLength(t *testing.T) {
	base := BlobFixture(3, 50)
	rev := Revision(base, 10, 'Z')
	if len(rev) != len(base) {
		t.Fatalf("Revision changed length: %d vs %d", len(rev), len(base))
	}
	if rev[10] != 'Z' {
		t.Fatalf("Revision did not set the target byte")
	}
	diffs := 0
	for i := range base {
		if base[i] != rev[i] {
			diffs++
		}
	}
	if diffs != 1 {
		t.Fatalf("Revision changed %d bytes, want exactly 1", diffs)
	}
}
