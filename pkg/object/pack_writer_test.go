package object

import (
	"bytes"
	"errors"
	"testing"
)

func TestPackHeaderMarshal(t *testing.T) {
	h := PackHeader{Version: 2, NumObjects: 42}
	data := h.Marshal()
	if len(data) != packHeaderSize {
		t.Fatalf("Marshal() produced %d bytes, want %d", len(data), packHeaderSize)
	}
	if !bytes.Equal(data[:4], []byte("PACK")) {
		t.Fatalf("missing PACK magic: %q", data[:4])
	}
}

func TestPackEntryTypeMapsKnownKinds(t *testing.T) {
	cases := []struct {
		kind ObjectKind
		want PackObjectType
	}{
		{KindCommit, PackCommit},
		{KindTree, PackTree},
		{KindBlob, PackBlob},
		{KindTag, PackTag},
	}
	for _, tc := range cases {
		got, err := packEntryType(tc.kind)
		if err != nil {
			t.Fatalf("packEntryType(%v): %v", tc.kind, err)
		}
		if got != tc.want {
			t.Fatalf("packEntryType(%v) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestPackEntryTypeRejectsUnknownKind(t *testing.T) {
	if _, err := packEntryType(ObjectKind(99)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got err=%v, want ErrInvalidInput", err)
	}
}

func TestEncodePackEntryHeaderSingleByteForSmallSizes(t *testing.T) {
	encoded := encodePackEntryHeader(PackBlob, 15)
	if len(encoded) != 1 {
		t.Fatalf("expected a single-byte header for size 15, got %d bytes", len(encoded))
	}
}

func TestPackWriterRejectsUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	pw, err := NewPackWriter(&buf, 1, &fakeHasher{}, fakeDeflate)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pw.WriteFullEntry(ObjectKind(99), []byte("payload")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got err=%v, want ErrInvalidInput", err)
	}
}

func TestEncodeOfsDeltaDistanceRoundTripsWithDecoder(t *testing.T) {
	for _, d := range []uint64{0, 1, 127, 128, 16383, 16384, 1 << 20, 1 << 40} {
		encoded := encodeOfsDeltaDistance(d)
		got, consumed, err := decodeOfsDeltaDistance(encoded)
		if err != nil {
			t.Fatalf("decodeOfsDeltaDistance(%d): %v", d, err)
		}
		if got != d {
			t.Fatalf("distance round trip: got %d, want %d", got, d)
		}
		if consumed != len(encoded) {
			t.Fatalf("consumed=%d, want %d", consumed, len(encoded))
		}
	}
}

// fakeHasher and fakeDeflate let pack_writer_test.go exercise PackWriter
// without pulling in pkg/packadapt, which would import this package.
type fakeHasher struct{ sum [OIDSize]byte }

func (f *fakeHasher) Update(p []byte)         {}
func (f *fakeHasher) Finalize() [OIDSize]byte { return f.sum }

func fakeDeflate(p []byte) ([]byte, error) { return p, nil }
