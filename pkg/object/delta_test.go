package object

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestEncodeApplyDeltaRoundTrip(t *testing.T) {
	cases := []struct {
		name           string
		source, target []byte
	}{
		{"identical", []byte("the quick brown fox jumps over the lazy dog"), []byte("the quick brown fox jumps over the lazy dog")},
		{"empty target", []byte("non-empty source buffer here"), []byte{}},
		{"empty source", []byte{}, []byte("target with no source to copy from")},
		{"both empty", []byte{}, []byte{}},
		{"appended suffix", []byte("line one\nline two\nline three\n"), []byte("line one\nline two\nline three\nline four\n")},
		{"prepended prefix", []byte("line two\nline three\n"), []byte("line one\nline two\nline three\n")},
		{"interior edit", []byte("AAAAAAAAAAAAAAAAAAAABBBBBBBBBBBBBBBBBBBBCCCCCCCCCCCCCCCCCCCC"),
			[]byte("AAAAAAAAAAAAAAAAAAAAXXXXBBBBBBBBBBBBBBBBBBBBCCCCCCCCCCCCCCCCCCCC")},
		{"no similarity", []byte("0123456789012345678901234567890123456789"), []byte("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			idx, err := NewDeltaIndex(tc.source)
			if err != nil {
				t.Fatalf("NewDeltaIndex: %v", err)
			}
			delta, err := EncodeDelta(idx, tc.source, tc.target)
			if err != nil {
				t.Fatalf("EncodeDelta: %v", err)
			}
			got, err := ApplyDelta(tc.source, delta)
			if err != nil {
				t.Fatalf("ApplyDelta: %v", err)
			}
			if !bytes.Equal(got, tc.target) {
				t.Fatalf("round trip mismatch:\n got=%q\nwant=%q", got, tc.target)
			}
		})
	}
}

func TestEncodeDeltaLargeRepeatedMatchSplitsCopies(t *testing.T) {
	// Unique-content block: avoids the hash-chain blowup a run of
	// identical bytes would cause, while still producing one match
	// longer than MaxCopyLen that EncodeDelta must split across
	// multiple COPY instructions.
	r := rand.New(rand.NewSource(11))
	block := make([]byte, MaxCopyLen+1000)
	r.Read(block)
	source := block
	target := append(append([]byte{}, block...), []byte("tail")...)

	idx, err := NewDeltaIndex(source)
	if err != nil {
		t.Fatal(err)
	}
	delta, err := EncodeDelta(idx, source, target)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ApplyDelta(source, delta)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, target) {
		t.Fatalf("round trip mismatch for a match longer than MaxCopyLen")
	}
}

func TestApplyDeltaSourceSizeMismatch(t *testing.T) {
	idx, _ := NewDeltaIndex([]byte("0123456789abcdef"))
	delta, err := EncodeDelta(idx, []byte("0123456789abcdef"), []byte("0123456789abcdef00"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ApplyDelta([]byte("short"), delta); err == nil {
		t.Fatalf("expected an error for mismatched source size")
	}
}

func TestApplyDeltaTruncated(t *testing.T) {
	idx, _ := NewDeltaIndex([]byte("0123456789abcdef"))
	delta, err := EncodeDelta(idx, []byte("0123456789abcdef"), []byte("0123456789abcdef00"))
	if err != nil {
		t.Fatal(err)
	}
	truncated := delta[:len(delta)-1]
	if _, err := ApplyDelta([]byte("0123456789abcdef"), truncated); err == nil {
		t.Fatalf("expected an error for a truncated delta")
	}
}

func TestApplyDeltaInvalidOpcode(t *testing.T) {
	var buf bytes.Buffer
	encodeVarint(&buf, 0)
	encodeVarint(&buf, 0)
	buf.WriteByte(0) // neither COPY nor a valid INSERT length
	if _, err := ApplyDelta(nil, buf.Bytes()); err == nil {
		t.Fatalf("expected ErrInvalidOpcode")
	}
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 20, 1 << 40, ^uint64(0) >> 1}
	for _, v := range values {
		var buf bytes.Buffer
		encodeVarint(&buf, v)
		got, err := decodeVarint(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("decodeVarint(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("varint round trip: got %d want %d", got, v)
		}
	}
}

func TestAnalyzeDeltaAgreesWithEncodeDelta(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	source := make([]byte, 2000)
	r.Read(source)
	target := append(append([]byte{}, source[:1500]...), []byte("a distinctive tail that is not in source")...)

	idx, err := NewDeltaIndex(source)
	if err != nil {
		t.Fatal(err)
	}
	delta, err := EncodeDelta(idx, source, target)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := AnalyzeDelta(idx, source, target)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ApplyDelta(source, delta)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, target) {
		t.Fatalf("delta does not reconstruct target")
	}
	if stats.TotalInstructions != stats.CopyInstructions+stats.InsertInstructions {
		t.Fatalf("stats totals disagree: %+v", stats)
	}
	if stats.CopyBytes+stats.InsertBytes != len(target) {
		t.Fatalf("stats byte counts don't cover target: copy=%d insert=%d target=%d",
			stats.CopyBytes, stats.InsertBytes, len(target))
	}
}

func BenchmarkEncodeDelta(b *testing.B) {
	r := rand.New(rand.NewSource(3))
	source := make([]byte, 64*1024)
	r.Read(source)
	target := append(append([]byte{}, source...), []byte("trailing edit")...)

	idx, err := NewDeltaIndex(source)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.SetBytes(int64(len(target)))
	for i := 0; i < b.N; i++ {
		if _, err := EncodeDelta(idx, source, target); err != nil {
			b.Fatal(err)
		}
	}
}
