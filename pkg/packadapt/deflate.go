package packadapt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Deflate compresses p as a zlib-wrapped deflate stream, the body
// compression spec.md §6 specifies for every full and OFS_DELTA entry.
// It is a drop-in object.DeflateFunc.
func Deflate(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(p); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

// Inflate decompresses the zlib stream at the start of p and reports how
// many bytes of p the stream consumed, so a reader walking consecutive
// entries in a pack stream can advance past exactly one entry's
// compressed body (object.InflateFunc).
func Inflate(p []byte) ([]byte, int, error) {
	r := bytes.NewReader(p)
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("zlib reader: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		_ = zr.Close()
		return nil, 0, fmt.Errorf("zlib decompress: %w", err)
	}
	if err := zr.Close(); err != nil {
		return nil, 0, fmt.Errorf("zlib close: %w", err)
	}
	return raw, len(p) - r.Len(), nil
}
