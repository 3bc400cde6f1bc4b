package object

// Hasher accumulates bytes and produces a 20-byte SHA-1 digest. The core
// never hashes anything itself; pkg/packadapt supplies the concrete
// implementation backed by crypto/sha1 (spec.md §6).
type Hasher interface {
	Update(p []byte)
	Finalize() [OIDSize]byte
}

// DeflateFunc compresses a buffer using zlib-wrapped deflate. Errors
// bubble up unchanged (spec.md §6).
type DeflateFunc func(p []byte) ([]byte, error)

// InflateFunc is the inverse of DeflateFunc, used only by ReadPack and
// ReadPackResolved to validate a pack this module wrote. Since a pack
// stream packs one zlib stream directly after another with no length
// prefix, InflateFunc must report how many bytes of p its deflate
// stream actually consumed.
type InflateFunc func(p []byte) (data []byte, consumed int, err error)

// ObjectSource resolves an OID to its kind and payload. The core invokes
// it at most once per oid and treats it as opaque (spec.md §6).
type ObjectSource interface {
	Read(oid OID) (ObjectKind, []byte, error)
}
