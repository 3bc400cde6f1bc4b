package object

// Window, shift, and mask constants for the rolling fingerprint, per
// spec.md §4.1.
const (
	fingerprintWindow = 16
	fingerprintShift  = 23
	fingerprintMask   = (1 << fingerprintShift) - 1
)

// RollingFingerprint maintains a 23-bit hash of the trailing 16-byte
// window of a byte stream, updated in O(1) per pushed byte. It implements
// the shift-and-subtract variant spec.md §4.1 and §9 explicitly permit in
// place of the polynomial-table (Rabin) variant: both satisfy the rolling
// equivalence property, and this one needs no precomputed tables.
//
// The window is stored in a fixed-size circular buffer addressed by a
// cursor, the same shape as a classic rsync-style rolling checksum
// window (see bobg/hashsplit's RollSum), though the hash update formula
// itself is spec.md's, not rsync's.
type RollingFingerprint struct {
	hash   uint32
	window [fingerprintWindow]byte
	cursor int
	count  int // number of bytes pushed, saturating at fingerprintWindow
}

// NewRollingFingerprint returns a fingerprint in its initial, empty
// state.
func NewRollingFingerprint() *RollingFingerprint {
	return &RollingFingerprint{}
}

// Push advances the window by one byte and returns the updated hash.
// Before 16 bytes have been pushed the fingerprint is warming up: the
// hash simply shifts the new byte in. Once the window is full, each push
// evicts the byte at the current cursor, conceptually subtracting its
// contribution (old_byte << ((WINDOW-1)*8)) before folding the new byte
// in, per spec.md §4.1.
//
// old_contribution's bit pattern lands entirely above bit 22, so once
// reduced modulo MASK (2^23) it is always zero — shifting a byte left by
// 120 bits and then keeping only the low 23 bits always discards it.
// Subtracting it from an already-masked hash is therefore a no-op. This
// implementation instead folds the refreshed window from scratch on every
// push, which yields the same value as StaticHash over the current
// window. Because every step keeps only the low 23 bits, that value
// depends only on the last three bytes of the window (the low 7 bits of
// the third-to-last byte and the last two bytes in full); earlier window
// bytes do not affect it. WINDOW is a fixed constant, so this is still
// O(1) work per byte, independent of stream length.
func (f *RollingFingerprint) Push(b byte) uint32 {
	f.window[f.cursor] = b
	f.cursor = (f.cursor + 1) % fingerprintWindow
	if f.count < fingerprintWindow {
		f.count++
	}

	var h uint32
	n := f.count
	start := f.cursor - n
	if start < 0 {
		start += fingerprintWindow
	}
	for i := 0; i < n; i++ {
		h = ((h << 8) | uint32(f.window[(start+i)%fingerprintWindow])) & fingerprintMask
	}
	f.hash = h
	return f.hash
}

// Hash returns the current hash value without modifying state.
func (f *RollingFingerprint) Hash() uint32 {
	return f.hash
}

// Filled reports whether a full 16-byte window has been pushed.
func (f *RollingFingerprint) Filled() bool {
	return f.count >= fingerprintWindow
}

// WindowCopy returns a copy of the current window contents in stream
// order (oldest byte first), regardless of the internal cursor position.
// If fewer than fingerprintWindow bytes have been pushed, only those
// bytes are returned.
func (f *RollingFingerprint) WindowCopy() []byte {
	n := f.count
	if n > fingerprintWindow {
		n = fingerprintWindow
	}
	out := make([]byte, n)
	if n < fingerprintWindow {
		copy(out, f.window[:n])
		return out
	}
	for i := 0; i < fingerprintWindow; i++ {
		out[i] = f.window[(f.cursor+i)%fingerprintWindow]
	}
	return out
}

// Reset returns the fingerprint to its initial, empty state.
func (f *RollingFingerprint) Reset() {
	f.hash = 0
	f.window = [fingerprintWindow]byte{}
	f.cursor = 0
	f.count = 0
}

// StaticHash computes the fixed-window hash of buffer[offset:offset+16]
// by folding those 16 bytes left-to-right through the same step
// function Push uses during warm-up. The delta index and the delta
// encoder both call this so that a StaticHash computed independently
// agrees with whatever a RollingFingerprint would report at the same
// window position (the rolling equivalence property, spec.md §4.1).
func StaticHash(buffer []byte, offset int) (uint32, error) {
	if offset < 0 || offset+fingerprintWindow > len(buffer) {
		return 0, ErrInvalidRange
	}
	var h uint32
	for i := offset; i < offset+fingerprintWindow; i++ {
		h = ((h << 8) | uint32(buffer[i])) & fingerprintMask
	}
	return h, nil
}
