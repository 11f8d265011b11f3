package mem

import (
	"unsafe"
)

const (
	lowerA = 0x61 // 'a'
	lowerZ = 0x7a // 'z'

	caseBit = 0x20 // distance between the ASCII cases
)

// CapitalizeBuffer upper-cases the lowercase ASCII letters in the first
// length bytes of buf, in place. Bytes outside [0x61, 0x7a] are left
// unchanged, as are bytes at or beyond length. A length of zero does
// nothing.
//
// Returns ErrLengthExceedsBuffer, without touching buf, if length is
// negative or larger than the buffer.
func CapitalizeBuffer(buf []byte, length int) (err error) {
	if length < 0 || length > len(buf) {
		err = ErrLengthExceedsBuffer
		return
	}

	for n := range length {
		value := buf[n]
		if value >= lowerA && value <= lowerZ {
			buf[n] = value - caseBit
		}
	}

	return
}

// CopyBytes copies count bytes from src to dst, one byte at a time in
// increasing index order. Bytes of dst at or beyond count are left
// unchanged. A count of zero touches neither region.
//
// The regions must not overlap; the copy is a strictly forward
// single-byte pass, so an overlapping target would read its own
// writes. Overlap and out-of-range counts are rejected before any
// byte is written.
func CopyBytes(src []byte, dst []byte, count int) (err error) {
	if count < 0 || count > len(src) {
		err = ErrCountExceedsSource
		return
	}
	if count > len(dst) {
		err = ErrCountExceedsTarget
		return
	}

	if count == 0 {
		return
	}

	if overlaps(src[:count], dst[:count]) {
		err = ErrRegionsOverlap
		return
	}

	for remain := count; remain > 0; remain-- {
		n := count - remain
		dst[n] = src[n]
	}

	return
}

// overlaps reports whether two non-empty slices share any backing
// element. Element addresses identify the regions; Go only defines
// pointer ordering through uintptr.
func overlaps(a []byte, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	alo := uintptr(unsafe.Pointer(&a[0]))
	ahi := uintptr(unsafe.Pointer(&a[len(a)-1]))
	blo := uintptr(unsafe.Pointer(&b[0]))
	bhi := uintptr(unsafe.Pointer(&b[len(b)-1]))

	return alo <= bhi && blo <= ahi
}
