// Package mem provides the byte-buffer routines of the Intel 8080 system:
// an in-place ASCII capitalizer and a counted forward byte copy.
//
// Both operate on caller-owned slices. A slice is the span: its start is
// the first element, its extent is the explicit length or count argument.
// Lengths that exceed the backing slice, and overlapping copy regions,
// are rejected up front; nothing is written on error.
package mem
