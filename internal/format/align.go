package format

// Alignment utilities for the heap image.
// Every block start, block size, and payload pointer is a multiple of Alignment.

// Align16 returns n aligned up to the next 16-byte boundary.
//
// Example:
//
//	Align16(1)  = 16
//	Align16(16) = 16
//	Align16(17) = 32
func Align16(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// IsAligned reports whether n sits on an Alignment boundary.
func IsAligned(n int) bool {
	return n&AlignmentMask == 0
}
