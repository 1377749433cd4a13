package dirty

// DirtyTracker is the minimal interface for reporting modified byte ranges.
//
// It is intended for components that only need to notify about dirty regions
// but don't manage flushing themselves (the allocators).
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// off is the offset from the start of the image, length is the number of bytes.
	Add(off, length int)
}
