//go:build !linux && !darwin && !freebsd

package arena

// Mmap falls back to a slice-backed arena where anonymous reservations are
// not available.
type Mmap = Mem

// NewMmap returns a slice-backed arena with the same limit semantics.
func NewMmap(limit int) (*Mmap, error) {
	return NewMem(limit)
}
