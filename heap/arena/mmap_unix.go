//go:build linux || darwin || freebsd

package arena

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap is an arena backed by an anonymous private mapping. The full limit is
// reserved PROT_NONE on construction; Extend commits whole pages with
// mprotect as the arena grows. The reservation never moves.
type Mmap struct {
	region    []byte // full reservation
	n         int    // bytes handed out
	committed int    // page-aligned bytes made read/write
	pageSize  int
	limit     int
}

// NewMmap reserves limit bytes of address space.
func NewMmap(limit int) (*Mmap, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadLimit, limit)
	}
	pageSize := unix.Getpagesize()
	size := alignUp(limit, pageSize)

	region, err := unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("arena: reserve %d bytes: %w", size, err)
	}
	return &Mmap{
		region:   region,
		pageSize: pageSize,
		limit:    limit,
	}, nil
}

// Extend grows the arena by n bytes, committing pages as needed.
func (m *Mmap) Extend(n int) (int, error) {
	if m.region == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, fmt.Errorf("arena: negative extend %d", n)
	}
	old := m.n
	if n > m.limit-old {
		return 0, fmt.Errorf("%w: have %d, want %d more, limit %d", ErrExhausted, old, n, m.limit)
	}

	need := alignUp(old+n, m.pageSize)
	if need > m.committed {
		if err := unix.Mprotect(m.region[m.committed:need], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return 0, fmt.Errorf("arena: commit [%d,%d): %w", m.committed, need, err)
		}
		m.committed = need
	}
	m.n = old + n
	return old, nil
}

// Bytes returns the committed region.
func (m *Mmap) Bytes() []byte {
	if m.region == nil {
		return nil
	}
	return m.region[:m.n]
}

// Len returns the committed length.
func (m *Mmap) Len() int { return m.n }

// Limit returns the configured cap.
func (m *Mmap) Limit() int { return m.limit }

// Close unmaps the reservation. Closing twice is a no-op.
func (m *Mmap) Close() error {
	if m.region == nil {
		return nil
	}
	err := unix.Munmap(m.region)
	m.region = nil
	m.n, m.committed = 0, 0
	return err
}

func alignUp(n, to int) int {
	return (n + to - 1) / to * to
}
