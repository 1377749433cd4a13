package arena

import "fmt"

// Mem is a slice-backed arena. The whole limit is allocated as capacity on
// construction and the length advances on Extend, so append never reallocates.
type Mem struct {
	data  []byte
	limit int
}

// NewMem creates a slice-backed arena that will never exceed limit bytes.
func NewMem(limit int) (*Mem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadLimit, limit)
	}
	return &Mem{
		data:  make([]byte, 0, limit),
		limit: limit,
	}, nil
}

// Extend grows the arena by n bytes.
func (m *Mem) Extend(n int) (int, error) {
	if m.data == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, fmt.Errorf("arena: negative extend %d", n)
	}
	old := len(m.data)
	if n > m.limit-old {
		return 0, fmt.Errorf("%w: have %d, want %d more, limit %d", ErrExhausted, old, n, m.limit)
	}
	// Capacity beyond len was zeroed by make and never written.
	m.data = m.data[:old+n]
	return old, nil
}

// Bytes returns the committed region.
func (m *Mem) Bytes() []byte { return m.data }

// Len returns the committed length.
func (m *Mem) Len() int { return len(m.data) }

// Limit returns the configured cap.
func (m *Mem) Limit() int { return m.limit }

// Close drops the backing slice.
func (m *Mem) Close() error {
	m.data = nil
	return nil
}
