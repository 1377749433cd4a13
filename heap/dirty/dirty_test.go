package dirty

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_PageAlignment(t *testing.T) {
	tracker := NewTracker()

	// Offset 100, length 200 rounds out to the first page.
	tracker.Add(100, 200)

	coalesced := tracker.Ranges()
	require.Len(t, coalesced, 1)
	assert.Equal(t, int64(0), coalesced[0].Off)
	assert.Equal(t, int64(4096), coalesced[0].Len)
}

func TestTracker_Coalesce_Adjacent(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(4096, 4096)
	tracker.Add(8192, 4096)

	coalesced := tracker.Ranges()
	require.Len(t, coalesced, 1)
	assert.Equal(t, Range{Off: 4096, Len: 8192}, coalesced[0])
}

func TestTracker_Coalesce_Disjoint(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(20480, 10) // page 5
	tracker.Add(0, 10)     // page 0
	tracker.Add(4100, 10)  // page 1
	tracker.Add(8200, 10)  // page 2
	tracker.Add(24600, 10) // page 6

	assert.Equal(t, []Range{
		{Off: 0, Len: 0x3000},
		{Off: 0x5000, Len: 0x2000},
	}, tracker.Ranges())
}

func TestTracker_Coalesce_Contained(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(0, 3*4096)
	tracker.Add(4096, 16)

	assert.Equal(t, []Range{{Off: 0, Len: 3 * 4096}}, tracker.Ranges())
}

func TestTracker_IgnoresEmptyRanges(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(4096, 0)
	tracker.Add(4096, -8)

	assert.False(t, tracker.Pending())
	assert.Nil(t, tracker.Ranges())
}

func TestTracker_FlushWritesOnlyDirtyPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.img")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := bytes.Repeat([]byte{0xCC}, 3*4096)
	tracker := NewTracker()
	tracker.Add(4096+10, 4) // only the middle page

	require.NoError(t, tracker.Flush(context.Background(), f, data))
	assert.False(t, tracker.Pending(), "flush clears ranges")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, len(data), "file is truncated/extended to the image length")
	assert.Equal(t, make([]byte, 4096), got[:4096], "clean page untouched")
	assert.Equal(t, data[4096:8192], got[4096:8192], "dirty page written")
	assert.Equal(t, make([]byte, 4096), got[8192:], "clean page untouched")
}

func TestTracker_FlushClipsToImage(t *testing.T) {
	var w bytesWriterAt
	data := bytes.Repeat([]byte{0x11}, 100)

	tracker := NewTracker()
	tracker.Add(0, 50)
	tracker.Add(8192, 10) // beyond the image

	require.NoError(t, tracker.Flush(context.Background(), &w, data))
	assert.Equal(t, data, w.buf)
}

func TestTracker_FlushPreCancelled(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(4096, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tracker.Flush(ctx, &bytesWriterAt{}, make([]byte, 8192))
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got: %v", err)
	assert.True(t, tracker.Pending(), "ranges survive a cancelled flush")
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker()
	tracker.Add(0, 1)
	tracker.Add(9000, 1)
	require.Len(t, tracker.Ranges(), 2)

	tracker.Reset()
	assert.False(t, tracker.Pending())
	assert.Empty(t, tracker.Ranges())
}

// bytesWriterAt is an in-memory io.WriterAt.
type bytesWriterAt struct {
	buf []byte
}

func (w *bytesWriterAt) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	return copy(w.buf[off:], p), nil
}
