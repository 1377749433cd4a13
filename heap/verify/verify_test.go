package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
)

type spec struct {
	size    int
	alloc   bool
	request int
}

// buildImage lays out prologue, the given blocks, and the epilogue.
func buildImage(t *testing.T, blocks ...spec) []byte {
	t.Helper()

	total := format.InitialSize
	for _, b := range blocks {
		total += b.size
	}
	data := make([]byte, total)

	format.PutTag(data, 0, format.Pack(format.PrologueSize, true))
	format.PutTag(data, format.TagWidth, format.Pack(format.PrologueSize, true))

	off := format.FirstBlock
	for _, b := range blocks {
		tag := format.Pack(b.size, b.alloc)
		format.PutTag(data, off, tag)
		format.PutU64(data, off+format.ShadowOffset, uint64(b.request))
		format.PutTag(data, off+b.size-format.TagWidth, tag)
		off += b.size
	}
	format.PutTag(data, off, format.Pack(0, true))
	return data
}

func requireType(t *testing.T, err error, typ string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, IsType(err, typ), "want %s, got %v", typ, err)
}

// TestHeap_Valid tests validation of a well-formed mixed image.
func TestHeap_Valid(t *testing.T) {
	data := buildImage(t,
		spec{48, true, 24},
		spec{64, false, 0},
		spec{32, true, 1},
		spec{4096, false, 0},
	)
	require.NoError(t, Heap(data))
}

// TestHeap_Empty tests that prologue plus epilogue alone is valid.
func TestHeap_Empty(t *testing.T) {
	require.NoError(t, Heap(buildImage(t)))
}

// TestHeap_TooSmall tests detection of a truncated image.
func TestHeap_TooSmall(t *testing.T) {
	requireType(t, Heap(make([]byte, 16)), TypePartition)
}

// TestHeap_BadPrologue tests detection of a corrupted prologue footer.
func TestHeap_BadPrologue(t *testing.T) {
	data := buildImage(t, spec{48, true, 8})
	format.PutTag(data, format.TagWidth, format.Pack(format.PrologueSize, false))

	err := Heap(data)
	requireType(t, err, TypePrologue)
	require.Contains(t, err.Error(), "prologue tags")
}

// TestHeap_FreeEpilogue tests detection of an epilogue without the allocated bit.
func TestHeap_FreeEpilogue(t *testing.T) {
	data := buildImage(t, spec{48, true, 8})
	format.PutTag(data, len(data)-format.EpilogueSize, format.Pack(0, false))

	requireType(t, Heap(data), TypeEpilogue)
}

// TestHeap_TagMismatch tests detection of a footer that disagrees with its header.
func TestHeap_TagMismatch(t *testing.T) {
	data := buildImage(t, spec{48, true, 8}, spec{64, false, 0})
	format.PutTag(data, format.FirstBlock+48-format.TagWidth, format.Pack(48, false))

	err := Heap(data)
	requireType(t, err, TypeTagMismatch)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, format.FirstBlock, ve.Offset)
	require.Contains(t, ve.Details, "footer")
}

// TestHeap_AdjacentFree tests detection of two free blocks in a row.
func TestHeap_AdjacentFree(t *testing.T) {
	data := buildImage(t, spec{48, false, 0}, spec{64, false, 0})

	err := Heap(data)
	requireType(t, err, TypeAdjacentFree)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, format.FirstBlock+48, ve.Offset)
}

// TestHeap_MisalignedSize tests detection of a size off the 16-byte grid.
func TestHeap_MisalignedSize(t *testing.T) {
	data := buildImage(t, spec{48, true, 8}, spec{64, false, 0})
	format.PutTag(data, format.FirstBlock, format.Pack(40, true))

	requireType(t, Heap(data), TypeAlignment)
}

// TestHeap_UndersizedBlock tests detection of a block smaller than the minimum.
func TestHeap_UndersizedBlock(t *testing.T) {
	data := buildImage(t, spec{16, true, 0}, spec{64, false, 0})

	requireType(t, Heap(data), TypeSize)
}

// TestHeap_RequestExceedsBlock tests detection of a shadow word larger than the payload.
func TestHeap_RequestExceedsBlock(t *testing.T) {
	data := buildImage(t, spec{48, true, 25})

	err := Heap(data)
	requireType(t, err, TypeSize)
	require.Contains(t, err.Error(), "request 25")
}

// TestHeap_BlockOverrunsImage tests detection of a size that runs past the end.
func TestHeap_BlockOverrunsImage(t *testing.T) {
	data := buildImage(t, spec{48, true, 8})
	format.PutTag(data, format.FirstBlock, format.Pack(4096, true))

	requireType(t, Heap(data), TypeSize)
}

// TestHeap_EpilogueNotAtEnd tests detection of trailing bytes after the epilogue.
func TestHeap_EpilogueNotAtEnd(t *testing.T) {
	data := buildImage(t, spec{48, true, 8})
	data = append(data, make([]byte, format.Alignment)...)

	requireType(t, Heap(data), TypePartition)
}

// TestSummarize tests block tallies over a mixed image.
func TestSummarize(t *testing.T) {
	data := buildImage(t,
		spec{48, true, 24},
		spec{64, false, 0},
		spec{32, true, 1},
		spec{128, false, 0},
	)

	s, err := Summarize(data)
	require.NoError(t, err)
	require.Equal(t, 4, s.Blocks)
	require.Equal(t, 2, s.AllocBlocks)
	require.Equal(t, 80, s.AllocBytes)
	require.Equal(t, 25, s.RequestedBytes)
	require.Equal(t, 2, s.FreeBlocks)
	require.Equal(t, 192, s.FreeBytes)
	require.Equal(t, 128, s.LargestFree)
	require.InDelta(t, 25.0/float64(len(data)), s.Utilization(), 1e-9)
}

// TestWalk_StopsOnCallbackError tests that a callback error ends the walk.
func TestWalk_StopsOnCallbackError(t *testing.T) {
	data := buildImage(t, spec{48, true, 8}, spec{64, false, 0})

	seen := 0
	stop := &ValidationError{Type: "stop", Offset: -1}
	err := Walk(data, func(format.Block) error {
		seen++
		return stop
	})
	require.Same(t, stop, err)
	require.Equal(t, 1, seen)
}
