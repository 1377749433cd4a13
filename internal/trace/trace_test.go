package trace

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const shortTrace = `20000
2
5
1
a 0 2040
a 1 2040
f 1
r 0 4000
f 0
`

func TestParse_Basic(t *testing.T) {
	tr, err := Parse(strings.NewReader(shortTrace))
	require.NoError(t, err)
	require.Equal(t, 20000, tr.HeapSize)
	require.Equal(t, 2, tr.NumIDs)
	require.Equal(t, 1, tr.Weight)
	require.Equal(t, []Op{
		{Kind: OpAlloc, ID: 0, Size: 2040},
		{Kind: OpAlloc, ID: 1, Size: 2040},
		{Kind: OpFree, ID: 1},
		{Kind: OpRealloc, ID: 0, Size: 4000},
		{Kind: OpFree, ID: 0},
	}, tr.Ops)
}

func TestParse_WhitespaceInsensitive(t *testing.T) {
	tr, err := Parse(strings.NewReader("0 1 2 1   a 0 8\tf\n0"))
	require.NoError(t, err)
	require.Len(t, tr.Ops, 2)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "heap size"},
		{"bad header", "20000 x 1 1", "number of ids"},
		{"negative", "0 1 1 -1", "weight"},
		{"unknown op", "0 1 1 1 z 0 8", "unknown operation"},
		{"long op", "0 1 1 1 alloc 0 8", "unknown operation"},
		{"id out of range", "0 1 1 1 a 1 8", "out of range"},
		{"missing size", "0 1 1 1 a 0", "size"},
		{"too few ops", "0 1 2 1 a 0 8", "unexpected end"},
		{"trailing input", "0 1 1 1 a 0 8 f 0", "more input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.ErrorIs(t, err, ErrSyntax)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteTo_RoundTrips(t *testing.T) {
	tr, err := Parse(strings.NewReader(shortTrace))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := tr.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, buf.Len(), n)
	require.Equal(t, shortTrace, buf.String())
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.rep")
	require.NoError(t, os.WriteFile(path, []byte(shortTrace), 0o644))

	tr, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, tr.Ops, 5)

	_, err = ParseFile(filepath.Join(t.TempDir(), "absent.rep"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestGenerate_Deterministic(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.Seed = 99

	a, b := Generate(opts), Generate(opts)
	require.Equal(t, a, b)

	opts.Seed = 100
	require.NotEqual(t, a.Ops, Generate(opts).Ops)
}

func TestGenerate_WellFormed(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.Ops = 2000
	tr := Generate(opts)

	require.GreaterOrEqual(t, len(tr.Ops), opts.Ops)
	live := make(map[int]bool)
	for i, op := range tr.Ops {
		require.Less(t, op.ID, tr.NumIDs, "op %d", i)
		switch op.Kind {
		case OpAlloc:
			require.False(t, live[op.ID], "op %d reuses id", i)
			require.Positive(t, op.Size)
			require.LessOrEqual(t, op.Size, opts.MaxSize)
			live[op.ID] = true
		case OpRealloc:
			require.True(t, live[op.ID], "op %d resizes dead id", i)
		case OpFree:
			require.True(t, live[op.ID], "op %d frees dead id", i)
			delete(live, op.ID)
		}
	}
	require.Empty(t, live, "every id is released by the end")
	require.Positive(t, tr.HeapSize)

	// The generated text parses back to the same trace.
	var buf bytes.Buffer
	_, err := tr.WriteTo(&buf)
	require.NoError(t, err)
	back, err := Parse(&buf)
	require.NoError(t, err)
	require.Equal(t, tr, back)
}
