// Package trace reads, writes, generates, and replays allocator traces in the
// malloc-lab format:
//
//	<suggested heap size>
//	<number of ids>
//	<number of ops>
//	<weight>
//	a <id> <size>   allocate size bytes and bind them to id
//	r <id> <size>   resize the block bound to id
//	f <id>          release the block bound to id
//
// Tokens are whitespace separated; line breaks carry no meaning.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ErrSyntax indicates a malformed trace.
var ErrSyntax = errors.New("trace: syntax error")

// OpKind is the operation letter.
type OpKind byte

const (
	OpAlloc   OpKind = 'a'
	OpRealloc OpKind = 'r'
	OpFree    OpKind = 'f'
)

func (k OpKind) String() string { return string(rune(k)) }

// Op is one trace step.
type Op struct {
	Kind OpKind
	ID   int
	Size int // unused for OpFree
}

func (o Op) String() string {
	if o.Kind == OpFree {
		return fmt.Sprintf("f %d", o.ID)
	}
	return fmt.Sprintf("%s %d %d", o.Kind, o.ID, o.Size)
}

// Trace is a parsed trace file.
type Trace struct {
	HeapSize int // Suggested heap size; informational
	NumIDs   int
	Weight   int
	Ops      []Op
}

// Parse reads a trace from r.
func Parse(r io.Reader) (*Trace, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	tok := 0

	next := func(what string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("%w: token %d: unexpected end of input, want %s", ErrSyntax, tok, what)
		}
		tok++
		return sc.Text(), nil
	}
	nextInt := func(what string) (int, error) {
		s, err := next(what)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: token %d: %s %q is not a non-negative integer", ErrSyntax, tok, what, s)
		}
		return n, nil
	}

	t := &Trace{}
	var numOps int
	for _, h := range []struct {
		dst  *int
		what string
	}{
		{&t.HeapSize, "heap size"},
		{&t.NumIDs, "number of ids"},
		{&numOps, "number of ops"},
		{&t.Weight, "weight"},
	} {
		n, err := nextInt(h.what)
		if err != nil {
			return nil, err
		}
		*h.dst = n
	}

	t.Ops = make([]Op, 0, numOps)
	for i := range numOps {
		kind, err := next("operation")
		if err != nil {
			return nil, err
		}
		if len(kind) != 1 {
			return nil, fmt.Errorf("%w: op %d: unknown operation %q", ErrSyntax, i, kind)
		}
		op := Op{Kind: OpKind(kind[0])}
		switch op.Kind {
		case OpAlloc, OpRealloc, OpFree:
		default:
			return nil, fmt.Errorf("%w: op %d: unknown operation %q", ErrSyntax, i, kind)
		}

		if op.ID, err = nextInt("id"); err != nil {
			return nil, err
		}
		if op.ID >= t.NumIDs {
			return nil, fmt.Errorf("%w: op %d: id %d out of range [0,%d)", ErrSyntax, i, op.ID, t.NumIDs)
		}
		if op.Kind != OpFree {
			if op.Size, err = nextInt("size"); err != nil {
				return nil, err
			}
		}
		t.Ops = append(t.Ops, op)
	}

	if sc.Scan() {
		return nil, fmt.Errorf("%w: %d ops declared but more input follows (%q)", ErrSyntax, numOps, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseFile reads the trace at path.
func ParseFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Parse(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteTo writes t in trace format, one op per line.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	n, err := fmt.Fprintf(bw, "%d\n%d\n%d\n%d\n", t.HeapSize, t.NumIDs, len(t.Ops), t.Weight)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, op := range t.Ops {
		n, err := fmt.Fprintln(bw, op)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}
