package indexing

import (
	"bufio"
	"io"
	"os"
	"sort"

	"warcidx/internal/codec"
	xerrors "warcidx/internal/errors"
)

// termBlockStream lazily exposes a run file's postings as a single
// term-ascending sequence, pulling another on-disk block only when the
// in-memory block is exhausted. This lets the pairwise merge below
// advance one side arbitrarily far ahead of the other — the "advancing
// left side" edge case in spec.md §4.4 — without ever materializing
// more than one block of either run at a time.
type termBlockStream struct {
	path     string
	maxChars int
	cursor   int64
	started  bool
	done     bool

	terms []string
	m     codec.InvertedMap
	idx   int
}

func newTermBlockStream(path string, maxChars int) *termBlockStream {
	return &termBlockStream{path: path, maxChars: maxChars}
}

func (s *termBlockStream) refill() error {
	for s.idx >= len(s.terms) && !s.done {
		cursor := s.cursor
		if !s.started {
			cursor = 0
		}
		m, next, err := codec.ReadNext(s.path, cursor, s.maxChars)
		if err != nil {
			return err
		}
		s.started = true
		s.m = m
		s.terms = s.terms[:0]
		for t := range m {
			s.terms = append(s.terms, t)
		}
		sort.Strings(s.terms)
		s.idx = 0
		if next < 0 {
			s.done = true
		} else {
			s.cursor = next
		}
	}
	return nil
}

// hasMore reports whether a current term is available.
func (s *termBlockStream) hasMore() (bool, error) {
	if err := s.refill(); err != nil {
		return false, err
	}
	return s.idx < len(s.terms), nil
}

func (s *termBlockStream) term() string {
	return s.terms[s.idx]
}

func (s *termBlockStream) postings() []codec.Posting {
	return s.m[s.terms[s.idx]]
}

func (s *termBlockStream) advance() {
	s.idx++
}

// mergeTwo streams run files a and b term-sorted-union into a new
// output file (spec.md §4.4 step 3): for terms present in both, the
// postings are the concatenated list resorted ascending by docid.
func mergeTwo(a, b, out string, maxReadChars int) error {
	sa := newTermBlockStream(a, maxReadChars)
	sb := newTermBlockStream(b, maxReadChars)

	f, err := os.Create(out)
	if err != nil {
		return xerrors.NewCodecError(out, "cannot create merge output", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	for {
		haveA, err := sa.hasMore()
		if err != nil {
			return err
		}
		haveB, err := sb.hasMore()
		if err != nil {
			return err
		}
		if !haveA && !haveB {
			break
		}

		switch {
		case !haveB || (haveA && sa.term() < sb.term()):
			if _, err := w.WriteString(codec.FormatLine(sa.term(), sa.postings()) + "\n"); err != nil {
				return err
			}
			sa.advance()
		case !haveA || (haveB && sb.term() < sa.term()):
			if _, err := w.WriteString(codec.FormatLine(sb.term(), sb.postings()) + "\n"); err != nil {
				return err
			}
			sb.advance()
		default:
			merged := append(append([]codec.Posting{}, sa.postings()...), sb.postings()...)
			sort.Slice(merged, func(i, j int) bool { return merged[i].DocID < merged[j].DocID })
			if _, err := w.WriteString(codec.FormatLine(sa.term(), merged) + "\n"); err != nil {
				return err
			}
			sa.advance()
			sb.advance()
		}
	}
	return w.Flush()
}

// externalMerge repeatedly pops the first two run files, merges them,
// and appends the merged result to the back of the queue until one
// remains (spec.md §4.4 step 3). Returns the path of the sole
// surviving run.
func externalMerge(runFiles []string, maxReadChars int) (string, error) {
	if len(runFiles) == 0 {
		return "", xerrors.NewCodecError("", "no run files to merge", nil)
	}
	f := append([]string{}, runFiles...)
	for len(f) > 1 {
		a, b := f[0], f[1]
		rest := append([]string{}, f[2:]...)

		bPrime := b + ".merging"
		if err := mergeTwo(a, b, bPrime, maxReadChars); err != nil {
			return "", err
		}
		if err := os.Remove(a); err != nil {
			return "", xerrors.NewCodecError(a, "cannot remove consumed run file", err)
		}
		if err := os.Rename(bPrime, b); err != nil {
			return "", xerrors.NewCodecError(bPrime, "cannot rename merged run file", err)
		}
		f = append(rest, b)
	}
	return f[0], nil
}

// moveFile copies inPath's contents to out in chunkSize-byte chunks and
// removes inPath, matching spec.md §4.4's bounded move_file. assemble
// uses it for url-mapping fragments (maxReadChars chunks) and to fold
// the last remaining run into the final file (maxReadChars*4 chunks).
func moveFile(inPath string, out io.Writer, chunkSize int) error {
	in, err := os.Open(inPath)
	if err != nil {
		return xerrors.NewCodecError(inPath, "cannot open for move", err)
	}
	defer in.Close()

	buf := make([]byte, chunkSize)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.NewCodecError(inPath, "read failed during move", err)
		}
	}
	return os.Remove(inPath)
}
