// Package codec implements the textual line format for inverted lists
// (spec.md §4.1): "term SP docid1,freq1 SP docid2,freq2 ... LF", plus a
// bounded-memory streaming reader that never splits a line across reads.
package codec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	xerrors "warcidx/internal/errors"
)

// Posting is one (docid, freq) pair in an inverted list.
type Posting struct {
	DocID int64
	Freq  int64
}

// InvertedMap maps term -> ordered postings, as read from or destined
// for one block of the line format.
type InvertedMap map[string][]Posting

// WriteInvertedMap emits m to out in ascending term order, one line per
// term, applying docidOffset to every posting's docid (spec.md §4.1
// "Writer contract"). Terms with zero postings are never emitted. The
// writer never rewrites prior output; callers open out for appending
// themselves.
func WriteInvertedMap(m InvertedMap, out io.Writer, docidOffset int64) error {
	terms := make([]string, 0, len(m))
	for term, postings := range m {
		if len(postings) == 0 {
			continue
		}
		terms = append(terms, term)
	}
	sort.Strings(terms)

	w := bufio.NewWriter(out)
	for _, term := range terms {
		if _, err := w.WriteString(term); err != nil {
			return err
		}
		for _, p := range m[term] {
			if _, err := fmt.Fprintf(w, " %d,%d", p.DocID+docidOffset, p.Freq); err != nil {
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadNext reads at most maxChars UTF-8 characters (approximated here
// as bytes, since terms and integers are required to be ASCII-safe per
// spec.md §4.1) from path starting at cursor, extends to the next
// newline so no line is split, and parses the block into an
// InvertedMap. Returns the byte offset just after the consumed block,
// or -1 when EOF lands exactly on a block boundary. A partial line at
// end-of-file is a structural error.
func ReadNext(path string, cursor int64, maxChars int) (InvertedMap, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, -1, xerrors.NewCodecError(path, "cannot open file", err)
	}
	defer f.Close()

	return readNextFrom(f, path, cursor, maxChars)
}

// readNextFrom is the core of ReadNext, working on an already-open
// handle. ReadNext is its only caller, so every block read (by the
// merge pass and the mark index alike) opens the file anew.
func readNextFrom(f *os.File, path string, cursor int64, maxChars int) (InvertedMap, int64, error) {
	if _, err := f.Seek(cursor, io.SeekStart); err != nil {
		return nil, -1, xerrors.NewCodecError(path, "seek failed", err)
	}

	buf := make([]byte, maxChars)
	n, readErr := io.ReadFull(f, buf)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return nil, -1, xerrors.NewCodecError(path, "read failed", readErr)
	}
	block := buf[:n]
	if len(block) == 0 {
		return InvertedMap{}, -1, nil
	}

	// Extend to the next newline so we never split a line.
	for block[len(block)-1] != '\n' {
		var one [1]byte
		k, err := f.Read(one[:])
		if k == 0 || err != nil {
			break
		}
		block = append(block, one[0])
	}
	if block[len(block)-1] != '\n' {
		return nil, -1, xerrors.NewCodecError(path, "partial line at end of file", nil)
	}

	m, err := parseBlock(block)
	if err != nil {
		return nil, -1, xerrors.NewCodecError(path, "malformed posting line", err)
	}

	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, -1, xerrors.NewCodecError(path, "tell failed", err)
	}

	// Confirm there is truly nothing left; the stray read does not
	// matter because every call re-seeks to its cursor first.
	var probe [1]byte
	k, _ := f.Read(probe[:])
	if k == 0 {
		return m, -1, nil
	}
	return m, pos, nil
}

func parseBlock(block []byte) (InvertedMap, error) {
	m := make(InvertedMap)
	lines := strings.Split(strings.TrimRight(string(block), "\n"), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		term, postings, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		m[term] = postings
	}
	return m, nil
}

// ParseLine parses one "term p1,f1 p2,f2 ..." line.
func ParseLine(line string) (string, []Posting, error) {
	fields := strings.Split(line, " ")
	if len(fields) < 2 {
		return "", nil, fmt.Errorf("line has no postings: %q", line)
	}
	term := fields[0]
	postings := make([]Posting, 0, len(fields)-1)
	for _, pf := range fields[1:] {
		comma := strings.IndexByte(pf, ',')
		if comma < 0 {
			return "", nil, fmt.Errorf("posting %q missing comma", pf)
		}
		docid, err := strconv.ParseInt(pf[:comma], 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("posting %q has non-integer docid: %w", pf, err)
		}
		freq, err := strconv.ParseInt(pf[comma+1:], 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("posting %q has non-integer freq: %w", pf, err)
		}
		postings = append(postings, Posting{DocID: docid, Freq: freq})
	}
	return term, postings, nil
}

// FormatLine renders one inverted-list line, without the trailing LF,
// writing postings in the order given; it does not sort them.
func FormatLine(term string, postings []Posting) string {
	var b strings.Builder
	b.WriteString(term)
	for _, p := range postings {
		fmt.Fprintf(&b, " %d,%d", p.DocID, p.Freq)
	}
	return b.String()
}
