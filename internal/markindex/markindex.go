// Package markindex implements the sparse term->byte_offset mark
// index (spec.md §4.5): a one-pass scan of the final index's postings
// region recording the first term at each ~1 MiB block boundary, used
// to seek to an arbitrary term's postings in O(log marks + 1 block).
package markindex

import (
	"sort"

	"warcidx/internal/codec"
	xerrors "warcidx/internal/errors"
)

// MarkStep is the approximate byte spacing between recorded marks.
const MarkStep = 1 << 20

// mark is one (first_term_of_block, byte_offset) pair.
type mark struct {
	term   string
	offset int64
}

// Index is the built sparse map plus enough state to resolve a term to
// its postings via a seek-then-scan lookup.
type Index struct {
	path      string
	maxChars  int
	marks     []mark
	postStart int64
}

// Build scans path starting at postingsStart (the byte offset where
// the postings region begins, i.e. just after the index-metadata
// trailer) using the codec's streaming reader with step maxChars,
// recording one mark per block (spec.md §4.5).
func Build(path string, postingsStart int64, maxChars int) (*Index, error) {
	idx := &Index{path: path, maxChars: maxChars, postStart: postingsStart}

	cursor := postingsStart
	for {
		m, next, err := codec.ReadNext(path, cursor, maxChars)
		if err != nil {
			return nil, err
		}
		if len(m) == 0 {
			break
		}
		first := firstTermAscending(m)
		idx.marks = append(idx.marks, mark{term: first, offset: cursor})
		if next < 0 {
			break
		}
		cursor = next
	}
	return idx, nil
}

func firstTermAscending(m codec.InvertedMap) string {
	first := ""
	for t := range m {
		if first == "" || t < first {
			first = t
		}
	}
	return first
}

// Lookup finds the inverted list for term t: it finds the largest mark
// term <= t, seeks there, and streams block by block until t's line is
// read or a lexicographically greater term is observed (spec.md §4.5).
// Returns ok=false when t is not present in the index.
func (idx *Index) Lookup(t string) ([]codec.Posting, bool, error) {
	if len(idx.marks) == 0 {
		return nil, false, nil
	}
	// largest i such that marks[i].term <= t
	i := sort.Search(len(idx.marks), func(i int) bool { return idx.marks[i].term > t })
	if i == 0 {
		// t sorts before every mark; nothing to find.
		return nil, false, nil
	}
	cursor := idx.marks[i-1].offset

	for {
		m, next, err := codec.ReadNext(idx.path, cursor, idx.maxChars)
		if err != nil {
			return nil, false, err
		}
		if postings, ok := m[t]; ok {
			return postings, true, nil
		}
		if blockPassedTerm(m, t) {
			return nil, false, nil
		}
		if next < 0 {
			return nil, false, nil
		}
		cursor = next
	}
}

// blockPassedTerm reports whether this block's maximum term already
// sorts past t. Blocks are contiguous, internally-sorted segments of
// the file's globally ascending term sequence, so once a block's
// maximum term exceeds t without t being present, t cannot appear in
// any later block either — the scan can stop.
func blockPassedTerm(m codec.InvertedMap, t string) bool {
	max := ""
	for term := range m {
		if term > max {
			max = term
		}
	}
	return max > t
}

// MustFound wraps Lookup for the ranker's contract that a term
// promised by the mark index (present in the query's term set after
// the initial existence probe) but missing on re-scan is a structural
// bug, not a soft miss (spec.md §7).
func (idx *Index) MustFound(t string) ([]codec.Posting, error) {
	postings, ok, err := idx.Lookup(t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.NewCodecError(idx.path, "term promised by mark index not found on re-scan", nil)
	}
	return postings, nil
}
