// Package partition implements the Subindex partition bookkeeping
// (spec.md §4.2): a disjoint slice of the corpus and docid space owned
// by one worker invocation at a time.
package partition

// MaxDocsPerFile pins spec.md §1's MAX_DOCS_PER_FILE constant, used at
// planning time to compute each partition's docid_offset.
const MaxDocsPerFile = 12000

// pendingFile is one entry of a partition's pending_files map: the path
// still to be parsed and the byte cursor at which parsing resumes.
type pendingFile struct {
	path   string
	cursor int64
}

// Subindex is one partition: an id, a docid_offset fixed at plan time,
// a local next-docid counter, and a bag of pending files. Only the
// coordinator mutates a Subindex, and only at job boundaries (spec.md
// §4.2's Lifecycle note).
type Subindex struct {
	ID          int
	DocidOffset int64

	docid   int64
	pending []pendingFile
}

// New creates a partition with the given id and docid_offset. docid
// starts at 0, as required by spec.md §4.2.
func New(id int, docidOffset int64) *Subindex {
	return &Subindex{ID: id, DocidOffset: docidOffset}
}

// Len reports the number of files still pending in this partition.
func (s *Subindex) Len() int {
	return len(s.pending)
}

// PushFile adds path to the pending set at the given resume cursor. A
// path must appear at most once; callers that violate this invariant
// (e.g. re-pushing after a rollback) will simply get a duplicate entry,
// since the coordinator is the only caller and never double-pushes a
// path it hasn't first popped.
func (s *Subindex) PushFile(path string, cursor int64) {
	s.pending = append(s.pending, pendingFile{path: path, cursor: cursor})
}

// PopFile removes and returns an arbitrary pending file and its resume
// cursor. Order is nondeterministic across implementations but stable
// within one run, matching spec.md §4.2's tolerance note. Reports ok=false
// when no files remain.
func (s *Subindex) PopFile() (path string, cursor int64, ok bool) {
	n := len(s.pending)
	if n == 0 {
		return "", 0, false
	}
	last := s.pending[n-1]
	s.pending = s.pending[:n-1]
	return last.path, last.cursor, true
}

// Docid returns the partition's current local next-docid.
func (s *Subindex) Docid() int64 {
	return s.docid
}

// AdvanceDocid moves the local docid counter forward by n, called by
// the coordinator only after a worker's flush (step 4) has fully
// succeeded (spec.md §4.2).
func (s *Subindex) AdvanceDocid(n int64) {
	s.docid += n
}

// GlobalDocidRange returns this partition's globally assigned docid
// range [DocidOffset, DocidOffset+capacity), where capacity is the
// number of files originally assigned to the partition times
// MaxDocsPerFile, per the invariant in spec.md §4.2.
func (s *Subindex) GlobalDocidRange(fileCount int) (lo, hi int64) {
	capacity := int64(fileCount) * MaxDocsPerFile
	return s.DocidOffset, s.DocidOffset + capacity
}

// Plan assigns docid_offset to each of n partitions given how many
// files each will hold, per spec.md §4.4's "cumulative" rule:
// docid_offset(i) = Σ fileCounts[j]·MaxDocsPerFile for j<i.
func Plan(fileCounts []int) []*Subindex {
	parts := make([]*Subindex, len(fileCounts))
	var offset int64
	for i, count := range fileCounts {
		parts[i] = New(i, offset)
		offset += int64(count) * MaxDocsPerFile
	}
	return parts
}

// Distribute assigns files round-robin across n partitions so sizes
// differ by at most one (spec.md §4.4). Docid offsets are planned from
// the per-partition file counts, and the partitions are returned with
// their files already pushed.
func Distribute(files []string, n int) []*Subindex {
	if n < 1 {
		n = 1
	}
	counts := make([]int, n)
	for i := range files {
		counts[i%n]++
	}
	parts := Plan(counts)
	for i, f := range files {
		parts[i%n].PushFile(f, 0)
	}
	return parts
}
