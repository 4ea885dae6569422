package indexing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"warcidx/internal/analysis"
	"warcidx/internal/codec"
	"warcidx/internal/corpus"
	xerrors "warcidx/internal/errors"
	"warcidx/internal/logx"
	"warcidx/internal/memctl"
)

// Job is the copy-semantics work unit sent to a worker: the popped
// file and cursor plus everything needed to assign docids, with no
// aliasing into the live Subindex (spec.md §5's "copy semantics, no
// aliasing" discipline, reproduced here even though goroutines could
// share memory directly).
type Job struct {
	PartitionID int
	DocidOffset int64
	StartDocid  int64
	Path        string
	Cursor      int64
}

// Result is what a worker hands back to the coordinator. The
// coordinator alone decides, from Err and Completed, whether to
// advance the partition's docid and whether to re-push the file.
type Result struct {
	Job         Job
	Completed   bool
	NextCursor  int64
	DocCount    int64
	TotalDocLen int64
	RunFile     string
	URLFragFile string
	Err         error
	CorpusErrs  []error
}

// docEntry is one useful record after tokenization, pending docid
// assignment (spec.md §4.3 steps 1-2).
type docEntry struct {
	url    string
	freqs  map[string]int
	docLen int
}

// RunJob performs spec.md §4.3's streamize/tokenize/index/flush
// sequence for one popped file, writing its run-file block and
// url-mapping fragment under runDir. Any failure before flush leaves
// no partial files on disk and is reported via Result.Err so the
// coordinator can roll the partition back and re-queue the file at
// its original cursor.
func RunJob(job Job, cfg Config, runDir string) Result {
	res := Result{Job: job}

	docs, completed, nextCursor, corpusErrs, err := streamize(job, cfg)
	res.CorpusErrs = corpusErrs
	if err != nil {
		res.Err = xerrors.NewWorkerError(job.PartitionID, job.Path, "streamize", err)
		return res
	}

	inverted := make(codec.InvertedMap)
	var totalDocLen int64
	descriptors := make([]docDescriptor, 0, len(docs))
	for i, d := range docs {
		localDocid := job.StartDocid + int64(i)
		for term, freq := range d.freqs {
			inverted[term] = append(inverted[term], codec.Posting{DocID: localDocid, Freq: int64(freq)})
		}
		descriptors = append(descriptors, docDescriptor{
			docid:  localDocid + job.DocidOffset,
			docLen: d.docLen,
			url:    d.url,
		})
		totalDocLen += int64(d.docLen)
	}
	// Postings are appended in increasing local-docid order (docs are
	// consumed in file order), so each term's list is already ascending
	// by docid without a separate sort pass (spec.md §4.3 step 4).

	runPath := filepath.Join(runDir, fmt.Sprintf("run-%d-%d.part", job.PartitionID, job.StartDocid))
	fragPath := filepath.Join(runDir, fmt.Sprintf("urlfrag-%d-%d.part", job.PartitionID, job.StartDocid))
	if err := flush(inverted, descriptors, job.DocidOffset, runPath, fragPath); err != nil {
		os.Remove(runPath)
		os.Remove(fragPath)
		res.Err = xerrors.NewWorkerError(job.PartitionID, job.Path, "flush", err)
		return res
	}

	res.Completed = completed
	res.NextCursor = nextCursor
	res.DocCount = int64(len(docs))
	res.TotalDocLen = totalDocLen
	res.RunFile = runPath
	res.URLFragFile = fragPath
	return res
}

// streamize opens job.Path at job.Cursor and iterates useful records
// until either end-of-file (completed=true) or the cumulative bytes
// read past the cursor exceed cfg.MaxReadBytes, or cfg.MaxDocsPerWorker
// documents have been collected — whichever comes first (spec.md
// §4.3 step 1, bounded additionally by the planner's per-worker doc cap).
func streamize(job Job, cfg Config) ([]docEntry, bool, int64, []error, error) {
	r, err := corpus.Open(job.Path, job.Cursor)
	if err != nil {
		return nil, false, job.Cursor, nil, err
	}
	defer r.Close()

	guard := memctl.NewGuard(cfg.PerWorkerMB)

	var docs []docEntry
	var corpusErrs []error
	for {
		rec, err := r.Next(job.Path)
		if err == nil {
			freqs := analysis.TermFrequencies(rec.Text)
			docs = append(docs, docEntry{
				url:    rec.URL,
				freqs:  freqs,
				docLen: len(rec.Text),
			})
			if guard.Add(estimateDocBytes(freqs, len(rec.Text))) {
				return docs, false, r.Offset(), corpusErrs, nil
			}
			if r.Offset()-job.Cursor > cfg.MaxReadBytes {
				return docs, false, r.Offset(), corpusErrs, nil
			}
			if int64(len(docs)) >= cfg.MaxDocsPerWorker {
				return docs, false, r.Offset(), corpusErrs, nil
			}
			continue
		}
		if isEOF(err) {
			return docs, true, r.Offset(), corpusErrs, nil
		}
		// Corpus-level error: log and skip the record; the cursor has
		// already advanced past the bad bytes inside the reader. Also
		// collected so the coordinator can report every skip across the
		// whole run together as one xerrors.MultiError.
		logx.Warnf("corpus: skipping malformed record in %s: %v", job.Path, err)
		corpusErrs = append(corpusErrs, err)
		if _, ok := err.(*xerrors.CorpusError); !ok {
			return docs, false, r.Offset(), corpusErrs, err
		}
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// estimateDocBytes approximates a document's in-memory footprint (its
// decoded text plus one posting entry per distinct term) for the
// cooperative memory Guard; it need not be exact, only monotonic with
// actual growth of the partition's in-memory inverted map.
func estimateDocBytes(freqs map[string]int, docLen int) int {
	return docLen + len(freqs)*24
}

// docDescriptor is one (docid, doc_len, url) triple pending flush to
// the url-mapping fragment (spec.md §3 "Document descriptor").
type docDescriptor struct {
	docid  int64
	docLen int
	url    string
}

// flush writes the in-memory inverted map (sorted by term, ascending
// docid within a term by construction) to a new run-file block and the
// doc descriptors to a url-mapping fragment file (spec.md §4.3 step 4).
func flush(inverted codec.InvertedMap, descriptors []docDescriptor, docidOffset int64, runPath, fragPath string) error {
	runFile, err := os.OpenFile(runPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer runFile.Close()
	if err := codec.WriteInvertedMap(inverted, runFile, docidOffset); err != nil {
		return err
	}

	fragFile, err := os.OpenFile(fragPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer fragFile.Close()
	w := bufio.NewWriter(fragFile)
	for _, d := range descriptors {
		if _, err := fmt.Fprintf(w, "%d %d %s\n", d.docid, d.docLen, d.url); err != nil {
			return err
		}
	}
	return w.Flush()
}
