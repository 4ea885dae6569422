package indexing

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"warcidx/internal/memctl"
	"warcidx/internal/partition"

	xerrors "warcidx/internal/errors"
	"warcidx/internal/logx"
)

const (
	beginURLMapping  = "-----BEGIN URL MAPPING-----"
	endURLMapping    = "-----END URL MAPPING-----"
	beginIndexMeta   = "-----BEGIN INDEX METADATA-----"
	endIndexMeta     = "-----END INDEX METADATA-----"
)

// Stats is the indexer's stdout summary (spec.md §6 "Indexer stdout").
type Stats struct {
	IndexSizeMB     float64 `json:"Index Size"`
	NumberOfLists   int     `json:"Number of Lists"`
	AverageListSize float64 `json:"Average List Size"`
	ElapsedTime     float64 `json:"Elapsed Time"`
}

// RunIndexer executes the full C4 pipeline: discover corpus files,
// plan partitions, dispatch C3 workers to a bounded pool, and assemble
// the final index file.
func RunIndexer(corpusDir, outPath string, budget memctl.Budget) (Stats, error) {
	start := time.Now()

	files, err := discoverCorpusFiles(corpusDir)
	if err != nil {
		return Stats{}, err
	}
	logx.Infof("discovered %s under %s", logx.Count(len(files), "file"), corpusDir)

	cfg, parts := Plan(budget.TotalMB, files)
	cfg.PerWorkerMB = budget.PerWorkerMB
	logx.Debugf("plan: max_workers=%d num_partitions=%d max_docs_per_worker=%d max_read_bytes=%d",
		cfg.MaxWorkers, cfg.NumPartitions, cfg.MaxDocsPerWorker, cfg.MaxReadBytes)

	workDir, err := os.MkdirTemp(filepath.Dir(outPath), ".warcidx-run-")
	if err != nil {
		return Stats{}, xerrors.NewConfigError("work_dir", filepath.Dir(outPath), err)
	}
	defer os.RemoveAll(workDir)

	runFiles, urlFragFiles, numDocs, maxDocid, totalDocLen, corpusErrs, err := dispatch(parts, cfg, workDir)
	if err != nil {
		return Stats{}, err
	}
	logx.Infof("indexed %s across %s", logx.Count(int(numDocs), "document"), logx.Count(len(runFiles), "run file"))
	if skipped := xerrors.NewMultiError(corpusErrs); skipped != nil {
		logx.Warnf("corpus: %s skipped across the run (%v)", logx.Count(len(corpusErrs), "record"), skipped)
	}

	stats, err := assemble(outPath, urlFragFiles, runFiles, numDocs, maxDocid, totalDocLen, cfg.MaxReadChars)
	if err != nil {
		return Stats{}, err
	}
	stats.ElapsedTime = time.Since(start).Seconds()
	return stats, nil
}

// discoverCorpusFiles lists regular files directly under dir, matching
// spec.md §4.4 "Locate corpus files". Subdirectories are not recursed
// into; corpus files are expected flat under -c.
func discoverCorpusFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, xerrors.NewConfigError("corpus_dir", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// dispatch runs successive rounds of job submission until every
// partition has no pending files, bounding concurrency within each
// round to cfg.MaxWorkers (spec.md §4.4 "Execution"). The coordinator
// itself — this function, running on a single goroutine outside the
// errgroup — is the only thing that mutates partition state, matching
// spec.md §5's single-threaded-coordinator discipline.
func dispatch(parts []*partition.Subindex, cfg Config, workDir string) (runFiles, urlFragFiles []string, numDocs, maxDocid, totalDocLen int64, corpusErrs []error, err error) {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	byID := make(map[int]*partition.Subindex, len(parts))
	for _, p := range parts {
		byID[p.ID] = p
	}

	for {
		var jobs []Job
		for _, p := range parts {
			path, cursor, ok := p.PopFile()
			if !ok {
				continue
			}
			jobs = append(jobs, Job{
				PartitionID: p.ID,
				DocidOffset: p.DocidOffset,
				StartDocid:  p.Docid(),
				Path:        path,
				Cursor:      cursor,
			})
		}
		if len(jobs) == 0 {
			break
		}

		results := make([]Result, len(jobs))
		g := new(errgroup.Group)
		g.SetLimit(maxWorkers)
		for i, job := range jobs {
			i, job := i, job
			g.Go(func() error {
				results[i] = RunJob(job, cfg, workDir)
				return nil
			})
		}
		_ = g.Wait()

		for _, res := range results {
			p := byID[res.Job.PartitionID]
			corpusErrs = append(corpusErrs, res.CorpusErrs...)
			if res.Err != nil {
				logx.Errorf("worker fatal on partition %d: %v", res.Job.PartitionID, res.Err)
				p.PushFile(res.Job.Path, res.Job.Cursor)
				continue
			}

			p.AdvanceDocid(res.DocCount)
			numDocs += res.DocCount
			totalDocLen += res.TotalDocLen
			if global := res.Job.DocidOffset + p.Docid(); global > maxDocid {
				maxDocid = global
			}
			if res.RunFile != "" {
				runFiles = append(runFiles, res.RunFile)
			}
			if res.URLFragFile != "" {
				urlFragFiles = append(urlFragFiles, res.URLFragFile)
			}
			if !res.Completed {
				p.PushFile(res.Job.Path, res.NextCursor)
			}
		}
	}
	return runFiles, urlFragFiles, numDocs, maxDocid, totalDocLen, corpusErrs, nil
}

// assemble concatenates url-mapping fragments, writes the
// index-metadata trailer, folds run files via external merge, and
// appends the merged postings region (spec.md §4.4 "Assembly", §6
// "Final index file layout").
func assemble(outPath string, urlFragFiles, runFiles []string, numDocs, maxDocid, totalDocLen int64, maxReadChars int) (Stats, error) {
	out, err := os.Create(outPath)
	if err != nil {
		return Stats{}, xerrors.NewConfigError("output", outPath, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	if _, err := fmt.Fprintln(w, beginURLMapping); err != nil {
		return Stats{}, err
	}
	for _, frag := range urlFragFiles {
		if err := moveFile(frag, w, maxReadChars); err != nil {
			return Stats{}, err
		}
	}
	if _, err := fmt.Fprintln(w, endURLMapping); err != nil {
		return Stats{}, err
	}

	avgDocLen := 0.0
	if numDocs > 0 {
		avgDocLen = float64(totalDocLen) / float64(numDocs)
	}
	if _, err := fmt.Fprintln(w, beginIndexMeta); err != nil {
		return Stats{}, err
	}
	fmt.Fprintf(w, "num_docs %d\n", numDocs)
	fmt.Fprintf(w, "max_docid %d\n", maxDocid)
	fmt.Fprintf(w, "avg_doc_len %g\n", avgDocLen)
	if _, err := fmt.Fprintln(w, endIndexMeta); err != nil {
		return Stats{}, err
	}

	numLists := 0
	totalPostings := 0
	if len(runFiles) > 0 {
		merged, err := externalMerge(runFiles, maxReadChars)
		if err != nil {
			return Stats{}, err
		}
		numLists, totalPostings, err = countPostingStats(merged)
		if err != nil {
			return Stats{}, err
		}
		if err := moveFile(merged, w, maxReadChars*4); err != nil {
			return Stats{}, err
		}
	}

	if err := w.Flush(); err != nil {
		return Stats{}, err
	}

	info, err := out.Stat()
	if err != nil {
		return Stats{}, err
	}

	avgListSize := 0.0
	if numLists > 0 {
		avgListSize = float64(totalPostings) / float64(numLists)
	}
	return Stats{
		IndexSizeMB:     float64(info.Size()) / (1024 * 1024),
		NumberOfLists:   numLists,
		AverageListSize: avgListSize,
	}, nil
}

// countPostingStats scans a merged run file's lines, counting terms
// and total postings, before it is folded into the final file.
func countPostingStats(path string) (numLists, totalPostings int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, " ")
		numLists++
		totalPostings += len(fields) - 1
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return numLists, totalPostings, err
	}
	return numLists, totalPostings, nil
}
