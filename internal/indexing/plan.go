// Package indexing implements the shard worker (C3) and indexer
// coordinator (C4): partition planning, per-partition streamize/
// tokenize/index/flush, and the pairwise external merge that folds
// run files into the final index.
package indexing

import (
	"warcidx/internal/partition"
)

const mebibyte = 1024 * 1024

// Config is the coordinator's planning output (spec.md §4.4 "Planning"),
// derived once from the memory budget and the corpus file count.
type Config struct {
	MaxWorkers       int
	MaxDocsPerWorker int64
	NumPartitions    int
	MaxReadBytes     int64
	MaxReadChars     int
	MemoryLimitMB    int64
	// PerWorkerMB is filled in by the caller from the resolved memctl
	// budget; it sizes each job's cooperative memory Guard.
	PerWorkerMB int64
}

// Plan computes Config and the initial partition set for a corpus,
// pinning spec.md §4.4's planner arithmetic exactly.
func Plan(memoryLimitMB int64, files []string) (Config, []*partition.Subindex) {
	cfg := Config{MemoryLimitMB: memoryLimitMB}

	cfg.MaxWorkers = min(6, len(files))
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}

	safe := 0.5 * float64(memoryLimitMB)
	maxDocs := safe / (0.4 * float64(cfg.MaxWorkers))
	if maxDocs < 25 {
		maxDocs = 25
	}
	cfg.MaxDocsPerWorker = int64(maxDocs)

	cfg.NumPartitions = min(2*cfg.MaxWorkers, len(files))
	if cfg.NumPartitions < 1 {
		cfg.NumPartitions = 1
	}

	ratio := float64(memoryLimitMB) / 1024
	cfg.MaxReadBytes = int64(ratio * ratio * 16384 * 8)
	cfg.MaxReadChars = int(ratio * ratio * 8 * mebibyte)
	if cfg.MaxReadChars < 1 {
		cfg.MaxReadChars = mebibyte
	}
	if cfg.MaxReadBytes < 1 {
		cfg.MaxReadBytes = int64(mebibyte)
	}

	parts := partition.Distribute(files, cfg.NumPartitions)
	return cfg, parts
}
