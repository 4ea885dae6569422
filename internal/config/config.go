// Package config holds the shared, validated configuration for the
// indexer and processor entrypoints (spec.md §6 "CLI surface").
package config

import (
	"fmt"

	"warcidx/internal/ranking"
)

// IndexerConfig is cmd/indexer's resolved flag set.
type IndexerConfig struct {
	MemoryLimitMB int64  // -m
	CorpusDir     string // -c
	OutputPath    string // -i
}

// Validate reports the first missing or out-of-range field.
func (c IndexerConfig) Validate() error {
	if c.MemoryLimitMB <= 0 {
		return fmt.Errorf("memory limit (-m) must be positive, got %d", c.MemoryLimitMB)
	}
	if c.CorpusDir == "" {
		return fmt.Errorf("corpus directory (-c) is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path (-i) is required")
	}
	return nil
}

// ProcessorConfig is cmd/processor's resolved flag set.
type ProcessorConfig struct {
	IndexPath    string // -i
	QueriesPath  string // -q
	RankerType   string // -r, "TFIDF" or "BM25"
	Parallelism  int    // -parallelism
	Benchmarking bool   // -benchmarking
}

// DefaultParallelism matches spec.md §4.6's suggested worker-pool size
// when -parallelism is left unset.
const DefaultParallelism = 4

// Validate reports the first missing or out-of-range field and
// resolves RankerType to a ranking.Type.
func (c ProcessorConfig) Validate() (ranking.Type, error) {
	if c.IndexPath == "" {
		return 0, fmt.Errorf("index path (-i) is required")
	}
	if c.QueriesPath == "" {
		return 0, fmt.Errorf("queries path (-q) is required")
	}
	rtype, ok := ranking.ParseType(c.RankerType)
	if !ok {
		return 0, fmt.Errorf("ranker type (-r) must be TFIDF or BM25, got %q", c.RankerType)
	}
	if c.Parallelism <= 0 {
		return 0, fmt.Errorf("parallelism must be positive, got %d", c.Parallelism)
	}
	return rtype, nil
}
