package indexing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warcidx/internal/memctl"
)

func TestRunIndexerProducesWellFormedFinalIndex(t *testing.T) {
	// A single corpus file keeps both records in the same partition, so
	// their docids are contiguous (0, 1) and max_docid is exactly 2;
	// splitting across multiple files would land them in disjoint,
	// widely-spaced per-partition docid ranges by design (spec.md §4.2).
	corpusDir := t.TempDir()
	content := warcRecord("response", "http://example.com/1", "text/html", "banana zebra lion") +
		warcRecord("response", "http://example.com/2", "text/html", "zebra tiger banana")
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "a.warc"), []byte(content), 0o644))

	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "final.idx")

	stats, err := RunIndexer(corpusDir, outPath, memctl.Budget{TotalMB: 4096, PerWorkerMB: 512})
	require.NoError(t, err)
	assert.Greater(t, stats.IndexSizeMB, 0.0)
	assert.GreaterOrEqual(t, stats.NumberOfLists, 1)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	text := string(raw)

	assert.True(t, strings.HasPrefix(text, beginURLMapping+"\n"))
	assert.Contains(t, text, endURLMapping)
	assert.Contains(t, text, beginIndexMeta)
	assert.Contains(t, text, "num_docs 2")
	assert.Contains(t, text, "max_docid 2")
	assert.Contains(t, text, endIndexMeta)
	assert.Contains(t, text, "http://example.com/1")
	assert.Contains(t, text, "http://example.com/2")

	postingsSection := text[strings.Index(text, endIndexMeta)+len(endIndexMeta)+1:]
	assert.Contains(t, postingsSection, "banana")
	assert.Contains(t, postingsSection, "zebra")
}

func TestRunIndexerEmptyCorpusProducesZeroedMetadata(t *testing.T) {
	corpusDir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "final.idx")

	stats, err := RunIndexer(corpusDir, outPath, memctl.Budget{TotalMB: 1024, PerWorkerMB: 256})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NumberOfLists)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "num_docs 0")
	assert.Contains(t, string(raw), "avg_doc_len 0")
}
