package ranking

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warcidx/internal/indexing"
	"warcidx/internal/memctl"
)

func warcRecord(warcType, targetURI, contentType, body string) string {
	httpMsg := "HTTP/1.1 200 OK\r\nContent-Type: " + contentType + "\r\n\r\n" + body
	return "WARC/1.0\r\n" +
		"WARC-Type: " + warcType + "\r\n" +
		"WARC-Target-URI: " + targetURI + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(httpMsg)) + "\r\n" +
		"\r\n" +
		httpMsg + "\r\n" +
		"\r\n"
}

// TestQueryAgainstRealBuiltIndex exercises the full pipeline: build an
// index with the C3/C4 indexer, load it (C5 mark index + url-mapping),
// then answer a query through DAAT scoring (C6) — confirming the
// ranker's on-disk parsing matches what the indexer actually writes.
func TestQueryAgainstRealBuiltIndex(t *testing.T) {
	corpusDir := t.TempDir()
	content := warcRecord("response", "http://example.com/lions", "text/html", "lion lion zebra") +
		warcRecord("response", "http://example.com/tigers", "text/html", "tiger zebra zebra")
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "a.warc"), []byte(content), 0o644))

	outPath := filepath.Join(t.TempDir(), "final.idx")
	_, err := indexing.RunIndexer(corpusDir, outPath, memctl.Budget{TotalMB: 4096, PerWorkerMB: 512})
	require.NoError(t, err)

	idx, err := Load(outPath, 1<<16)
	require.NoError(t, err)
	assert.Equal(t, int64(2), idx.Metadata().NumDocs)

	hits := Query(idx, TFIDF, "lion")
	require.Len(t, hits, 1)
	assert.Equal(t, "http://example.com/lions", hits[0].URL)

	hits = Query(idx, TFIDF, "zebra")
	require.Len(t, hits, 2)

	hits = Query(idx, TFIDF, "nonexistentterm")
	assert.Empty(t, hits)
}
